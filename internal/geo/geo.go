// Package geo resolves place names to coordinates and computes walking
// routes between them, backed by the AMap (高德地图) v3 web API.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/planmate/backend/internal/domain"
)

const (
	defaultEndpoint = "https://restapi.amap.com/v3"

	requestTimeout = 10 * time.Second
)

// Point is a WGS-ish coordinate pair as AMap reports it (GCJ-02).
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// String renders the point in AMap's "lng,lat" wire form.
func (p Point) String() string {
	return strconv.FormatFloat(p.Longitude, 'f', 6, 64) + "," + strconv.FormatFloat(p.Latitude, 'f', 6, 64)
}

// ParsePoint parses AMap's "lng,lat" form.
func ParsePoint(s string) (Point, error) {
	lng, lat, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("geo: malformed location %q", s)
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return Point{}, fmt.Errorf("geo: malformed longitude in %q", s)
	}
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("geo: malformed latitude in %q", s)
	}
	return Point{Longitude: longitude, Latitude: latitude}, nil
}

// Route is a walking route summary between two points.
type Route struct {
	DistanceMeters  int `json:"distanceMeters"`
	DurationSeconds int `json:"durationSeconds"`
}

// Geocoder resolves addresses and routes. Implemented by AMapClient;
// handlers depend on this interface so tests can stub it.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
	WalkingRoute(ctx context.Context, origin, destination Point) (Route, error)
}

// AMapClient implements Geocoder against the AMap v3 web API.
type AMapClient struct {
	key      string
	endpoint string
	client   *http.Client
}

// Option configures an AMapClient.
type Option func(*AMapClient)

// WithEndpoint overrides the API base URL. Used by tests to point the
// client at a local httptest server.
func WithEndpoint(endpoint string) Option {
	return func(c *AMapClient) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// NewAMapClient constructs a Geocoder backed by the AMap web API. The API
// key is required.
func NewAMapClient(key string, opts ...Option) (*AMapClient, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("geo: api key must not be empty")
	}
	c := &AMapClient{
		key:      key,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// response shapes for the AMap v3 web API. Numbers arrive as JSON strings.

type geocodeResponse struct {
	Status   string `json:"status"`
	Info     string `json:"info"`
	Geocodes []struct {
		Location string `json:"location"`
	} `json:"geocodes"`
}

type walkingResponse struct {
	Status string `json:"status"`
	Info   string `json:"info"`
	Route  struct {
		Paths []struct {
			Distance string `json:"distance"`
			Duration string `json:"duration"`
		} `json:"paths"`
	} `json:"route"`
}

// Geocode resolves an address or place name to a point. An address the
// service cannot place returns domain.ErrNotFound.
func (c *AMapClient) Geocode(ctx context.Context, address string) (Point, error) {
	if strings.TrimSpace(address) == "" {
		return Point{}, fmt.Errorf("geo: address must not be empty")
	}

	query := url.Values{}
	query.Set("key", c.key)
	query.Set("address", address)

	var parsed geocodeResponse
	if err := c.invoke(ctx, "/geocode/geo", query, &parsed); err != nil {
		return Point{}, err
	}
	if parsed.Status != "1" {
		return Point{}, fmt.Errorf("geo: geocode failed: %s", parsed.Info)
	}
	if len(parsed.Geocodes) == 0 || parsed.Geocodes[0].Location == "" {
		return Point{}, fmt.Errorf("geo: no match for %q: %w", address, domain.ErrNotFound)
	}
	return ParsePoint(parsed.Geocodes[0].Location)
}

// WalkingRoute computes the walking route between two points and returns
// its first (best) path summary.
func (c *AMapClient) WalkingRoute(ctx context.Context, origin, destination Point) (Route, error) {
	query := url.Values{}
	query.Set("key", c.key)
	query.Set("origin", origin.String())
	query.Set("destination", destination.String())

	var parsed walkingResponse
	if err := c.invoke(ctx, "/direction/walking", query, &parsed); err != nil {
		return Route{}, err
	}
	if parsed.Status != "1" {
		return Route{}, fmt.Errorf("geo: walking route failed: %s", parsed.Info)
	}
	if len(parsed.Route.Paths) == 0 {
		return Route{}, fmt.Errorf("geo: no walking route: %w", domain.ErrNotFound)
	}

	path := parsed.Route.Paths[0]
	distance, err := strconv.Atoi(path.Distance)
	if err != nil {
		return Route{}, fmt.Errorf("geo: malformed distance %q", path.Distance)
	}
	duration, err := strconv.Atoi(path.Duration)
	if err != nil {
		return Route{}, fmt.Errorf("geo: malformed duration %q", path.Duration)
	}
	return Route{DistanceMeters: distance, DurationSeconds: duration}, nil
}

// invoke performs one GET round trip and decodes the JSON payload.
func (c *AMapClient) invoke(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("geo: call map service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geo: map api error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("geo: decode response: %w", err)
	}
	return nil
}
