package handler

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/planmate/backend/internal/domain"
	"github.com/planmate/backend/internal/extract"
	"github.com/planmate/backend/internal/geo"
)

// PlanLocationResponse is one place mentioned in a generated plan, with
// coordinates when the map service could resolve it.
type PlanLocationResponse struct {
	Name      string  `json:"name"`
	Located   bool    `json:"located"`
	Longitude float64 `json:"longitude,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
}

// WalkingRouteResponse summarizes a walking route between two points.
type WalkingRouteResponse struct {
	DistanceMeters  int `json:"distanceMeters"`
	DurationSeconds int `json:"durationSeconds"`
}

// GetPlanLocations handles GET /api/conversations/{id}/locations: it lists
// the marked places in the generated plan, geocoded where possible. Only a
// conversation showing a result has a plan to read places from. Geocoding is
// best effort per place; one the map service cannot place comes back with
// located=false rather than failing the whole list.
func (s *Server) GetPlanLocations(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		requestError(w, "invalid conversation id")
		return
	}
	snap, err := s.conversations.Snapshot(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if snap.Phase != domain.PhaseShowingResult {
		writeError(w, domain.ErrInvalidPhase)
		return
	}

	names := extract.Locations(snap.Plan)
	writeJSON(w, http.StatusOK, lo.Map(names, func(name string, _ int) PlanLocationResponse {
		resp := PlanLocationResponse{Name: name}
		if s.geocoder == nil {
			return resp
		}
		point, err := s.geocoder.Geocode(r.Context(), name)
		if err != nil {
			return resp
		}
		resp.Located = true
		resp.Longitude = point.Longitude
		resp.Latitude = point.Latitude
		return resp
	}))
}

// GeocodeAddress handles GET /api/map/geocode?address=…
func (s *Server) GeocodeAddress(w http.ResponseWriter, r *http.Request) {
	if s.geocoder == nil {
		mapUnavailable(w)
		return
	}
	address := r.URL.Query().Get("address")
	if address == "" {
		requestError(w, "address is required")
		return
	}

	point, err := s.geocoder.Geocode(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, point)
}

// GetWalkingRoute handles GET /api/map/walking?origin=lng,lat&destination=lng,lat
func (s *Server) GetWalkingRoute(w http.ResponseWriter, r *http.Request) {
	if s.geocoder == nil {
		mapUnavailable(w)
		return
	}
	origin, err := geo.ParsePoint(r.URL.Query().Get("origin"))
	if err != nil {
		requestError(w, "origin must be \"lng,lat\"")
		return
	}
	destination, err := geo.ParsePoint(r.URL.Query().Get("destination"))
	if err != nil {
		requestError(w, "destination must be \"lng,lat\"")
		return
	}

	route, err := s.geocoder.WalkingRoute(r.Context(), origin, destination)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WalkingRouteResponse{
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
	})
}

func mapUnavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: ErrorDetail{
		Code:    "map_unavailable",
		Message: "地图服务未配置",
	}})
}
