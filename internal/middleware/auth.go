package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SessionVerifier resolves a bearer token to a user ID. Authentication is an
// external collaborator — the hosted auth backend owns sign-in, sign-up, and
// session lifetime; this server only asks "whose session is this token?".
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

type userIDKey struct{}

// NewSessionHandler returns a middleware that resolves the Authorization
// bearer token (when present) to a user ID and attaches it to the request
// context. Requests without a token, or with a token the verifier rejects,
// proceed anonymously — individual handlers decide whether persistence
// features require a user.
func NewSessionHandler(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token != "" && verifier != nil {
				if userID, err := verifier.Verify(r.Context(), token); err == nil && userID != "" {
					r = r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserID returns the authenticated user attached to the context, if any.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey{}).(string)
	return userID, ok && userID != ""
}

// WithUserID returns a context carrying the given user ID. Exported for
// handler tests that bypass the middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// RemoteVerifier verifies sessions against a hosted auth backend by
// forwarding the bearer token to its user-info endpoint and reading the
// user ID out of the response.
type RemoteVerifier struct {
	url    string
	client *http.Client
}

// NewRemoteVerifier returns a verifier that resolves tokens against the
// given user-info URL.
func NewRemoteVerifier(url string) *RemoteVerifier {
	return &RemoteVerifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Verify calls the auth backend with the token and returns the user ID it
// reports. A non-200 response means the session is invalid.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return "", fmt.Errorf("middleware.RemoteVerifier.Verify: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("middleware.RemoteVerifier.Verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("middleware.RemoteVerifier.Verify: auth backend returned status %d", resp.StatusCode)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("middleware.RemoteVerifier.Verify: %w", err)
	}
	if body.ID == "" {
		return "", fmt.Errorf("middleware.RemoteVerifier.Verify: auth backend returned no user id")
	}
	return body.ID, nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
