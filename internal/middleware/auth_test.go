package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmate/backend/internal/middleware"
)

// stubVerifier is a function-field double for middleware.SessionVerifier.
type stubVerifier struct {
	verify func(ctx context.Context, token string) (string, error)
}

func (s *stubVerifier) Verify(ctx context.Context, token string) (string, error) {
	return s.verify(ctx, token)
}

// userEchoHandler writes the user ID from the context, or "anonymous".
var userEchoHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if userID, ok := middleware.UserID(r.Context()); ok {
		w.Write([]byte(userID))
		return
	}
	w.Write([]byte("anonymous"))
})

func TestSessionHandler_ValidToken(t *testing.T) {
	verifier := &stubVerifier{
		verify: func(_ context.Context, token string) (string, error) {
			assert.Equal(t, "tok-123", token)
			return "user-1", nil
		},
	}
	h := middleware.NewSessionHandler(verifier)(userEchoHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/draft", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "user-1", rec.Body.String())
}

// TestSessionHandler_RejectedToken verifies that a token the verifier rejects
// degrades to an anonymous request rather than an error response.
func TestSessionHandler_RejectedToken(t *testing.T) {
	verifier := &stubVerifier{
		verify: func(context.Context, string) (string, error) {
			return "", errors.New("expired")
		},
	}
	h := middleware.NewSessionHandler(verifier)(userEchoHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/draft", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestSessionHandler_NoToken(t *testing.T) {
	verifier := &stubVerifier{
		verify: func(context.Context, string) (string, error) {
			t.Fatal("verifier must not be called without a token")
			return "", nil
		},
	}
	h := middleware.NewSessionHandler(verifier)(userEchoHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/draft", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestSessionHandler_NilVerifier(t *testing.T) {
	h := middleware.NewSessionHandler(nil)(userEchoHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/draft", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestSessionHandler_MalformedHeader(t *testing.T) {
	verifier := &stubVerifier{
		verify: func(context.Context, string) (string, error) {
			t.Fatal("verifier must not be called for a non-bearer header")
			return "", nil
		},
	}
	h := middleware.NewSessionHandler(verifier)(userEchoHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/draft", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "anonymous", rec.Body.String())
}

// ---- RemoteVerifier --------------------------------------------------------

func TestRemoteVerifier_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"id": "user-1"})
	}))
	defer srv.Close()

	userID, err := middleware.NewRemoteVerifier(srv.URL).Verify(context.Background(), "tok-123")

	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestRemoteVerifier_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := middleware.NewRemoteVerifier(srv.URL).Verify(context.Background(), "bad-token")

	assert.Error(t, err)
}

func TestRemoteVerifier_NoUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	_, err := middleware.NewRemoteVerifier(srv.URL).Verify(context.Background(), "tok-123")

	assert.Error(t, err)
}
