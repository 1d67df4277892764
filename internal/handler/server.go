// Package handler implements the HTTP handlers for the travel demand API.
// All handlers are methods on Server; methods are split into feature files
// (conversation.go, draft.go, calendar.go, health.go) but share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/planmate/backend/internal/domain"
	"github.com/planmate/backend/internal/geo"
)

// ConversationServicer defines the business operations the handlers depend
// on. Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the engine or the database.
type ConversationServicer interface {
	Start(ctx context.Context) domain.ConversationSnapshot
	Snapshot(ctx context.Context, id uuid.UUID) (domain.ConversationSnapshot, error)
	Message(ctx context.Context, id uuid.UUID, text string) (domain.ConversationSnapshot, error)
	Confirm(ctx context.Context, id uuid.UUID, userID string) (domain.ConversationSnapshot, error)
	Edit(ctx context.Context, id uuid.UUID) (domain.ConversationSnapshot, error)
	Clear(ctx context.Context, id uuid.UUID) (domain.ConversationSnapshot, error)
	SaveDraft(ctx context.Context, id uuid.UUID, userID string) (domain.Draft, error)
	LoadDraft(ctx context.Context, userID string) (domain.ConversationSnapshot, error)
	DeleteDraft(ctx context.Context, userID string) error
	History(ctx context.Context, userID string) ([]domain.TravelPlan, error)
}

// Server holds the handler dependencies for all API endpoints.
type Server struct {
	conversations ConversationServicer
	geocoder      geo.Geocoder
}

// NewServer constructs the Server with all its dependencies. geocoder may be
// nil when no map backend is configured; the map endpoints then answer 503.
func NewServer(conversations ConversationServicer, geocoder geo.Geocoder) *Server {
	return &Server{conversations: conversations, geocoder: geocoder}
}

// Routes mounts every API route on a fresh chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPISpec)
	r.Get("/docs", s.GetDocs)

	r.Route("/api", func(r chi.Router) {
		r.Post("/conversations", s.StartConversation)
		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Get("/", s.GetConversation)
			r.Post("/messages", s.PostMessage)
			r.Post("/confirm", s.ConfirmDemand)
			r.Post("/edit", s.EditDemand)
			r.Post("/clear", s.ClearConversation)
			r.Post("/new-plan", s.NewPlan)
			r.Get("/calendar", s.GetCalendar)
			r.Get("/locations", s.GetPlanLocations)
		})
		r.Get("/map/geocode", s.GeocodeAddress)
		r.Get("/map/walking", s.GetWalkingRoute)
		r.Put("/draft", s.SaveDraft)
		r.Get("/draft", s.LoadDraft)
		r.Delete("/draft", s.DeleteDraft)
		r.Get("/history", s.GetHistory)
	})

	return r
}

// conversationID parses the {id} path parameter.
func conversationID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
