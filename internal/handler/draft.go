package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/planmate/backend/internal/domain"
	"github.com/planmate/backend/internal/middleware"
)

// SaveDraftRequest names the conversation whose state should be persisted.
type SaveDraftRequest struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

// DraftResponse acknowledges a saved draft.
type DraftResponse struct {
	ConversationID uuid.UUID `json:"conversationId"`
	SavedAt        time.Time `json:"savedAt"`
}

// PlanHistoryResponse is one generated plan in the caller's history.
type PlanHistoryResponse struct {
	ID        uuid.UUID           `json:"id"`
	Demand    domain.DemandRecord `json:"demand"`
	Plan      string              `json:"plan"`
	CreatedAt time.Time           `json:"createdAt"`
}

// SaveDraft handles PUT /api/draft. Drafts are tied to a signed-in user;
// anonymous callers get 401 rather than a silently dropped save.
// A store failure does not touch the live conversation state.
func (s *Server) SaveDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req SaveDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConversationID == uuid.Nil {
		requestError(w, "conversationId is required")
		return
	}

	draft, err := s.conversations.SaveDraft(r.Context(), req.ConversationID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{
		ConversationID: draft.ID,
		SavedAt:        draft.UpdatedAt,
	})
}

// LoadDraft handles GET /api/draft: it restores the caller's saved draft as
// a live conversation and returns the full snapshot.
func (s *Server) LoadDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	snap, err := s.conversations.LoadDraft(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToResponse(snap))
}

// DeleteDraft handles DELETE /api/draft: it discards the caller's saved
// draft. The live conversation, if still registered, is unaffected.
func (s *Server) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	if err := s.conversations.DeleteDraft(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHistory handles GET /api/history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	plans, err := s.conversations.History(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(plans, func(p domain.TravelPlan, _ int) PlanHistoryResponse {
		return PlanHistoryResponse{ID: p.ID, Demand: p.Demand, Plan: p.Plan, CreatedAt: p.CreatedAt}
	}))
}
