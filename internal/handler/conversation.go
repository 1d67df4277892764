package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/planmate/backend/internal/domain"
	"github.com/planmate/backend/internal/middleware"
	"github.com/planmate/backend/internal/service"
)

// ConversationResponse is the snapshot DTO returned by every conversation
// endpoint. Notice carries a non-blocking status message (e.g. a failed
// history write after a successful generation).
type ConversationResponse struct {
	ID     uuid.UUID           `json:"id"`
	Phase  domain.Phase        `json:"phase"`
	Demand domain.DemandRecord `json:"demand"`
	Turns  []TurnResponse      `json:"turns"`
	Plan   string              `json:"plan,omitempty"`
	Notice string              `json:"notice,omitempty"`
}

// TurnResponse is one chat log entry.
type TurnResponse struct {
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

// MessageRequest is the body of POST /conversations/{id}/messages. Both
// typed input and transcribed voice input arrive through it.
type MessageRequest struct {
	Text string `json:"text"`
}

// StartConversation handles POST /api/conversations.
func (s *Server) StartConversation(w http.ResponseWriter, r *http.Request) {
	snap := s.conversations.Start(r.Context())
	writeJSON(w, http.StatusCreated, snapshotToResponse(snap))
}

// GetConversation handles GET /api/conversations/{id}.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, snapshotToResponse(snap))
}

// PostMessage handles POST /api/conversations/{id}/messages.
// Empty or whitespace-only text is rejected with 422 and no state change.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		requestError(w, "invalid conversation id")
		return
	}
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		requestError(w, "request body is required")
		return
	}

	snap, err := s.conversations.Message(r.Context(), id, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToResponse(snap))
}

// ConfirmDemand handles POST /api/conversations/{id}/confirm.
// A validation failure or an in-flight generation leaves the conversation
// untouched; a generation failure returns it to the confirming phase with
// the record intact.
func (s *Server) ConfirmDemand(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		requestError(w, "invalid conversation id")
		return
	}
	userID, _ := middleware.UserID(r.Context())

	snap, err := s.conversations.Confirm(r.Context(), id, userID)
	if err != nil {
		var histErr *service.HistoryWriteError
		if errors.As(err, &histErr) {
			// The plan was generated; only the history append failed.
			// Surface it as a notice, not a failure.
			resp := snapshotToResponse(snap)
			resp.Notice = "旅行计划已生成，但保存到历史记录失败"
			writeJSON(w, http.StatusOK, resp)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToResponse(snap))
}

// EditDemand handles POST /api/conversations/{id}/edit.
func (s *Server) EditDemand(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		requestError(w, "invalid conversation id")
		return
	}
	snap, err := s.conversations.Edit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToResponse(snap))
}

// ClearConversation handles POST /api/conversations/{id}/clear.
func (s *Server) ClearConversation(w http.ResponseWriter, r *http.Request) {
	s.reset(w, r)
}

// NewPlan handles POST /api/conversations/{id}/new-plan. Starting a new plan
// and clearing the chat are the same state transition.
func (s *Server) NewPlan(w http.ResponseWriter, r *http.Request) {
	s.reset(w, r)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		requestError(w, "invalid conversation id")
		return
	}
	snap, err := s.conversations.Clear(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToResponse(snap))
}

// snapshotToResponse converts an engine snapshot into the wire DTO.
func snapshotToResponse(snap domain.ConversationSnapshot) ConversationResponse {
	return ConversationResponse{
		ID:     snap.ID,
		Phase:  snap.Phase,
		Demand: snap.Demand,
		Plan:   snap.Plan,
		Turns: lo.Map(snap.Turns, func(t domain.ChatTurn, _ int) TurnResponse {
			return TurnResponse{Role: t.Role, Content: t.Content, CreatedAt: t.CreatedAt}
		}),
	}
}
