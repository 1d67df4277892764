package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmate/backend/internal/domain"
	"github.com/planmate/backend/internal/handler"
	"github.com/planmate/backend/internal/planner"
	"github.com/planmate/backend/internal/service"
)

func TestStartConversation(t *testing.T) {
	id := uuid.New()
	svc := &mockConversations{
		start: func(context.Context) domain.ConversationSnapshot { return collectingSnapshot(id) },
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/conversations", "")

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp handler.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, domain.PhaseCollecting, resp.Phase)
	require.Len(t, resp.Turns, 1)
	assert.Equal(t, domain.RoleAssistant, resp.Turns[0].Role)
}

func TestGetConversation(t *testing.T) {
	id := uuid.New()
	svc := &mockConversations{
		snapshot: func(_ context.Context, got uuid.UUID) (domain.ConversationSnapshot, error) {
			assert.Equal(t, id, got)
			return resultSnapshot(id), nil
		},
	}

	rec := doRequest(t, svc, http.MethodGet, "/api/conversations/"+id.String(), "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.PhaseShowingResult, resp.Phase)
	assert.Equal(t, "行程：第一天游览故宫", resp.Plan)
}

func TestGetConversation_BadID(t *testing.T) {
	rec := doRequest(t, &mockConversations{}, http.MethodGet, "/api/conversations/not-a-uuid", "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	requireErrorCode(t, rec, "validation_error")
}

func TestGetConversation_NotFound(t *testing.T) {
	svc := &mockConversations{
		snapshot: func(context.Context, uuid.UUID) (domain.ConversationSnapshot, error) {
			return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Snapshot: %w", domain.ErrNotFound)
		},
	}

	rec := doRequest(t, svc, http.MethodGet, "/api/conversations/"+uuid.NewString(), "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	requireErrorCode(t, rec, "not_found")
}

func TestPostMessage(t *testing.T) {
	id := uuid.New()
	svc := &mockConversations{
		message: func(_ context.Context, got uuid.UUID, text string) (domain.ConversationSnapshot, error) {
			assert.Equal(t, id, got)
			assert.Equal(t, "我想去北京", text)
			return collectingSnapshot(id), nil
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/conversations/"+id.String()+"/messages",
		`{"text":"我想去北京"}`)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPostMessage_NoBody(t *testing.T) {
	rec := doRequest(t, &mockConversations{}, http.MethodPost,
		"/api/conversations/"+uuid.NewString()+"/messages", "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	requireErrorCode(t, rec, "validation_error")
}

func TestPostMessage_EmptyText(t *testing.T) {
	svc := &mockConversations{
		message: func(context.Context, uuid.UUID, string) (domain.ConversationSnapshot, error) {
			return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Message: %w",
				&domain.ValidationError{Reason: domain.EmptyMessage, Message: "请输入消息内容"})
		},
	}

	rec := doRequest(t, svc, http.MethodPost,
		"/api/conversations/"+uuid.NewString()+"/messages", `{"text":""}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	requireErrorCode(t, rec, "EmptyMessage")
	assert.Contains(t, rec.Body.String(), "请输入消息内容")
}

func TestPostMessage_WrongPhase(t *testing.T) {
	svc := &mockConversations{
		message: func(context.Context, uuid.UUID, string) (domain.ConversationSnapshot, error) {
			return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Message: %w", domain.ErrInvalidPhase)
		},
	}

	rec := doRequest(t, svc, http.MethodPost,
		"/api/conversations/"+uuid.NewString()+"/messages", `{"text":"你好"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	requireErrorCode(t, rec, "invalid_phase")
}

func TestConfirmDemand(t *testing.T) {
	id := uuid.New()
	svc := &mockConversations{
		confirm: func(_ context.Context, got uuid.UUID, userID string) (domain.ConversationSnapshot, error) {
			assert.Equal(t, id, got)
			assert.Empty(t, userID, "anonymous request carries no user")
			return resultSnapshot(id), nil
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/conversations/"+id.String()+"/confirm", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.PhaseShowingResult, resp.Phase)
	assert.NotEmpty(t, resp.Plan)
	assert.Empty(t, resp.Notice)
}

func TestConfirmDemand_PassesUserID(t *testing.T) {
	id := uuid.New()
	svc := &mockConversations{
		confirm: func(_ context.Context, _ uuid.UUID, userID string) (domain.ConversationSnapshot, error) {
			assert.Equal(t, "user-1", userID)
			return resultSnapshot(id), nil
		},
	}

	rec := doAuthedRequest(t, svc, http.MethodPost, "/api/conversations/"+id.String()+"/confirm", "", "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestConfirmDemand_ValidationFailure(t *testing.T) {
	svc := &mockConversations{
		confirm: func(context.Context, uuid.UUID, string) (domain.ConversationSnapshot, error) {
			return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Confirm: %w",
				&domain.ValidationError{Reason: domain.EndBeforeStart, Message: "返回日期不能早于出发日期"})
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/conversations/"+uuid.NewString()+"/confirm", "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	requireErrorCode(t, rec, string(domain.EndBeforeStart))
	assert.Contains(t, rec.Body.String(), "返回日期不能早于出发日期")
}

func TestConfirmDemand_InFlight(t *testing.T) {
	svc := &mockConversations{
		confirm: func(context.Context, uuid.UUID, string) (domain.ConversationSnapshot, error) {
			return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Confirm: %w", domain.ErrGenerationInFlight)
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/conversations/"+uuid.NewString()+"/confirm", "")

	require.Equal(t, http.StatusConflict, rec.Code)
	requireErrorCode(t, rec, "generation_in_flight")
}

func TestConfirmDemand_GeneratorUnavailable(t *testing.T) {
	svc := &mockConversations{
		confirm: func(context.Context, uuid.UUID, string) (domain.ConversationSnapshot, error) {
			return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Confirm: %w", service.ErrGeneratorUnavailable)
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/conversations/"+uuid.NewString()+"/confirm", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	requireErrorCode(t, rec, "generator_unavailable")
}

func TestConfirmDemand_GenerationFailed(t *testing.T) {
	svc := &mockConversations{
		confirm: func(context.Context, uuid.UUID, string) (domain.ConversationSnapshot, error) {
			return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Confirm: %w",
				&planner.UpstreamError{Message: "rate limited"})
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/conversations/"+uuid.NewString()+"/confirm", "")

	require.Equal(t, http.StatusBadGateway, rec.Code)
	requireErrorCode(t, rec, "generation_failed")
}

// TestConfirmDemand_HistoryWriteFailure verifies the downgrade path: the plan
// was generated, only the history append failed, so the response is a 200
// with a notice rather than an error.
func TestConfirmDemand_HistoryWriteFailure(t *testing.T) {
	id := uuid.New()
	svc := &mockConversations{
		confirm: func(context.Context, uuid.UUID, string) (domain.ConversationSnapshot, error) {
			return resultSnapshot(id), &service.HistoryWriteError{Err: fmt.Errorf("disk full")}
		},
	}

	rec := doAuthedRequest(t, svc, http.MethodPost, "/api/conversations/"+id.String()+"/confirm", "", "user-1")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "行程：第一天游览故宫", resp.Plan)
	assert.Equal(t, "旅行计划已生成，但保存到历史记录失败", resp.Notice)
}

func TestEditDemand(t *testing.T) {
	id := uuid.New()
	svc := &mockConversations{
		edit: func(_ context.Context, got uuid.UUID) (domain.ConversationSnapshot, error) {
			assert.Equal(t, id, got)
			return collectingSnapshot(id), nil
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/conversations/"+id.String()+"/edit", "")

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEditDemand_WrongPhase(t *testing.T) {
	svc := &mockConversations{
		edit: func(context.Context, uuid.UUID) (domain.ConversationSnapshot, error) {
			return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Edit: %w", domain.ErrInvalidPhase)
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/conversations/"+uuid.NewString()+"/edit", "")

	require.Equal(t, http.StatusConflict, rec.Code)
}

// TestClearAndNewPlan verifies the two reset endpoints share the same
// transition.
func TestClearAndNewPlan(t *testing.T) {
	for _, action := range []string{"clear", "new-plan"} {
		t.Run(action, func(t *testing.T) {
			id := uuid.New()
			svc := &mockConversations{
				clear: func(_ context.Context, got uuid.UUID) (domain.ConversationSnapshot, error) {
					assert.Equal(t, id, got)
					return collectingSnapshot(id), nil
				},
			}

			rec := doRequest(t, svc, http.MethodPost, "/api/conversations/"+id.String()+"/"+action, "")

			require.Equal(t, http.StatusOK, rec.Code)

			var resp handler.ConversationResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, domain.PhaseCollecting, resp.Phase)
		})
	}
}
