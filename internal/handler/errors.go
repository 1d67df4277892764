package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/planmate/backend/internal/domain"
	"github.com/planmate/backend/internal/planner"
	"github.com/planmate/backend/internal/service"
)

// ErrorResponse is the JSON error envelope shared by every endpoint.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human-readable
// message. For demand validation failures the code is the structured
// validation reason (e.g. "EndBeforeStart").
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps a service or engine error onto the HTTP surface:
//
//	ErrNotFound            → 404
//	ErrValidation          → 422 (+ validation reason code when present)
//	ErrInvalidPhase        → 409
//	ErrGenerationInFlight  → 409
//	ErrGeneratorUnavailable→ 503
//	planner.UpstreamError  → 502
//	anything else          → 500
func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var upstreamErr *planner.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{
			Code:    string(validationErr.Reason),
			Message: validationErr.Message,
		}})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{
			Code:    "validation_error",
			Message: "请求无效",
		}})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: ErrorDetail{
			Code:    "not_found",
			Message: "resource not found",
		}})
	case errors.Is(err, domain.ErrGenerationInFlight):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: ErrorDetail{
			Code:    "generation_in_flight",
			Message: "旅行计划正在生成中，请稍候",
		}})
	case errors.Is(err, domain.ErrInvalidPhase):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: ErrorDetail{
			Code:    "invalid_phase",
			Message: "当前会话状态不支持该操作",
		}})
	case errors.Is(err, service.ErrGeneratorUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: ErrorDetail{
			Code:    "generator_unavailable",
			Message: "旅行计划生成服务未配置",
		}})
	case errors.As(err, &upstreamErr):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: ErrorDetail{
			Code:    "generation_failed",
			Message: "生成旅行计划失败，请稍后重试",
		}})
	default:
		slog.Error("unhandled handler error", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
			Code:    "internal_error",
			Message: "internal server error",
		}})
	}
}

// requestError rejects a malformed request before it reaches the service
// layer (e.g. missing or unparseable body).
func requestError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{
		Code:    "validation_error",
		Message: message,
	}})
}

// unauthorized rejects persistence endpoints when no user session is present.
func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
		Code:    "unauthorized",
		Message: "sign in to save and load drafts",
	}})
}
