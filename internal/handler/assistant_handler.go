package handler

import (
	"encoding/json"
	"net/http"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/infra/observability"
	"github.com/aleixoc/budget-copilot-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Assistant — /v1/assistant
// ============================================================

func chatHandler(svc *service.AssistantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/assistant/chat")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		span.SetAttributes(attribute.String("user.id", userID))

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.Chat(ctx, userID, req.Messages)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func getProposalHandler(svc *service.AssistantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/assistant/proposal")
		defer span.End()

		userID := UserIDFromContext(r.Context())
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		proposal := svc.Pending(userID)
		if proposal == nil {
			writeError(w, http.StatusNotFound, "no pending proposal")
			return
		}
		writeJSON(w, http.StatusOK, proposal)
	}
}

func confirmProposalHandler(svc *service.AssistantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/assistant/proposal/confirm")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		view, err := svc.Confirm(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func discardProposalHandler(svc *service.AssistantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/assistant/proposal/discard")
		defer span.End()

		userID := UserIDFromContext(r.Context())
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		if err := svc.Discard(userID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "proposal discarded"})
	}
}

// ============================================================
// Metrics — GET /v1/metrics/assistant
// ============================================================

func assistantMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := metrics.GetAssistantSnapshot()
		writeJSON(w, http.StatusOK, snapshot)
	}
}
