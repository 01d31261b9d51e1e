package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Budget — /v1/budget
// ============================================================

func getBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budget")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		span.SetAttributes(attribute.String("user.id", userID))

		view, err := svc.View(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func updateBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/budget")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		span.SetAttributes(attribute.String("user.id", userID))

		var patch domain.BudgetPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.ApplyPatch(ctx, userID, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func budgetActionsHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/actions")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		var req domain.ActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var (
			view any
			err  error
		)
		switch {
		case len(req.Actions) > 0:
			view, err = svc.ApplyActions(ctx, userID, req.Actions)
		case req.Command != "":
			view, err = svc.RunCommand(ctx, userID, req.Command)
		default:
			writeError(w, http.StatusBadRequest, "either actions or command is required")
			return
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func importBillsHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/bills/import")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		var req domain.ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.ImportBills(ctx, userID, req.Text)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func addCategoryHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/categories")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		var cat domain.BudgetCategory
		if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.AddCategory(ctx, userID, cat)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func addGoalHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/goals")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		var goal domain.BudgetGoal
		if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.AddGoal(ctx, userID, goal)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func addLabelHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/labels")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		var req struct {
			Label string `json:"label"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.AddLabel(ctx, userID, req.Label)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

// ============================================================
// Projection & insights — /v1/budget/projection, /v1/budget/insights
// ============================================================

func projectionHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budget/projection")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		view, err := svc.View(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"weeklyAmounts": view.WeeklyAmounts,
			"leftToBudget":  view.Aggregates.LeftToBudget,
		})
	}
}

func insightsHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budget/insights")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		view, err := svc.View(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view.Insights)
	}
}

// ============================================================
// Export — GET /v1/budget/export.csv
// ============================================================

func exportCSVHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budget/export.csv")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		state, err := svc.Load(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="budget.csv"`)
		if err := service.WriteCSV(w, state); err != nil {
			logger.Error("csv export failed", zap.Error(err))
		}
	}
}

// ============================================================
// Reminders — GET /v1/budget/reminders/upcoming
// ============================================================

func upcomingRemindersHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budget/reminders/upcoming")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		bills, err := svc.UpcomingBills(ctx, userID, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"upcoming": bills})
	}
}
