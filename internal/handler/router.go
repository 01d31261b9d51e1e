package handler

import (
	"net/http"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/infra/observability"
	"github.com/aleixoc/budget-copilot-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract the budget client consumes.
func NewRouter(
	budgetSvc *service.BudgetService,
	assistantSvc *service.AssistantService,
	jwtSecret string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(budgetSvc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(identityMiddleware(jwtSecret, logger))

		// =============================================
		// 1. Budget document & derived views
		// =============================================
		r.Route("/budget", func(r chi.Router) {
			r.Get("/", getBudgetHandler(budgetSvc, logger))
			r.Put("/", updateBudgetHandler(budgetSvc, logger))
			r.Post("/actions", budgetActionsHandler(budgetSvc, logger))
			r.Post("/bills/import", importBillsHandler(budgetSvc, logger))
			r.Post("/categories", addCategoryHandler(budgetSvc, logger))
			r.Post("/goals", addGoalHandler(budgetSvc, logger))
			r.Post("/labels", addLabelHandler(budgetSvc, logger))
			r.Get("/projection", projectionHandler(budgetSvc, logger))
			r.Get("/insights", insightsHandler(budgetSvc, logger))
			r.Get("/export.csv", exportCSVHandler(budgetSvc, logger))
			r.Get("/reminders/upcoming", upcomingRemindersHandler(budgetSvc, logger))
		})

		// =============================================
		// 2. Assistant chat & proposals
		// =============================================
		r.Route("/assistant", func(r chi.Router) {
			r.Post("/chat", chatHandler(assistantSvc, logger))
			r.Get("/proposal", getProposalHandler(assistantSvc, logger))
			r.Post("/proposal/confirm", confirmProposalHandler(assistantSvc, logger))
			r.Post("/proposal/discard", discardProposalHandler(assistantSvc, logger))
		})

		// =============================================
		// 3. Metrics snapshot
		// =============================================
		r.Get("/metrics/assistant", assistantMetricsHandler(metrics, logger))
	})

	return r
}

// identityMiddleware resolves the caller's user ID. With a JWT secret
// configured it validates Bearer tokens; without one (local development)
// it trusts the X-User-ID header.
func identityMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	if jwtSecret != "" {
		return JWTAuthMiddleware(jwtSecret, logger)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
				return
			}
			ctx := contextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ============================================================
// Health
// ============================================================

func healthzHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "copilot-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		start := time.Now()
		err := budgetSvc.Ping(ctx)
		latency := time.Since(start).Milliseconds()
		status := "healthy"
		if err != nil {
			status = "degraded"
		}
		services = append(services, domain.ServiceHealth{
			Name: "supabase", Status: status, LatencyMs: latency, LastChecked: now,
		})

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
