package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/config"
	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/handler"
	"github.com/aleixoc/budget-copilot-go/internal/infra/cache"
	"github.com/aleixoc/budget-copilot-go/internal/infra/client"
	"github.com/aleixoc/budget-copilot-go/internal/infra/observability"
	"github.com/aleixoc/budget-copilot-go/internal/infra/resilience"
	"github.com/aleixoc/budget-copilot-go/internal/infra/supabase"
	"github.com/aleixoc/budget-copilot-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("save_debounce", cfg.SaveDebounce),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("reminder_job", cfg.RunReminderJob),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, using X-User-ID header identity (dev mode)")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "budget-copilot")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	budgetCache := cache.New[domain.BudgetState](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("external-apis")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)
	agentClient := client.NewAgentClient(httpClient, cfg.AgentAPIURL, cb, resilienceCfg)

	// --- Services ---
	budgetSvc := service.NewBudgetService(store, budgetCache, cfg.SaveDebounce, metrics, logger)
	assistantSvc := service.NewAssistantService(agentClient, budgetSvc, metrics, logger)

	// --- Reminder batch job ---
	reminderDone := make(chan struct{})
	if cfg.RunReminderJob {
		if cfg.MailerURL == "" {
			logger.Fatal("MAILER_URL is required when the reminder job is enabled")
		}
		mailer := client.NewMailerClient(httpClient, cfg.MailerURL, cb, resilienceCfg)
		reminderSvc := service.NewReminderService(store, store, mailer, cfg.MaxConcurrency, metrics, logger)

		go func() {
			ticker := time.NewTicker(cfg.ReminderInterval)
			defer ticker.Stop()
			for {
				select {
				case <-reminderDone:
					return
				case <-ticker.C:
					if err := reminderSvc.Run(context.Background(), time.Now()); err != nil {
						logger.Error("reminder batch failed", zap.Error(err))
					}
				}
			}
		}()
		logger.Info("reminder job enabled", zap.Duration("interval", cfg.ReminderInterval))
	}

	// --- Router ---
	router := handler.NewRouter(budgetSvc, assistantSvc, cfg.JWTSecret, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	close(reminderDone)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	// Push any debounced edits to the store before exiting.
	budgetSvc.Flush()

	logger.Info("server stopped")
}
