package service

import (
	"context"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/infra/observability"
	"github.com/aleixoc/budget-copilot-go/internal/infra/resilience"
	"github.com/aleixoc/budget-copilot-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var reminderTracer = otel.Tracer("service/reminder")

// ReminderService is the read-mostly batch job: it walks every budget
// document, re-derives due dates from the same recurrence rules the client
// uses, and emails for bills exactly notificationReminderDays out. The
// reminder log makes sends idempotent across runs.
type ReminderService struct {
	store    port.BudgetStore
	log      port.ReminderLog
	mailer   port.Mailer
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewReminderService creates the reminder batch service.
func NewReminderService(
	store port.BudgetStore,
	log port.ReminderLog,
	mailer port.Mailer,
	maxConcurrency int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		store:    store,
		log:      log,
		mailer:   mailer,
		bulkhead: resilience.NewBulkhead(maxConcurrency),
		metrics:  metrics,
		logger:   logger,
	}
}

// Run executes one batch pass at the given reference time. Per-user
// failures are logged and skipped so one broken document never stalls the
// whole batch.
func (r *ReminderService) Run(ctx context.Context, now time.Time) error {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Run")
	defer span.End()

	start := time.Now()
	defer func() { r.metrics.RecordRequestDuration("reminder_batch", time.Since(start)) }()

	userIDs, err := r.store.ListUserIDs(ctx)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if err := r.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer r.bulkhead.Release()

			if err := r.remindUser(gCtx, userID, now); err != nil {
				r.logger.Warn("reminder pass failed for user",
					zap.String("user_id", userID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("reminder batch complete",
		zap.Int("users", len(userIDs)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (r *ReminderService) remindUser(ctx context.Context, userID string, now time.Time) error {
	state, err := r.store.GetBudget(ctx, userID)
	if err != nil {
		return err
	}
	if !state.NotificationsEnabled {
		return nil
	}

	lead := state.NotificationReminderDays
	for _, bill := range resolveUpcoming(*state, now) {
		if bill.DaysOut != lead {
			continue
		}

		sent, err := r.log.Sent(ctx, userID, bill.Name, bill.DueDate, lead)
		if err != nil {
			return err
		}
		if sent {
			continue
		}

		if err := r.mailer.SendReminder(ctx, userID, bill); err != nil {
			r.metrics.IncrExternalError("mailer")
			return err
		}

		entry := domain.ReminderLogEntry{
			ID:       uuid.New().String(),
			UserID:   userID,
			BillName: bill.Name,
			DueDate:  bill.DueDate,
			LeadDays: lead,
			SentAt:   now.UTC().Format(time.RFC3339),
		}
		if err := r.log.Record(ctx, entry); err != nil {
			// The email went out; a missing log row risks one duplicate
			// next run, which the receiving side tolerates.
			r.logger.Warn("failed to record reminder log entry",
				zap.String("user_id", userID),
				zap.String("bill", bill.Name),
				zap.Error(err),
			)
		}

		r.metrics.IncrReminderSent()
		r.logger.Info("reminder sent",
			zap.String("user_id", userID),
			zap.String("bill_name", bill.Name),
			zap.String("due_date", bill.DueDate),
			zap.Int("lead_days", lead),
		)
	}
	return nil
}
