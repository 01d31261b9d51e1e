package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// Sent reports whether a reminder for this (user, bill, due date, lead) was
// already delivered. Implements port.ReminderLog.
func (c *Client) Sent(ctx context.Context, userID, billName, dueDate string, leadDays int) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ReminderSent")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var sent bool

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf(
				"reminder_log?user_id=eq.%s&bill_name=eq.%s&due_date=eq.%s&lead_days=eq.%d&select=id&limit=1",
				url.QueryEscape(userID), url.QueryEscape(billName), url.QueryEscape(dueDate), leadDays,
			)
			body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
			if err != nil {
				return err
			}
			sent = body != nil && string(body) != "[]"
			return nil
		})
	})

	if err != nil {
		return false, &domain.ErrExternalService{Service: "supabase/reminder_log", Err: err}
	}
	return sent, nil
}

// Record inserts a reminder-log entry after a successful send.
func (c *Client) Record(ctx context.Context, entry domain.ReminderLogEntry) error {
	ctx, span := tracer.Start(ctx, "Supabase.ReminderRecord")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", entry.UserID))

	payload, err := json.Marshal([]domain.ReminderLogEntry{entry})
	if err != nil {
		return fmt.Errorf("failed to encode reminder log entry: %w", err)
	}

	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			_, err := c.doRequest(ctx, http.MethodPost, "reminder_log", payload, "return=minimal")
			return err
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/reminder_log", Err: err}
	}
	return nil
}
