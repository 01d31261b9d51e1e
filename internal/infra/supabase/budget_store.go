package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// budgetRow maps the budget_states table: one JSON document per user.
type budgetRow struct {
	UserID    string             `json:"user_id"`
	Doc       domain.BudgetState `json:"doc"`
	UpdatedAt string             `json:"updated_at,omitempty"`
}

// GetBudget fetches a user's budget document. Implements port.BudgetStore.
func (c *Client) GetBudget(ctx context.Context, userID string) (*domain.BudgetState, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBudget")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var state *domain.BudgetState

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("budget_states?user_id=eq.%s&limit=1", url.QueryEscape(userID))
			body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "budget", ID: userID}
			}

			var rows []budgetRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode budget: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "budget", ID: userID}
			}

			doc := rows[0].Doc
			state = &doc
			return nil
		})
	})

	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/budget", Err: err}
	}

	return state, nil
}

// UpsertBudget writes the full document for the user (last-writer-wins).
func (c *Client) UpsertBudget(ctx context.Context, userID string, state domain.BudgetState) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertBudget")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	payload, err := json.Marshal([]budgetRow{{
		UserID:    userID,
		Doc:       state,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}})
	if err != nil {
		return fmt.Errorf("failed to encode budget: %w", err)
	}

	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := "budget_states?on_conflict=user_id"
			_, err := c.doRequest(ctx, http.MethodPost, path, payload, "resolution=merge-duplicates,return=minimal")
			return err
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/budget", Err: err}
	}
	return nil
}

// ListUserIDs returns every user with a budget document.
func (c *Client) ListUserIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUserIDs")
	defer span.End()

	var ids []string

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, "budget_states?select=user_id", nil, "")
			if err != nil {
				return err
			}
			if body == nil {
				ids = nil
				return nil
			}

			var rows []struct {
				UserID string `json:"user_id"`
			}
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode user ids: %w", err)
			}
			ids = make([]string, 0, len(rows))
			for _, r := range rows {
				ids = append(ids, r.UserID)
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/budget", Err: err}
	}
	return ids, nil
}
