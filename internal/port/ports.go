// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
)

// BudgetStore persists one BudgetState document per user.
// Conflict policy is last-writer-wins: the store never merges.
type BudgetStore interface {
	// GetBudget returns the user's document, or *domain.ErrNotFound when
	// the user has no budget yet.
	GetBudget(ctx context.Context, userID string) (*domain.BudgetState, error)

	// UpsertBudget writes the full document for the user.
	UpsertBudget(ctx context.Context, userID string, state domain.BudgetState) error

	// ListUserIDs returns every user with a budget document. Used by the
	// reminder batch job.
	ListUserIDs(ctx context.Context) ([]string, error)

	// Ping checks store reachability for health checks.
	Ping(ctx context.Context) error
}

// ReminderLog is the idempotency guard for the reminder batch job: one
// entry per (user, bill, due date, lead days) ever sent.
type ReminderLog interface {
	Sent(ctx context.Context, userID, billName, dueDate string, leadDays int) (bool, error)
	Record(ctx context.Context, entry domain.ReminderLogEntry) error
}

// AgentCaller invokes the external copilot LLM service.
type AgentCaller interface {
	Call(ctx context.Context, req *domain.AgentRequest) (*domain.AgentResponse, error)
}

// Mailer delivers bill reminder emails.
type Mailer interface {
	SendReminder(ctx context.Context, userID string, bill domain.UpcomingBill) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
