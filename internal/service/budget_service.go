// Package service orchestrates the budget engine: loading and persisting
// state, staging assistant proposals, running the reminder batch, and
// exporting snapshots.
package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/engine"
	"github.com/aleixoc/budget-copilot-go/internal/infra/debounce"
	"github.com/aleixoc/budget-copilot-go/internal/infra/observability"
	"github.com/aleixoc/budget-copilot-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/budget")

// saveTimeout bounds a single debounced write to the store.
const saveTimeout = 10 * time.Second

// BudgetService owns the canonical in-memory budget state per user and its
// debounced persistence. The in-memory copy is local-first: a failed save
// keeps the user's edits visible and the next successful save carries the
// latest state.
type BudgetService struct {
	store   port.BudgetStore
	cache   port.Cache[domain.BudgetState]
	metrics *observability.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]domain.BudgetState // edited but not yet persisted
	saver   *debounce.Saver
}

// NewBudgetService creates the budget service with all dependencies injected.
func NewBudgetService(
	store port.BudgetStore,
	cache port.Cache[domain.BudgetState],
	saveDebounce time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *BudgetService {
	s := &BudgetService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		pending: make(map[string]domain.BudgetState),
	}
	s.saver = debounce.New(saveDebounce, s.flush)
	return s
}

// Load returns the user's canonical state: unsaved edits first, then cache,
// then the store. A user with no document yet gets the seed state, which is
// queued for persistence immediately.
func (s *BudgetService) Load(ctx context.Context, userID string) (domain.BudgetState, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.Load")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	s.mu.Lock()
	if state, ok := s.pending[userID]; ok {
		s.mu.Unlock()
		return state, nil
	}
	s.mu.Unlock()

	if state, ok := s.cache.Get(userID); ok {
		s.metrics.IncrCacheHit("budget")
		return state, nil
	}
	s.metrics.IncrCacheMiss("budget")

	state, err := s.store.GetBudget(ctx, userID)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			seed := engine.SeedState()
			s.logger.Info("seeding budget for first load", zap.String("user_id", userID))
			s.commit(userID, seed)
			return seed, nil
		}
		return domain.BudgetState{}, err
	}

	s.cache.Set(userID, *state)
	return *state, nil
}

// View returns the full derived picture: state, aggregates, weekly
// projection and insights, recomputed in full.
func (s *BudgetService) View(ctx context.Context, userID string) (engine.View, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.View")
	defer span.End()

	state, err := s.Load(ctx, userID)
	if err != nil {
		return engine.View{}, err
	}
	return engine.Snapshot(state), nil
}

// ApplyPatch normalizes and applies a partial update, then returns the
// recomputed view.
func (s *BudgetService) ApplyPatch(ctx context.Context, userID string, patch domain.BudgetPatch) (engine.View, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.ApplyPatch")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("apply_patch", time.Since(start)) }()

	state, err := s.Load(ctx, userID)
	if err != nil {
		return engine.View{}, err
	}

	next := engine.ApplyUpdate(state, patch)
	s.commit(userID, next)
	return engine.Snapshot(next), nil
}

// ApplyActions applies explicit local action tags ("clear_bills", ...).
// Unknown tags are rejected.
func (s *BudgetService) ApplyActions(ctx context.Context, userID string, tags []string) (engine.View, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.ApplyActions")
	defer span.End()

	actions := engine.ActionSet{}
	for _, tag := range tags {
		action, ok := engine.ParseAction(tag)
		if !ok {
			return engine.View{}, &domain.ErrValidation{Field: "actions", Message: "unknown action: " + tag}
		}
		actions[action] = true
	}
	if len(actions) == 0 {
		return engine.View{}, &domain.ErrValidation{Field: "actions", Message: "at least one action is required"}
	}

	return s.applyActions(ctx, userID, actions)
}

// RunCommand classifies a free-text command ("reset everything") against
// the fixed phrase table and applies the matched actions. Unrecognized or
// negated commands are rejected rather than guessed at.
func (s *BudgetService) RunCommand(ctx context.Context, userID, command string) (engine.View, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.RunCommand")
	defer span.End()

	actions, ok := engine.ParseLocalCommand(command)
	if !ok {
		return engine.View{}, &domain.ErrValidation{Field: "command", Message: "not a recognized local command"}
	}
	return s.applyActions(ctx, userID, actions)
}

func (s *BudgetService) applyActions(ctx context.Context, userID string, actions engine.ActionSet) (engine.View, error) {
	state, err := s.Load(ctx, userID)
	if err != nil {
		return engine.View{}, err
	}

	next := engine.ApplyLocalAction(state, actions)
	s.commit(userID, next)

	s.logger.Info("local actions applied",
		zap.String("user_id", userID),
		zap.Int("action_count", len(actions)),
	)
	return engine.Snapshot(next), nil
}

// ImportBills parses pasted bill text and merges the extracted pairs into
// the budget. Input that yields fewer than two pairs is rejected so prose
// never turns into a phantom bill.
func (s *BudgetService) ImportBills(ctx context.Context, userID, text string) (engine.View, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.ImportBills")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return engine.View{}, &domain.ErrValidation{Field: "text", Message: "required"}
	}

	lines := engine.ParseBillText(text)
	if lines == nil {
		return engine.View{}, &domain.ErrValidation{Field: "text", Message: "could not find at least two bill lines"}
	}

	state, err := s.Load(ctx, userID)
	if err != nil {
		return engine.View{}, err
	}

	next := engine.MergeParsedBills(state, lines)
	s.commit(userID, next)

	s.logger.Info("bills imported",
		zap.String("user_id", userID),
		zap.Int("parsed_lines", len(lines)),
	)
	return engine.Snapshot(next), nil
}

// AddCategory adds a single category, rejecting duplicates by name.
func (s *BudgetService) AddCategory(ctx context.Context, userID string, cat domain.BudgetCategory) (engine.View, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.AddCategory")
	defer span.End()

	if strings.TrimSpace(cat.Name) == "" {
		return engine.View{}, &domain.ErrValidation{Field: "name", Message: "required"}
	}

	state, err := s.Load(ctx, userID)
	if err != nil {
		return engine.View{}, err
	}
	if state.HasCategory(cat.Name) {
		return engine.View{}, &domain.ErrDuplicate{Resource: "category", Name: cat.Name}
	}

	next := state.Clone()
	next.Categories = append(next.Categories, cat)
	s.commit(userID, next)
	return engine.Snapshot(next), nil
}

// AddGoal adds a single goal, rejecting duplicates by name.
func (s *BudgetService) AddGoal(ctx context.Context, userID string, goal domain.BudgetGoal) (engine.View, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.AddGoal")
	defer span.End()

	if strings.TrimSpace(goal.Name) == "" {
		return engine.View{}, &domain.ErrValidation{Field: "name", Message: "required"}
	}

	state, err := s.Load(ctx, userID)
	if err != nil {
		return engine.View{}, err
	}
	if state.HasGoal(goal.Name) {
		return engine.View{}, &domain.ErrDuplicate{Resource: "goal", Name: goal.Name}
	}

	next := state.Clone()
	next.Goals = append(next.Goals, goal)
	s.commit(userID, next)
	return engine.Snapshot(next), nil
}

// AddLabel adds a label, rejecting duplicates.
func (s *BudgetService) AddLabel(ctx context.Context, userID, label string) (engine.View, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.AddLabel")
	defer span.End()

	if strings.TrimSpace(label) == "" {
		return engine.View{}, &domain.ErrValidation{Field: "label", Message: "required"}
	}

	state, err := s.Load(ctx, userID)
	if err != nil {
		return engine.View{}, err
	}
	if state.HasLabel(label) {
		return engine.View{}, &domain.ErrDuplicate{Resource: "label", Name: label}
	}

	next := state.Clone()
	next.Labels = append(next.Labels, strings.TrimSpace(label))
	s.commit(userID, next)
	return engine.Snapshot(next), nil
}

// UpcomingBills resolves every bill to a concrete due date relative to ref.
// Bills with no resolvable date are omitted.
func (s *BudgetService) UpcomingBills(ctx context.Context, userID string, ref time.Time) ([]domain.UpcomingBill, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.UpcomingBills")
	defer span.End()

	state, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return resolveUpcoming(state, ref), nil
}

// resolveUpcoming is shared with the reminder batch job so both derive the
// exact same due dates from the same inputs.
func resolveUpcoming(state domain.BudgetState, ref time.Time) []domain.UpcomingBill {
	lead := state.NotificationReminderDays
	out := make([]domain.UpcomingBill, 0, len(state.Bills))
	for _, b := range state.Bills {
		due, ok := engine.ResolveDueDate(b, ref)
		if !ok {
			continue
		}
		out = append(out, domain.UpcomingBill{
			Name:     b.Name,
			Amount:   b.Amount,
			DueDate:  due.Format("2006-01-02"),
			DaysOut:  engine.DaysUntil(due, ref),
			LeadDays: lead,
		})
	}
	return out
}

// commit records the new canonical state and schedules a debounced save.
// A fresh edit inside the quiet window supersedes the pending write.
func (s *BudgetService) commit(userID string, state domain.BudgetState) {
	s.mu.Lock()
	s.pending[userID] = state
	s.mu.Unlock()

	s.cache.Set(userID, state)
	s.saver.Trigger(userID)
}

// flush persists the latest pending state for a user. On failure the
// in-memory state is kept; the save indicator just goes back to idle and
// the next edit retriggers persistence.
func (s *BudgetService) flush(userID string) {
	s.mu.Lock()
	state, ok := s.pending[userID]
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.store.UpsertBudget(ctx, userID, state); err != nil {
		s.metrics.IncrSave("error")
		s.metrics.IncrExternalError("supabase")
		s.logger.Warn("budget save failed, keeping local state",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	// Only clear if no newer edit replaced the state while saving.
	if current, ok := s.pending[userID]; ok && reflect.DeepEqual(current, state) {
		delete(s.pending, userID)
	}
	s.mu.Unlock()

	s.metrics.IncrSave("ok")
	s.logger.Debug("budget saved", zap.String("user_id", userID))
}

// Flush forces all pending writes synchronously. Called on shutdown.
func (s *BudgetService) Flush() {
	s.saver.FlushAll()
}

// Ping exposes store health for /healthz.
func (s *BudgetService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
