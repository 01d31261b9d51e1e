package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/engine"
	"github.com/aleixoc/budget-copilot-go/internal/infra/observability"
	"github.com/aleixoc/budget-copilot-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var assistantTracer = otel.Tracer("service/assistant")

// AssistantService runs the copilot conversation and the two-phase apply:
// the agent only ever produces a pending proposal; canonical state changes
// exclusively on explicit confirmation, through the normalizer.
type AssistantService struct {
	agent   port.AgentCaller
	budgets *BudgetService
	metrics *observability.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*domain.Proposal // at most one live proposal per user
}

// NewAssistantService creates the assistant service.
func NewAssistantService(
	agent port.AgentCaller,
	budgets *BudgetService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AssistantService {
	return &AssistantService{
		agent:   agent,
		budgets: budgets,
		metrics: metrics,
		logger:  logger,
		pending: make(map[string]*domain.Proposal),
	}
}

// Chat sends one conversation turn to the agent with the current budget
// snapshot and stages any suggested updates as a pending proposal.
// Issuing a new chat turn discards a previously pending proposal: the
// newest user intent wins, with no partial apply of the old one.
func (a *AssistantService) Chat(ctx context.Context, userID string, messages []domain.ChatMessage) (*domain.ChatResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := assistantTracer.Start(ctx, "AssistantService.Chat")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { a.metrics.RecordRequestDuration("assistant", time.Since(start)) }()

	if len(messages) == 0 {
		return nil, &domain.ErrValidation{Field: "messages", Message: "at least one message is required"}
	}

	state, err := a.budgets.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	a.discardPending(userID)

	resp, err := a.agent.Call(ctx, &domain.AgentRequest{
		UserID:   userID,
		Messages: messages,
		Budget:   state,
	})
	if err != nil {
		a.metrics.IncrExternalError("agent")
		a.metrics.IncrRequest("error")
		a.logger.Error("agent call failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}

	a.metrics.IncrRequest("success")
	a.metrics.RecordTokens(resp.TokensUsed.PromptTokens, resp.TokensUsed.CompletionTokens)

	patch := resp.Updates
	if patch == nil {
		// The model sometimes narrates its JSON instead of using the
		// structured field; recover it before giving up on updates.
		if extracted, ok := engine.ExtractPatch(resp.Reply); ok {
			patch = extracted
		}
	}

	result := &domain.ChatResult{Reply: resp.Reply}
	if patch != nil && !patch.IsEmpty() {
		proposal := &domain.Proposal{
			ID:        uuid.New().String(),
			Summary:   proposalSummary(resp),
			Patch:     *patch,
			Status:    domain.ProposalPending,
			CreatedAt: time.Now(),
		}
		a.mu.Lock()
		a.pending[userID] = proposal
		a.mu.Unlock()

		a.metrics.IncrProposal("staged")
		a.logger.Info("proposal staged",
			zap.String("user_id", userID),
			zap.String("proposal_id", proposal.ID),
		)
		result.Proposal = proposal
	}

	return result, nil
}

// Pending returns the live proposal for a user, or nil.
func (a *AssistantService) Pending(userID string) *domain.Proposal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending[userID]
}

// Confirm applies the pending proposal through the normalizer and returns
// the recomputed view.
func (a *AssistantService) Confirm(ctx context.Context, userID string) (engine.View, error) {
	ctx, span := assistantTracer.Start(ctx, "AssistantService.Confirm")
	defer span.End()

	a.mu.Lock()
	proposal := a.pending[userID]
	a.mu.Unlock()

	if proposal == nil {
		return engine.View{}, &domain.ErrNotFound{Resource: "proposal", ID: userID}
	}

	view, err := a.budgets.ApplyPatch(ctx, userID, proposal.Patch)
	if err != nil {
		return engine.View{}, err
	}

	a.mu.Lock()
	proposal.Status = domain.ProposalApplied
	delete(a.pending, userID)
	a.mu.Unlock()

	a.metrics.IncrProposal("applied")
	a.logger.Info("proposal applied",
		zap.String("user_id", userID),
		zap.String("proposal_id", proposal.ID),
	)
	return view, nil
}

// Discard drops the pending proposal without touching state.
func (a *AssistantService) Discard(userID string) error {
	a.mu.Lock()
	proposal := a.pending[userID]
	a.mu.Unlock()

	if proposal == nil {
		return &domain.ErrNotFound{Resource: "proposal", ID: userID}
	}
	a.discardPending(userID)
	return nil
}

func (a *AssistantService) discardPending(userID string) {
	a.mu.Lock()
	proposal := a.pending[userID]
	if proposal != nil {
		proposal.Status = domain.ProposalDiscarded
		delete(a.pending, userID)
	}
	a.mu.Unlock()

	if proposal != nil {
		a.metrics.IncrProposal("discarded")
		a.logger.Debug("proposal discarded",
			zap.String("user_id", userID),
			zap.String("proposal_id", proposal.ID),
		)
	}
}

func proposalSummary(resp *domain.AgentResponse) string {
	if s := strings.TrimSpace(resp.Summary); s != "" {
		return s
	}
	return "Suggested budget changes"
}
