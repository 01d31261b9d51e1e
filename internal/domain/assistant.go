package domain

import "time"

// ============================================================
// Copilot agent (external LLM service)
// ============================================================

// ChatMessage is one turn of the copilot conversation.
type ChatMessage struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// AgentRequest is the payload sent to the copilot agent service.
// The budget snapshot gives the model full context for its suggestions.
type AgentRequest struct {
	UserID   string        `json:"user_id"`
	Messages []ChatMessage `json:"messages"`
	Budget   BudgetState   `json:"budgetSnapshot"`
}

// AgentResponse is the structured reply from the copilot agent.
// Updates is untrusted input: it must pass through the normalizer before
// ever touching canonical state, and only after explicit user confirmation.
type AgentResponse struct {
	Reply      string       `json:"reply"`
	Summary    string       `json:"summary,omitempty"`
	Updates    *BudgetPatch `json:"updates,omitempty"`
	TokensUsed TokenUsage   `json:"tokens_used"`
}

// TokenUsage tracks LLM token consumption for cost monitoring.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ============================================================
// Proposals (two-phase apply)
// ============================================================

// ProposalStatus is the lifecycle of a staged update:
// pending -> applied | discarded.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalApplied   ProposalStatus = "applied"
	ProposalDiscarded ProposalStatus = "discarded"
)

// Proposal is a staged, unconfirmed patch awaiting explicit user
// confirmation. At most one proposal is live per user; a new chat turn
// discards the previous pending one.
type Proposal struct {
	ID        string         `json:"id"`
	Summary   string         `json:"summary"`
	Patch     BudgetPatch    `json:"patch"`
	Status    ProposalStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ChatResult is the service-level outcome of one chat turn.
type ChatResult struct {
	Reply    string    `json:"reply"`
	Proposal *Proposal `json:"proposal,omitempty"`
}

// ============================================================
// API request/response shapes
// ============================================================

// ChatRequest is the body of POST /v1/assistant/chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ActionRequest is the body of POST /v1/budget/actions: either explicit
// action tags or a raw command phrase to classify locally.
type ActionRequest struct {
	Actions []string `json:"actions,omitempty"`
	Command string   `json:"command,omitempty"`
}

// ImportRequest is the body of POST /v1/budget/bills/import.
type ImportRequest struct {
	Text string `json:"text"`
}
