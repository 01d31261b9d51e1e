package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/engine"
	"github.com/aleixoc/budget-copilot-go/internal/handler"
	"github.com/aleixoc/budget-copilot-go/internal/infra/cache"
	"github.com/aleixoc/budget-copilot-go/internal/infra/client"
	"github.com/aleixoc/budget-copilot-go/internal/infra/observability"
	"github.com/aleixoc/budget-copilot-go/internal/infra/resilience"
	"github.com/aleixoc/budget-copilot-go/internal/infra/supabase"
	"github.com/aleixoc/budget-copilot-go/internal/service"

	"go.uber.org/zap"
)

// budgetTable is an in-memory stand-in for the budget_states table behind
// the PostgREST mock.
type budgetTable struct {
	mu      sync.Mutex
	rows    map[string]domain.BudgetState
	upserts int
}

func newMockSupabase(table *budgetTable) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/rest/v1/budget_states") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		table.mu.Lock()
		defer table.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			if filter := r.URL.Query().Get("user_id"); filter != "" {
				userID := strings.TrimPrefix(filter, "eq.")
				doc, ok := table.rows[userID]
				if !ok {
					w.Write([]byte("[]"))
					return
				}
				json.NewEncoder(w).Encode([]map[string]any{
					{"user_id": userID, "doc": doc},
				})
				return
			}
			// select=user_id listing
			out := make([]map[string]string, 0, len(table.rows))
			for id := range table.rows {
				out = append(out, map[string]string{"user_id": id})
			}
			json.NewEncoder(w).Encode(out)
		case http.MethodPost:
			var rows []struct {
				UserID string             `json:"user_id"`
				Doc    domain.BudgetState `json:"doc"`
			}
			if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			for _, row := range rows {
				table.rows[row.UserID] = row.Doc
				table.upserts++
			}
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

func buildRouter(t *testing.T, supaURL, agentURL string) (http.Handler, *service.BudgetService) {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("integration")
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 5 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	store := supabase.NewClient(httpClient, supaURL, "anon-key", "service-key", cb, cfg, logger)
	agent := client.NewAgentClient(httpClient, agentURL, cb, cfg)

	// Long debounce: persistence in tests happens only via an explicit Flush.
	budgetSvc := service.NewBudgetService(store, cache.New[domain.BudgetState](time.Minute), time.Hour, metrics, logger)
	assistantSvc := service.NewAssistantService(agent, budgetSvc, metrics, logger)

	return handler.NewRouter(budgetSvc, assistantSvc, "", metrics, logger), budgetSvc
}

func doRequest(t *testing.T, router http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_FullFlow runs the whole lifecycle against mock external
// services: first load seeds a document, a manual edit updates it, a chat
// turn stages a proposal, and confirming the proposal lands in the store.
func TestIntegration_FullFlow(t *testing.T) {
	table := &budgetTable{rows: make(map[string]domain.BudgetState)}
	supaServer := newMockSupabase(table)
	defer supaServer.Close()

	agentServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		income := domain.FlexFloat(2600)
		resp := domain.AgentResponse{
			Reply:   "Raising your paycheck figure to $2,600 as requested.",
			Summary: "Set income per paycheck to 2600",
			Updates: &domain.BudgetPatch{
				IncomePerPaycheck: &income,
			},
			TokensUsed: domain.TokenUsage{PromptTokens: 500, CompletionTokens: 120, TotalTokens: 620},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer agentServer.Close()

	router, budgetSvc := buildRouter(t, supaServer.URL, agentServer.URL)
	const userID = "user-integration-1"

	// First load: no document yet, so the seed state comes back.
	rec := doRequest(t, router, http.MethodGet, "/v1/budget", userID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET budget: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var view engine.View
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if view.State.PayFrequency != domain.PayBiweekly {
		t.Errorf("seed state: expected biweekly pay frequency, got %q", view.State.PayFrequency)
	}

	// Manual edit through the normalizer.
	patch := map[string]any{
		"incomePerPaycheck": "$2,100",
		"bills": []map[string]any{
			{"name": "Rent", "date": "2026-09-01", "amount": 1200},
			{"name": "Phone plan", "amount": 80, "recurringDay": 15},
		},
	}
	rec = doRequest(t, router, http.MethodPut, "/v1/budget", userID, patch)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT budget: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if view.State.IncomePerPaycheck != 2100 {
		t.Errorf("expected income 2100 after update, got %v", view.State.IncomePerPaycheck)
	}
	if len(view.State.Bills) != 2 {
		t.Fatalf("expected 2 bills, got %d", len(view.State.Bills))
	}
	// Each bill gets a tracking category alongside it.
	if !view.State.HasCategory("Rent") || !view.State.HasCategory("Phone plan") {
		t.Error("expected tracking categories for imported bills")
	}

	// Chat turn: agent suggests a patch, which is only staged.
	chatBody := domain.ChatRequest{Messages: []domain.ChatMessage{
		{Role: "user", Content: "my paycheck went up to 2600"},
	}}
	rec = doRequest(t, router, http.MethodPost, "/v1/assistant/chat", userID, chatBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST chat: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var chatResult domain.ChatResult
	if err := json.NewDecoder(rec.Body).Decode(&chatResult); err != nil {
		t.Fatalf("failed to decode chat result: %v", err)
	}
	if chatResult.Proposal == nil {
		t.Fatal("expected a staged proposal from the chat turn")
	}
	if chatResult.Proposal.Status != domain.ProposalPending {
		t.Errorf("expected pending proposal, got %q", chatResult.Proposal.Status)
	}

	// Canonical state is untouched until the user confirms.
	rec = doRequest(t, router, http.MethodGet, "/v1/budget", userID, nil)
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if view.State.IncomePerPaycheck != 2100 {
		t.Errorf("staged proposal leaked into state: income %v", view.State.IncomePerPaycheck)
	}

	// Confirm applies the staged patch.
	rec = doRequest(t, router, http.MethodPost, "/v1/assistant/proposal/confirm", userID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST confirm: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if view.State.IncomePerPaycheck != 2600 {
		t.Errorf("expected income 2600 after confirm, got %v", view.State.IncomePerPaycheck)
	}

	// Flush writes the final document to the store.
	budgetSvc.Flush()
	table.mu.Lock()
	stored, ok := table.rows[userID]
	table.mu.Unlock()
	if !ok {
		t.Fatal("expected a stored document after flush")
	}
	if stored.IncomePerPaycheck != 2600 {
		t.Errorf("stored document: expected income 2600, got %v", stored.IncomePerPaycheck)
	}
	if len(stored.Bills) != 2 {
		t.Errorf("stored document: expected 2 bills, got %d", len(stored.Bills))
	}
}

// TestIntegration_StoreUnavailable checks that a broken document store maps
// to 502 for a user with no cached state.
func TestIntegration_StoreUnavailable(t *testing.T) {
	supaServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer supaServer.Close()

	agentServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.AgentResponse{Reply: "ok"})
	}))
	defer agentServer.Close()

	router, _ := buildRouter(t, supaServer.URL, agentServer.URL)

	rec := doRequest(t, router, http.MethodGet, "/v1/budget", "user-int-down", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when the store is down, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}

// TestIntegration_AgentUnavailable checks that an unreachable agent maps to
// 502 while the budget document stays serveable.
func TestIntegration_AgentUnavailable(t *testing.T) {
	table := &budgetTable{rows: make(map[string]domain.BudgetState)}
	supaServer := newMockSupabase(table)
	defer supaServer.Close()

	agentServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer agentServer.Close()

	router, _ := buildRouter(t, supaServer.URL, agentServer.URL)
	const userID = "user-int-agent-down"

	chatBody := domain.ChatRequest{Messages: []domain.ChatMessage{
		{Role: "user", Content: "hello"},
	}}
	rec := doRequest(t, router, http.MethodPost, "/v1/assistant/chat", userID, chatBody)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when the agent is down, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// Budget endpoints keep working.
	rec = doRequest(t, router, http.MethodGet, "/v1/budget", userID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for budget while agent is down, got %d", rec.Code)
	}
}
