package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/infra/observability"

	"go.uber.org/zap"
)

type mockReminderLog struct {
	entries []domain.ReminderLogEntry
}

func (m *mockReminderLog) Sent(ctx context.Context, userID, billName, dueDate string, leadDays int) (bool, error) {
	for _, e := range m.entries {
		if e.UserID == userID && e.BillName == billName && e.DueDate == dueDate && e.LeadDays == leadDays {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReminderLog) Record(ctx context.Context, entry domain.ReminderLogEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

type mockMailer struct {
	sent []string // "userID/billName"
	err  error
}

func (m *mockMailer) SendReminder(ctx context.Context, userID string, bill domain.UpcomingBill) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, fmt.Sprintf("%s/%s", userID, bill.Name))
	return nil
}

func newTestReminderService(store *mockStore, log *mockReminderLog, mailer *mockMailer) *ReminderService {
	return NewReminderService(store, log, mailer, 4, observability.NewMetrics(), zap.NewNop())
}

func TestReminderRunSendsAtLeadDays(t *testing.T) {
	now := time.Date(2024, time.March, 22, 0, 0, 0, 0, time.UTC)

	store := newMockStore()
	store.budgets["user-1"] = domain.BudgetState{
		NotificationsEnabled:     true,
		NotificationReminderDays: 3,
		Bills: []domain.BudgetBill{
			{Name: "Rent", Date: "2024-03-25", Amount: 1200},  // exactly 3 days out
			{Name: "Phone", Date: "2024-03-23", Amount: 80},   // 1 day out, not lead
			{Name: "Misc", Date: domain.UnscheduledDate, Amount: 10},
		},
	}

	log := &mockReminderLog{}
	mailer := &mockMailer{}
	svc := newTestReminderService(store, log, mailer)

	if err := svc.Run(context.Background(), now); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(mailer.sent) != 1 || mailer.sent[0] != "user-1/Rent" {
		t.Fatalf("expected one rent reminder, got %v", mailer.sent)
	}
	if len(log.entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(log.entries))
	}
	entry := log.entries[0]
	if entry.BillName != "Rent" || entry.DueDate != "2024-03-25" || entry.LeadDays != 3 {
		t.Errorf("unexpected log entry: %+v", entry)
	}
	if entry.ID == "" {
		t.Errorf("expected a generated entry ID")
	}
}

func TestReminderRunSendsEastOfUTC(t *testing.T) {
	// Mid-morning in a zone ahead of UTC: the lead-day match must count
	// local calendar days, not 24h blocks from a UTC day boundary.
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, time.March, 22, 10, 0, 0, 0, loc)

	store := newMockStore()
	store.budgets["user-1"] = domain.BudgetState{
		NotificationsEnabled:     true,
		NotificationReminderDays: 3,
		Bills:                    []domain.BudgetBill{{Name: "Rent", Date: "2024-03-25", Amount: 1200}},
	}

	log := &mockReminderLog{}
	mailer := &mockMailer{}
	svc := newTestReminderService(store, log, mailer)

	if err := svc.Run(context.Background(), now); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(mailer.sent) != 1 || mailer.sent[0] != "user-1/Rent" {
		t.Fatalf("expected the rent reminder exactly three local days out, got %v", mailer.sent)
	}
}

func TestReminderRunIsIdempotent(t *testing.T) {
	now := time.Date(2024, time.March, 22, 0, 0, 0, 0, time.UTC)

	store := newMockStore()
	store.budgets["user-1"] = domain.BudgetState{
		NotificationsEnabled:     true,
		NotificationReminderDays: 3,
		Bills:                    []domain.BudgetBill{{Name: "Rent", Date: "2024-03-25", Amount: 1200}},
	}

	log := &mockReminderLog{}
	mailer := &mockMailer{}
	svc := newTestReminderService(store, log, mailer)

	for i := 0; i < 3; i++ {
		if err := svc.Run(context.Background(), now); err != nil {
			t.Fatalf("run %d: expected no error, got %v", i, err)
		}
	}

	if len(mailer.sent) != 1 {
		t.Errorf("expected exactly one send across repeated runs, got %d", len(mailer.sent))
	}
}

func TestReminderRunSkipsDisabledUsers(t *testing.T) {
	now := time.Date(2024, time.March, 22, 0, 0, 0, 0, time.UTC)

	store := newMockStore()
	store.budgets["user-1"] = domain.BudgetState{
		NotificationsEnabled:     false,
		NotificationReminderDays: 3,
		Bills:                    []domain.BudgetBill{{Name: "Rent", Date: "2024-03-25", Amount: 1200}},
	}
	store.budgets["user-2"] = domain.BudgetState{
		NotificationsEnabled:     true,
		NotificationReminderDays: 3,
		Bills:                    []domain.BudgetBill{{Name: "Internet", Date: "2024-03-25", Amount: 60}},
	}

	log := &mockReminderLog{}
	mailer := &mockMailer{}
	svc := newTestReminderService(store, log, mailer)

	if err := svc.Run(context.Background(), now); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(mailer.sent) != 1 || mailer.sent[0] != "user-2/Internet" {
		t.Errorf("expected only the enabled user's reminder, got %v", mailer.sent)
	}
}

func TestReminderRunSurvivesPerUserFailure(t *testing.T) {
	now := time.Date(2024, time.March, 22, 0, 0, 0, 0, time.UTC)

	store := newMockStore()
	store.budgets["user-1"] = domain.BudgetState{
		NotificationsEnabled:     true,
		NotificationReminderDays: 3,
		Bills:                    []domain.BudgetBill{{Name: "Rent", Date: "2024-03-25", Amount: 1200}},
	}

	log := &mockReminderLog{}
	mailer := &mockMailer{err: fmt.Errorf("smtp relay down")}
	svc := newTestReminderService(store, log, mailer)

	// A mailer failure is logged and skipped, not fatal to the batch.
	if err := svc.Run(context.Background(), now); err != nil {
		t.Fatalf("expected batch to continue past user failure, got %v", err)
	}
	if len(log.entries) != 0 {
		t.Errorf("expected no log entry for a failed send, got %d", len(log.entries))
	}
}
