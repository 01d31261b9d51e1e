package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// MailerClient posts reminder emails to the mail gateway. Actual delivery
// (templates, SMTP) lives on the other side of the webhook.
type MailerClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewMailerClient creates a new MailerClient.
func NewMailerClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *MailerClient {
	return &MailerClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

type reminderEmail struct {
	UserID   string  `json:"user_id"`
	BillName string  `json:"bill_name"`
	Amount   float64 `json:"amount"`
	DueDate  string  `json:"due_date"`
	LeadDays int     `json:"lead_days"`
}

// SendReminder delivers one bill reminder. Implements port.Mailer.
func (c *MailerClient) SendReminder(ctx context.Context, userID string, bill domain.UpcomingBill) error {
	ctx, span := tracer.Start(ctx, "MailerClient.SendReminder")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("bill.name", bill.Name),
	)

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(reminderEmail{
				UserID:   userID,
				BillName: bill.Name,
				Amount:   bill.Amount,
				DueDate:  bill.DueDate,
				LeadDays: bill.LeadDays,
			})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1/mail/reminders", c.baseURL)
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("mail gateway returned status %d", resp.StatusCode)
			}
			return nil
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "mailer", Err: err}
	}
	return nil
}
