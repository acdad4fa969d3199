package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"eventpos/internal/config"
	"eventpos/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const paymentsPath = "/payments"

const statusSuccessful = "successful"

var (
	ErrNotConfigured = errors.New("card payments are not configured")
	ErrDeclined      = errors.New("card payment declined")
)

type payRequest struct {
	AttemptID      string          `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	CustomerTagUID *uint64         `json:"customer_tag_uid,omitempty"`
}

type payResponse struct {
	AttemptID string          `json:"id"`
	Status    string          `json:"status"`
	Reference string          `json:"transaction_code"`
	Amount    decimal.Decimal `json:"amount"`
	Message   string          `json:"message"`
}

// DeclineError carries the bridge's reason for a failed payment.
type DeclineError struct {
	AttemptID string
	Status    string
	Message   string
}

func (e *DeclineError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment %s: %s", e.AttemptID, e.Status)
	}
	return fmt.Sprintf("payment %s: %s: %s", e.AttemptID, e.Status, e.Message)
}

func (e *DeclineError) UserMessage() string {
	return e.Message
}

// Client drives the card reader through the local payment bridge. Without a
// bridge url it stays disabled and every payment fails with ErrNotConfigured.
type Client struct {
	http    *resty.Client
	logger  *zap.Logger
	enabled bool
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	logger = logger.Named("payment")
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.PaymentURL), "/")

	if baseURL == "" {
		logger.Warn("payment bridge url is not set; card payments will be disabled")
		return &Client{logger: logger}
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if token := strings.TrimSpace(cfg.PaymentToken); token != "" {
		httpClient.SetAuthScheme("Bearer")
		httpClient.SetAuthToken(token)
	}

	return &Client{
		http:    httpClient,
		logger:  logger,
		enabled: true,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Pay charges amount for one payment attempt. A payment is never retried
// here; a new attempt needs a new attempt id.
func (c *Client) Pay(ctx context.Context, amount decimal.Decimal, attemptID string, tag *domain.CustomerTag) (domain.PaymentConfirmation, error) {
	if !c.Enabled() || c.http == nil {
		return domain.PaymentConfirmation{}, ErrNotConfigured
	}

	req := payRequest{AttemptID: attemptID, Amount: amount}
	if tag != nil {
		uid := tag.UID
		req.CustomerTagUID = &uid
	}

	c.logger.Info("starting card payment",
		zap.String("attempt_id", attemptID),
		zap.String("amount", amount.StringFixed(2)),
	)

	var result payResponse
	resp, err := c.http.R().SetContext(ctx).SetBody(req).SetResult(&result).Post(paymentsPath)
	if err != nil {
		return domain.PaymentConfirmation{}, fmt.Errorf("payment request: %w", err)
	}
	if resp.IsError() {
		return domain.PaymentConfirmation{}, bridgeError(resp, attemptID)
	}
	if result.Status != statusSuccessful {
		return domain.PaymentConfirmation{}, fmt.Errorf("%w: %w", ErrDeclined, &DeclineError{
			AttemptID: attemptID,
			Status:    result.Status,
			Message:   result.Message,
		})
	}

	confirmed := result.Amount
	if confirmed.IsZero() {
		confirmed = amount
	}
	return domain.PaymentConfirmation{
		AttemptID: attemptID,
		Reference: result.Reference,
		Amount:    confirmed,
	}, nil
}

func bridgeError(resp *resty.Response, attemptID string) error {
	body := strings.TrimSpace(resp.String())
	if resp.StatusCode() == http.StatusPaymentRequired {
		return fmt.Errorf("%w: %w", ErrDeclined, &DeclineError{
			AttemptID: attemptID,
			Status:    resp.Status(),
			Message:   body,
		})
	}
	if body == "" {
		return fmt.Errorf("payment bridge error: %s", resp.Status())
	}
	return fmt.Errorf("payment bridge error: %s: %s", resp.Status(), body)
}
