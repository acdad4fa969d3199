package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"eventpos/internal/config"
	"eventpos/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	configPath          = "/config"
	checkSalePath       = "/order/check-sale"
	bookSalePath        = "/order/book-sale"
	checkTicketScanPath = "/order/check-ticket-scan"
	checkTicketSalePath = "/order/check-ticket-sale"
	bookTicketSalePath  = "/order/book-ticket-sale"
)

var (
	ErrMissingURL   = errors.New("core url is required")
	ErrMissingToken = errors.New("terminal token is required")
	ErrRateLimited  = errors.New("terminal api rate limited")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("terminal api error: %s: %s", e.Status, e.Message)
	case e.Body != "":
		return fmt.Sprintf("terminal api error: %s: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("terminal api error: %s", e.Status)
	}
}

// UserMessage is the backend's explanation, fit for the status line.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Client talks to the event backend on behalf of one terminal. Book calls
// go through once, which is never configured to retry.
type Client struct {
	http    *resty.Client
	once    *resty.Client
	baseURL string
	logger  *zap.Logger
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.CoreURL), "/")
	httpClient := newRestyClient(baseURL, cfg).
		SetRetryCount(1).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		http:    httpClient,
		once:    newRestyClient(baseURL, cfg),
		baseURL: baseURL,
		logger:  logger.Named("terminal"),
	}
}

func newRestyClient(baseURL string, cfg config.Config) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)

	if token := strings.TrimSpace(cfg.TerminalToken); token != "" {
		client.SetAuthScheme("Bearer")
		client.SetAuthToken(token)
	}
	return client
}

func (c *Client) TerminalConfig(ctx context.Context) (domain.TerminalConfig, error) {
	if err := c.ready(); err != nil {
		return domain.TerminalConfig{}, err
	}

	var cfg domain.TerminalConfig
	if err := c.doGet(ctx, configPath, &cfg); err != nil {
		return domain.TerminalConfig{}, err
	}
	return cfg, nil
}

func (c *Client) CheckSale(ctx context.Context, sale domain.NewSale) (domain.CheckedSale, error) {
	if err := c.ready(); err != nil {
		return domain.CheckedSale{}, err
	}

	var checked domain.CheckedSale
	if err := c.doPost(ctx, c.http, checkSalePath, sale, &checked); err != nil {
		return domain.CheckedSale{}, err
	}
	return checked, nil
}

func (c *Client) BookSale(ctx context.Context, sale domain.NewSale) (domain.CompletedSale, error) {
	if err := c.ready(); err != nil {
		return domain.CompletedSale{}, err
	}

	var completed domain.CompletedSale
	if err := c.doPost(ctx, c.once, bookSalePath, sale, &completed); err != nil {
		return domain.CompletedSale{}, err
	}
	return completed, nil
}

// CheckTicketScan resolves scanned tags to the tickets they would receive.
// Tags without a ticket are missing from the result.
func (c *Client) CheckTicketScan(ctx context.Context, uids []uint64) (map[uint64]domain.TicketInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	var resp ticketScanResponse
	if err := c.doPost(ctx, c.http, checkTicketScanPath, ticketScanRequest{CustomerTags: uids}, &resp); err != nil {
		return nil, err
	}

	tickets := make(map[uint64]domain.TicketInfo, len(resp.Tickets))
	for _, scanned := range resp.Tickets {
		tickets[scanned.CustomerTagUID] = scanned.Ticket
	}
	return tickets, nil
}

func (c *Client) CheckTicketSale(ctx context.Context, sale domain.NewTicketSale) (domain.CheckedTicketSale, error) {
	if err := c.ready(); err != nil {
		return domain.CheckedTicketSale{}, err
	}

	var checked domain.CheckedTicketSale
	if err := c.doPost(ctx, c.http, checkTicketSalePath, sale, &checked); err != nil {
		return domain.CheckedTicketSale{}, err
	}
	return checked, nil
}

func (c *Client) BookTicketSale(ctx context.Context, sale domain.NewTicketSale) (domain.CompletedTicketSale, error) {
	if err := c.ready(); err != nil {
		return domain.CompletedTicketSale{}, err
	}

	var completed domain.CompletedTicketSale
	if err := c.doPost(ctx, c.once, bookTicketSalePath, sale, &completed); err != nil {
		return domain.CompletedTicketSale{}, err
	}
	return completed, nil
}

func (c *Client) doGet(ctx context.Context, path string, result any) error {
	resp, err := c.http.R().SetContext(ctx).SetResult(result).Get(path)
	if err != nil {
		return fmt.Errorf("terminal request: %w", err)
	}
	c.logResponse(resp)
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}
	return nil
}

func (c *Client) doPost(ctx context.Context, client *resty.Client, path string, body, result any) error {
	resp, err := client.R().SetContext(ctx).SetBody(body).SetResult(result).Post(path)
	if err != nil {
		return fmt.Errorf("terminal request: %w", err)
	}
	c.logResponse(resp)
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}
	return nil
}

func (c *Client) logResponse(resp *resty.Response) {
	c.logger.Debug("terminal api call",
		zap.String("method", resp.Request.Method),
		zap.String("path", resp.Request.URL),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()),
	)
}

func (c *Client) ready() error {
	if c.baseURL == "" {
		return ErrMissingURL
	}
	if strings.TrimSpace(c.http.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

func apiErrorFromResponse(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       body,
		Message:    messageFromBody(body),
	}

	switch resp.StatusCode() {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, apiErr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, apiErr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, apiErr)
	default:
		return apiErr
	}
}

func messageFromBody(body string) string {
	var envelope errorBody
	if body == "" || json.Unmarshal([]byte(body), &envelope) != nil {
		return ""
	}
	if detail, ok := envelope.Detail.(string); ok && detail != "" {
		return detail
	}
	return strings.TrimSpace(envelope.Message)
}
