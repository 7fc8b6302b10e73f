package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/perch-finance/perch/internal/config"
	"github.com/perch-finance/perch/internal/logger"
)

// APIError is a non-2xx venue response, surfaced with status and body so
// callers can turn it into an actionable message.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("venue returned %d: %s", e.Status, e.Body)
}

// Client talks to the custodial brokerage venue over HTTPS+JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.VenueTimeout()},
		baseURL:    strings.TrimSuffix(cfg.Venue.BaseURL, "/"),
		apiKey:     cfg.Venue.APIKey,
		logger:     log,
	}
}

func (c *Client) GetInstrumentBySymbol(ctx context.Context, symbol string) (*Instrument, error) {
	var inst Instrument
	path := "/api/v1/instruments?symbol=" + url.QueryEscape(strings.ToUpper(symbol))
	if err := c.do(ctx, http.MethodGet, path, nil, &inst); err != nil {
		return nil, fmt.Errorf("get instrument %s: %w", symbol, err)
	}
	if inst.ID == "" {
		return nil, fmt.Errorf("get instrument %s: venue returned no instrument id", symbol)
	}
	return &inst, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var acct Account
	path := "/api/v1/accounts/" + url.PathEscape(accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &acct); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

// BuyingPower satisfies the pipeline's account reader.
func (c *Client) BuyingPower(ctx context.Context, accountID string) (float64, error) {
	acct, err := c.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acct.BuyingPower.InexactFloat64(), nil
}

// PrepareOrder asks the venue to quote a proxied order. The response
// carries two typed-data payloads and a strict deadline; an order that
// is not submitted before the deadline is void.
func (c *Client) PrepareOrder(ctx context.Context, req PrepareOrderRequest) (*PreparedOrder, error) {
	var prepared PreparedOrder
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders/prepare", req, &prepared); err != nil {
		return nil, fmt.Errorf("prepare order: %w", err)
	}
	if err := validatePrepared(&prepared); err != nil {
		return nil, fmt.Errorf("prepare order: %w", err)
	}
	return &prepared, nil
}

// SubmitOrder submits both signatures against a prepared order. The
// venue rejects expired or already-consumed prepared orders; the client
// never retries.
func (c *Client) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*OrderRequestRecord, error) {
	var record OrderRequestRecord
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders/submit", req, &record); err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	if record.Status == "" {
		return nil, fmt.Errorf("submit order: venue returned no status")
	}
	return &record, nil
}

// validatePrepared fails closed: a prepare response missing the id, the
// deadline or either typed-data payload is an error, never a default.
func validatePrepared(p *PreparedOrder) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("venue returned no prepared order id")
	}
	if p.Deadline.IsZero() {
		return fmt.Errorf("venue returned no deadline")
	}
	if p.Deadline.Before(time.Now()) {
		return fmt.Errorf("venue returned an already-expired deadline %s", p.Deadline.Format(time.RFC3339))
	}
	if p.Permit.PrimaryType == "" || len(p.Permit.Message) == 0 {
		return fmt.Errorf("venue returned no permit payload")
	}
	if p.Order.PrimaryType == "" || len(p.Order.Message) == 0 {
		return fmt.Errorf("venue returned no order payload")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("venue request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read venue response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode venue response: %w", err)
		}
	}
	return nil
}

// DecimalFromDollars keeps quantity construction in one place so the
// pipeline does not re-derive venue precision rules.
func DecimalFromDollars(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}
