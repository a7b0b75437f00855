package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// statusError is a non-2xx answer from the ledger.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// callerError is a request abandoned because the caller's context ended.
type callerError struct {
	err error
}

func (e *callerError) Error() string { return e.err.Error() }

func (e *callerError) Unwrap() error { return e.err }

// HTTPClient talks to the account ledger over REST:
//
//	GET  {base}/accounts/{id}/balance
//	POST {base}/accounts/{id}/debit   {"amount": n}
//	POST {base}/accounts/{id}/credit  {"amount": n}
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPClient creates a ledger client. Every request is bounded by timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, breaker BreakerConfig) *HTTPClient {
	return &HTTPClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		breaker:    newBreaker("ledger", breaker),
	}
}

type amountRequest struct {
	Amount json.Number `json:"amount"`
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// GetBalance reads the current balance of the account.
// The ledger may answer with a bare number or with {"balance": n}.
func (c *HTTPClient) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	body, err := c.do(ctx, http.MethodGet, accountID, "balance", nil)
	if err != nil {
		return decimal.Zero, unavailable("get balance of", accountID, err)
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var resp balanceResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return decimal.Zero, unavailable("decode balance of", accountID, err)
		}
		return resp.Balance, nil
	}

	var balance decimal.Decimal
	if err := balance.UnmarshalJSON(body); err != nil {
		return decimal.Zero, unavailable("decode balance of", accountID, err)
	}
	return balance, nil
}

// Debit removes amount from the account.
func (c *HTTPClient) Debit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if _, err := c.do(ctx, http.MethodPost, accountID, "debit", amountRequest{Amount: json.Number(amount.String())}); err != nil {
		return unavailable("debit", accountID, err)
	}
	return nil
}

// Credit adds amount to the account.
func (c *HTTPClient) Credit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if _, err := c.do(ctx, http.MethodPost, accountID, "credit", amountRequest{Amount: json.Number(amount.String())}); err != nil {
		return unavailable("credit", accountID, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, accountID, action string, payload any) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/%s", c.BaseURL, url.PathEscape(accountID), action)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reqBody io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request: %w", err)
			}
			reqBody = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &callerError{err: err}
			}
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.WarnContext(ctx, "ledger call rejected by circuit breaker", "account_id", accountID, "action", action)
		}
		return nil, err
	}
	return result.([]byte), nil
}

func unavailable(op, accountID string, err error) error {
	return fmt.Errorf("failed to %s account %s: %w: %w", op, accountID, ErrUnavailable, err)
}

var _ Client = (*HTTPClient)(nil)
