package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPClient asks the fraud service GET {base}/api/fraud/{deposit|withdraw}?accountNumber=&amount=,
// which answers with a JSON boolean.
type HTTPClient struct {
	BaseURL    string
	Policy     Policy
	HTTPClient *http.Client
}

// NewHTTPClient creates a fraud client applying policy when the service fails.
func NewHTTPClient(baseURL string, policy Policy, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Policy:     policy,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Allow returns the service verdict. Service failures resolve to the policy and are not returned as errors.
func (c *HTTPClient) Allow(ctx context.Context, op Operation, accountID string, amount decimal.Decimal) (bool, error) {
	allowed, err := c.call(ctx, op, accountID, amount)
	if err != nil {
		fallback := c.Policy != FailClosed
		slog.ErrorContext(ctx, "fraud check failed", "operation", op, "account_id", accountID, "policy", c.Policy, "allowed", fallback, "error", err)
		return fallback, nil
	}

	slog.DebugContext(ctx, "fraud check", "operation", op, "account_id", accountID, "amount", amount.String(), "allowed", allowed)
	return allowed, nil
}

func (c *HTTPClient) call(ctx context.Context, op Operation, accountID string, amount decimal.Decimal) (bool, error) {
	query := url.Values{}
	query.Set("accountNumber", accountID)
	query.Set("amount", amount.String())
	endpoint := fmt.Sprintf("%s/api/fraud/%s?%s", c.BaseURL, op, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// A null body means "not allowed".
	var allowed *bool
	if err := json.NewDecoder(resp.Body).Decode(&allowed); err != nil {
		return false, fmt.Errorf("failed to decode verdict: %w", err)
	}
	return allowed != nil && *allowed, nil
}

var (
	_ Checker = (*HTTPClient)(nil)
	_ Checker = AllowAll{}
)
