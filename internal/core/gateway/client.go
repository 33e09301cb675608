package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/techcsc21/paybridge/internal/core/config"
	"github.com/techcsc21/paybridge/internal/core/domain"
)

// Client drives the requery (status-poll) endpoint. Payment initiation never
// goes through it: that is a browser redirect to the gateway's hosted page.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		// Bounded timeout: a hung gateway must not block our status handlers.
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Requery asks the gateway for the current status of a payment. The request
// carries the same outbound signature scheme as intent creation. Transport
// failures, timeouts and non-2xx answers all surface as ErrGatewayUnavailable;
// callers fall back to the last locally persisted status.
func (c *Client) Requery(ctx context.Context, refNo, amountMinor, currency string) (*Response, error) {
	form := url.Values{}
	form.Set("MerchantCode", c.cfg.MerchantCode)
	form.Set("RefNo", refNo)
	form.Set("Amount", amountMinor)
	form.Set("Currency", currency)
	form.Set("Signature", Sign(c.cfg.MerchantKey, c.cfg.MerchantCode, refNo, amountMinor, currency))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayRequeryURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build requery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: gateway returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	parsed, err := ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parse requery response: %w", err)
	}
	return parsed, nil
}
