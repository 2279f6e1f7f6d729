// Package sslcommerz provides the SSLCommerz hosted-payment integration:
// session initiation before the redirect and callback parsing after it.
package sslcommerz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	sandboxBaseURL = "https://sandbox.sslcommerz.com"
	liveBaseURL    = "https://securepay.sslcommerz.com"

	sessionPath = "/gwprocess/v4/api.php"

	maxResponseBytes = 1 << 20
)

// Client initiates hosted-payment sessions with the SSLCommerz gateway.
type Client struct {
	storeID       string
	storePassword string
	baseURL       string
	httpClient    *http.Client
}

func NewClient(storeID, storePassword string, sandbox bool, httpClient *http.Client) *Client {
	baseURL := liveBaseURL
	if sandbox {
		baseURL = sandboxBaseURL
	}
	return NewClientWithBaseURL(storeID, storePassword, baseURL, httpClient)
}

// NewClientWithBaseURL targets a specific gateway host. Used by tests and
// non-standard deployments.
func NewClientWithBaseURL(storeID, storePassword, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		storeID:       storeID,
		storePassword: storePassword,
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    httpClient,
	}
}

// PaymentRequest carries everything the gateway needs to open a session.
// The callback URL receives success, failure and cancel legs alike; the
// gateway appends its status parameters to it.
type PaymentRequest struct {
	TransactionID string
	Amount        float64
	Currency      string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	CallbackURL   string
	ProductName   string
	// SessionReference rides the gateway's value_a passthrough field and
	// comes back verbatim on every callback hop. The browser's session
	// cookie does not survive the gateway's cross-site POST return, so
	// this is how the callback leg finds the checkout session.
	SessionReference string
}

// Session is the gateway's answer to a session request. PaymentURL is the
// hosted page the browser must be redirected to.
type Session struct {
	SessionKey string
	PaymentURL string
}

type sessionResponse struct {
	Status         string `json:"status"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
	FailedReason   string `json:"failedreason"`
}

// InitiateSession opens a hosted-payment session. It fails rather than
// returning an empty payment URL: the caller must never redirect without
// one.
func (c *Client) InitiateSession(ctx context.Context, req PaymentRequest) (*Session, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if req.TransactionID == "" {
		return nil, fmt.Errorf("transaction id is required")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if req.CallbackURL == "" {
		return nil, fmt.Errorf("callback url is required")
	}

	form := url.Values{}
	form.Set("store_id", c.storeID)
	form.Set("store_passwd", c.storePassword)
	form.Set("tran_id", req.TransactionID)
	form.Set("total_amount", strconv.FormatFloat(req.Amount, 'f', 2, 64))
	form.Set("currency", defaultString(req.Currency, "BDT"))
	form.Set("success_url", req.CallbackURL)
	form.Set("fail_url", req.CallbackURL)
	form.Set("cancel_url", req.CallbackURL)
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("cus_phone", req.CustomerPhone)
	form.Set("product_name", defaultString(req.ProductName, "order"))
	form.Set("product_category", "general")
	form.Set("product_profile", "general")
	form.Set("shipping_method", "NO")
	if req.SessionReference != "" {
		form.Set("value_a", req.SessionReference)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sessionPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var parsed sessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if !strings.EqualFold(parsed.Status, "SUCCESS") {
		reason := parsed.FailedReason
		if reason == "" {
			reason = "gateway rejected the session request"
		}
		return nil, fmt.Errorf("gateway session failed: %s", reason)
	}
	if parsed.GatewayPageURL == "" {
		return nil, fmt.Errorf("gateway returned no payment url")
	}

	return &Session{
		SessionKey: parsed.SessionKey,
		PaymentURL: parsed.GatewayPageURL,
	}, nil
}

// BaseURL exposes the resolved gateway host, used for trace propagation
// configuration and tests.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
