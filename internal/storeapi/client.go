// Package storeapi provides typed clients for the remote commerce backend.
// All pricing, inventory and order state lives behind that API; this
// service only orchestrates calls against it.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bazarioapp/bazario/internal/auth"
)

const maxResponseBytes = 4 << 20

// Client is the shared HTTP plumbing for all store API calls. The customer
// bearer token travels in context and is forwarded on every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// APIError is a non-success response from the store API. FieldErrors are
// present on validation failures and map back onto the submitting form.
type APIError struct {
	StatusCode  int               `json:"-"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("store api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("store api: status %d", e.StatusCode)
}

// IsValidation reports whether the failure carries field-level errors.
func (e *APIError) IsValidation() bool {
	return e != nil && len(e.FieldErrors) > 0
}

var ErrUnauthorized = errors.New("store api rejected the customer token")

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if customer := auth.CustomerFromContext(ctx); customer != nil && customer.Token != "" {
		req.Header.Set("Authorization", "Bearer "+customer.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store api request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read store api response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" && len(apiErr.FieldErrors) == 0 {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode store api response: %w", err)
	}
	return nil
}
