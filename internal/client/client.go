package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/TimurManjosov/goptimize/internal/logging"
	"github.com/TimurManjosov/goptimize/internal/optimize"
	"github.com/TimurManjosov/goptimize/internal/proposition"
)

// DefaultRetryMax is the number of retries for failed requests.
const DefaultRetryMax = 3

// Client is an HTTP client for the optimize API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *retryablehttp.Client
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
}

// NewClient creates a new API client. Connection errors and 5xx responses are
// retried; a full server queue answers 503, so a retry usually succeeds.
func NewClient(baseURL, apiKey string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = logging.Component("client")
	retryClient.RetryMax = DefaultRetryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = 30 * time.Second

	return &Client{BaseURL: baseURL, APIKey: apiKey, HTTPClient: retryClient}
}

type acceptedResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// Update requests propositions for scopes and returns the request event id.
func (c *Client) Update(ctx context.Context, scopes []string, xdm, data map[string]any) (string, error) {
	body := map[string]any{"decisionScopes": scopes}
	if len(xdm) > 0 {
		body["xdm"] = xdm
	}
	if len(data) > 0 {
		body["data"] = data
	}
	var resp acceptedResponse
	if err := c.do(ctx, http.MethodPost, "/v1/propositions/update", false, body, http.StatusAccepted, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Get returns the cached propositions for scopes, in request order.
func (c *Client) Get(ctx context.Context, scopes []string) ([]proposition.Proposition, error) {
	var resp struct {
		Propositions []map[string]any `json:"propositions"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/propositions/get", false,
		map[string]any{"decisionScopes": scopes}, http.StatusOK, &resp); err != nil {
		return nil, err
	}

	props := make([]proposition.Proposition, 0, len(resp.Propositions))
	for i, raw := range resp.Propositions {
		p, err := proposition.FromEventData(raw)
		if err != nil {
			return nil, fmt.Errorf("proposition %d: %w", i, err)
		}
		props = append(props, p)
	}
	return props, nil
}

// Track sends a pre-built proposition interaction fragment.
func (c *Client) Track(ctx context.Context, interactions map[string]any) error {
	return c.do(ctx, http.MethodPost, "/v1/propositions/track", false,
		map[string]any{"propositionInteractions": interactions}, http.StatusAccepted, nil)
}

// Reset clears the server's proposition caches. Requires the admin key.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/propositions", true, nil, http.StatusAccepted, nil)
}

// Ingest delivers an inbound event, typically a network response. Requires the
// admin key. It returns the id the event was queued under.
func (c *Client) Ingest(ctx context.Context, ev optimize.Event) (string, error) {
	body := map[string]any{
		"id":     ev.ID,
		"name":   ev.Name,
		"type":   ev.Type,
		"source": ev.Source,
		"data":   ev.Data,
	}
	if ev.ParentID != "" {
		body["parentId"] = ev.ParentID
	}
	var resp acceptedResponse
	if err := c.do(ctx, http.MethodPost, "/v1/events", true, body, http.StatusAccepted, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, admin bool, in any, wantStatus int, out any) error {
	var raw []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		raw = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.BaseURL+path, raw)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(bodyBytes, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(bodyBytes)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
