package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Relayer hands a task to the external batch-processing service.
type Relayer interface {
	Relay(ctx context.Context, task Task) error
}

// RelayClient is the HTTP client for the batch service. The service processes
// asynchronously and reports back through the webhook endpoint.
type RelayClient struct {
	baseURL     string
	apiKey      string
	callbackURL string
	httpClient  *http.Client
}

// NewRelayClient constructs a RelayClient. callbackURL is the absolute URL of
// our webhook endpoint, passed along so the service knows where to report.
func NewRelayClient(baseURL, apiKey, callbackURL string) *RelayClient {
	return &RelayClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type relayRequest struct {
	TaskID      string `json:"task_id"`
	Subject     string `json:"subject"`
	CallbackURL string `json:"callback_url"`
}

// Relay submits one task. Non-2xx responses are errors so the queue retries.
func (c *RelayClient) Relay(ctx context.Context, task Task) error {
	body, err := json.Marshal(relayRequest{
		TaskID:      task.ID.String(),
		Subject:     task.Subject,
		CallbackURL: c.callbackURL,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/batches", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay task %s: %w", task.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("relay task %s: status %d: %s", task.ID, resp.StatusCode, snippet)
	}
	return nil
}
