package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
)

// Transport sends one payload to the ingestion endpoint
type Transport interface {
	Send(ctx context.Context, payload domain.BugReportPayload) error
}

// StatusError is returned for a non-2xx response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("delivery: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("delivery: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPTransport POSTs payloads as JSON
type HTTPTransport struct {
	endpoint  string
	client    *http.Client
	userAgent string
}

// NewHTTPTransport 생성자. A nil client uses a pooled cleanhttp client
// without a request timeout.
func NewHTTPTransport(endpoint string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	return &HTTPTransport{endpoint: endpoint, client: client, userAgent: "angple-bugreport/1.0"}
}

// Send implements Transport
func (t *HTTPTransport) Send(ctx context.Context, payload domain.BugReportPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("delivery: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("delivery: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivery: post %s: %w", t.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
}
