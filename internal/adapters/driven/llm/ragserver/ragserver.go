// Package ragserver provides the retrieval-augmented local inference
// backend.
package ragserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.RAGBackend = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8080"

	// DefaultTimeout is long, like the plain local backend: retrieval
	// plus on-device inference is the slowest path there is.
	DefaultTimeout = 120 * time.Second

	// defaultTemperature is what the server runs generation at.
	defaultTemperature = 0.7
)

// Config holds configuration for the RAG server client.
type Config struct {
	// BaseURL is the server base URL (default: http://localhost:8080).
	BaseURL string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Client calls the RAG server HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
}

// queryRequest is the /api/rag request format.
type queryRequest struct {
	Query          string  `json:"query"`
	Model          string  `json:"model"`
	IncludeContext bool    `json:"include_context"`
	TopK           int     `json:"top_k"`
	Temperature    float64 `json:"temperature"`
}

// queryResponse is the /api/rag response format.
type queryResponse struct {
	Response        string   `json:"response"`
	Context         []string `json:"context"`
	TokensPerSecond float64  `json:"tokens_per_second"`
}

// NewClient creates a new RAG server client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// Query sends an augmented prompt and returns the reply together with
// the context the server used.
func (c *Client) Query(ctx context.Context, query, model string, includeContext bool, topK int) (*driven.RAGReply, error) {
	reqBody := queryRequest{
		Query:          query,
		Model:          model,
		IncludeContext: includeContext,
		TopK:           topK,
		Temperature:    defaultTemperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/rag",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return nil, fmt.Errorf("%w: rag server at %s: %v", domain.ErrBackendUnreachable, c.baseURL, err)
		}
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%w: rag server status %d", domain.ErrBackendRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: rag server status %d: %s", domain.ErrBackendRejected, resp.StatusCode, string(body))
	}

	var queryResp queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &driven.RAGReply{
		Content:         queryResp.Response,
		Context:         queryResp.Context,
		TokensPerSecond: queryResp.TokensPerSecond,
	}, nil
}

// Endpoint returns the configured base URL.
func (c *Client) Endpoint() string {
	return c.baseURL
}

// Ping validates the server is reachable via /health.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return fmt.Errorf("%w: rag server at %s: %v", domain.ErrBackendUnreachable, c.baseURL, err)
		}
		return fmt.Errorf("rag server: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: rag server status %d", domain.ErrBackendRejected, resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// isUnreachable reports whether the transport error means the endpoint
// could not be reached at all, as opposed to rejecting the request.
func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
