// Package anthropic provides the hosted chat backend using the
// Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.CloudLLM = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultTimeout is short: cloud turns are interactive and a hung
	// request should surface quickly.
	DefaultTimeout = 60 * time.Second

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	// defaultRequestsPerMinute is the client-side rate cap.
	defaultRequestsPerMinute = 50
)

// Config holds configuration for the Anthropic client.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// RequestsPerMinute caps outbound request rate (default: 50).
	RequestsPerMinute int
}

// Client calls the Anthropic Messages API.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// messagesRequest is the /v1/messages request format. Content is either
// a plain string or a list of typed parts, so it is typed as any.
type messagesRequest struct {
	Model     string        `json:"model"`
	Messages  []wireMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type wirePart struct {
	Type   string      `json:"type"`
	Text   string      `json:"text,omitempty"`
	Source *wireSource `json:"source,omitempty"`
}

type wireSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// messagesResponse is the /v1/messages response format.
type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a new Anthropic client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute),
	}, nil
}

// SendMessages sends an ordered message history and returns the reply
// with the API's exact usage counts.
func (c *Client) SendMessages(ctx context.Context, model string, messages []domain.PromptMessage, maxTokens int) (*driven.CloudReply, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("anthropic: rate limit wait: %w", err)
	}

	reqBody := messagesRequest{
		Model:     model,
		Messages:  make([]wireMessage, 0, len(messages)),
		MaxTokens: maxTokens,
	}
	for _, msg := range messages {
		reqBody.Messages = append(reqBody.Messages, wireMessage{
			Role:    msg.Role,
			Content: wireContent(msg),
		})
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return nil, fmt.Errorf("%w: anthropic at %s: %v", domain.ErrBackendUnreachable, c.baseURL, err)
		}
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if msgResp.Error != nil {
		return nil, fmt.Errorf("%w: anthropic %s: %s", domain.ErrBackendRejected, msgResp.Error.Type, msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: anthropic status %d: %s", domain.ErrBackendRejected, resp.StatusCode, string(body))
	}
	if len(msgResp.Content) == 0 {
		return nil, fmt.Errorf("%w: anthropic returned no content", domain.ErrBackendRejected)
	}

	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}

	return &driven.CloudReply{
		Content:      result.String(),
		Model:        msgResp.Model,
		InputTokens:  msgResp.Usage.InputTokens,
		OutputTokens: msgResp.Usage.OutputTokens,
	}, nil
}

// wireContent renders one message's content for the API: a plain string
// when the message has no parts, otherwise a typed part list.
func wireContent(msg domain.PromptMessage) any {
	if len(msg.Blocks) == 0 {
		return msg.Content
	}

	parts := make([]wirePart, 0, len(msg.Blocks))
	for _, block := range msg.Blocks {
		switch block.Type {
		case domain.BlockImage:
			parts = append(parts, wirePart{
				Type: "image",
				Source: &wireSource{
					Type:      "base64",
					MediaType: block.MimeType,
					Data:      block.Data,
				},
			})
		case domain.BlockDocument:
			parts = append(parts, wirePart{
				Type: "document",
				Source: &wireSource{
					Type:      "base64",
					MediaType: block.MimeType,
					Data:      block.Data,
				},
			})
		default:
			parts = append(parts, wirePart{Type: "text", Text: block.Text})
		}
	}
	return parts
}

// Ping validates the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return fmt.Errorf("%w: anthropic at %s: %v", domain.ErrBackendUnreachable, c.baseURL, err)
		}
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: anthropic status %d", domain.ErrBackendRejected, resp.StatusCode)
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
