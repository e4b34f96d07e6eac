// Package ollama talks to an Ollama-compatible model host. Client implements
// both the embedding collaborator (Embed) and the generative model (Complete).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/WessleyAI/edgerag-helpdesk/pkg/resilience"
)

// GatewayHeader carries the gateway id on every request.
const GatewayHeader = "X-Gateway-Id"

// maxErrBody bounds how much of an error response is kept.
const maxErrBody = 512

// DefaultTemperature is used when Config.Temperature is nil.
const DefaultTemperature = 0.2

// Config configures a Client.
type Config struct {
	BaseURL     string
	EmbedModel  string
	ChatModel   string
	GatewayID   string
	// Temperature is nil for DefaultTemperature; a pointer so 0 can be set.
	Temperature *float64
	MaxTokens   int
	// HTTPClient defaults to a client with an OTel transport.
	HTTPClient *http.Client
	// Breaker, if set, guards every call.
	Breaker *resilience.Breaker
}

// Client calls the Ollama HTTP API.
type Client struct {
	cfg         Config
	temperature float64
	http        *http.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	temp := DefaultTemperature
	if cfg.Temperature != nil {
		temp = *cfg.Temperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 700
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{cfg: cfg, temperature: temp, http: hc}
}

// StatusError is returned when the host answers with a non-2xx status.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama %s: status %d: %s", e.Op, e.Code, e.Body)
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per text, in order, from a single request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := c.post(ctx, "embed", "/api/embed", embedReq{Model: c.cfg.EmbedModel, Input: texts})
	if err != nil {
		return nil, err
	}
	var out embedResp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}
	return out.Embeddings, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatReq struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

// Complete sends one non-streaming system+user exchange and returns the
// model's text, whatever shape the host wraps it in.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := c.post(ctx, "chat", "/api/chat", chatReq{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Options: chatOptions{Temperature: c.temperature, NumPredict: c.cfg.MaxTokens},
	})
	if err != nil {
		return "", err
	}
	text, err := ResponseText(body)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ollama %s encode: %w", op, err)
	}

	var body []byte
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("ollama %s: %w", op, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.GatewayID != "" {
			req.Header.Set(GatewayHeader, c.cfg.GatewayID)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("ollama %s: %w", op, err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama %s read: %w", op, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(snippet(body, maxErrBody))}
		}
		return nil
	}

	if c.cfg.Breaker != nil {
		err = c.cfg.Breaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// snippet returns at most n bytes of b, cut back to a rune boundary.
func snippet(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return string(b[:n])
}
