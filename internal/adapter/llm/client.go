package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"sketchbook/internal/domain"
	"sketchbook/internal/infra/config"
	"sketchbook/internal/infra/tracer"
)

// Client implements domain.Completer against the drawing completion
// endpoint's streaming API.
type Client struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a streaming client for the completion endpoint.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  NewHTTPClient(cfg),
		logger:  logger,
	}
}

// --- completion API wire types ---

type completionRequest struct {
	Model       string `json:"model,omitempty"`
	SnapshotPNG string `json:"snapshot_png,omitempty"` // base64
	Width       int    `json:"width"`
	Height      int    `json:"height"`

	History []json.RawMessage `json:"history,omitempty"`
	Turns   []domain.Turn     `json:"turns,omitempty"`

	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	DrawingMode  string  `json:"drawing_mode,omitempty"`
	Stream       bool    `json:"stream"`
}

// streamEvent is one SSE data payload. The shape field stays raw until
// the tagged union is decoded.
type streamEvent struct {
	Type        string             `json:"type"`
	Thinking    string             `json:"thinking,omitempty"`
	Block       *domain.AsciiBlock `json:"block,omitempty"`
	Shape       json.RawMessage    `json:"shape,omitempty"`
	Say         *domain.SayEvent   `json:"say,omitempty"`
	Wish        string             `json:"wish,omitempty"`
	Description string             `json:"description,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Stream implements domain.Completer.
func (c *Client) Stream(ctx context.Context, req domain.CompletionRequest) (<-chan domain.ActorEvent, error) {
	ctx, span := tracer.Completion(ctx, c.model, req.Width, req.Height)
	defer span.End()

	wire := completionRequest{
		Model:        c.model,
		Width:        req.Width,
		Height:       req.Height,
		History:      req.History,
		Turns:        req.Turns,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		SystemPrompt: req.SystemPrompt,
		DrawingMode:  req.DrawingMode,
		Stream:       true,
	}
	if len(req.SnapshotPNG) > 0 {
		wire.SnapshotPNG = base64.StdEncoding.EncodeToString(req.SnapshotPNG)
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	httpResp, err := doStreamRequest(ctx, c.client, c.baseURL+"/v1/draw/stream", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetOK(span)

	c.logger.Debug("completion stream opened", "model", c.model)

	return parseSSEStream(ctx, httpResp.Body, parseStreamLine), nil
}

func parseStreamLine(data []byte) (*domain.ActorEvent, error) {
	var evt streamEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}

	switch domain.ActorEventType(evt.Type) {
	case domain.ActorThinking:
		return &domain.ActorEvent{Type: domain.ActorThinking, Thinking: evt.Thinking}, nil

	case domain.ActorShape:
		shape, err := domain.DecodeShape(evt.Shape)
		if err != nil {
			// A malformed shape skips that event, not the turn.
			return nil, err
		}
		return &domain.ActorEvent{Type: domain.ActorShape, Shape: shape}, nil

	case domain.ActorBlock:
		if evt.Block == nil {
			return nil, nil
		}
		return &domain.ActorEvent{Type: domain.ActorBlock, Block: evt.Block}, nil

	case domain.ActorSay:
		if evt.Say == nil {
			return nil, nil
		}
		return &domain.ActorEvent{Type: domain.ActorSay, Say: evt.Say}, nil

	case domain.ActorWish:
		return &domain.ActorEvent{Type: domain.ActorWish, Wish: evt.Wish}, nil

	case domain.ActorDone:
		return &domain.ActorEvent{Type: domain.ActorDone, Description: evt.Description}, nil

	case domain.ActorError:
		return &domain.ActorEvent{Type: domain.ActorError, Err: evt.Error}, nil

	default:
		return nil, nil
	}
}

// --- HTTP helpers ---

// doStreamRequest performs a JSON POST request for SSE streaming.
// It returns the open *http.Response (caller must close Body).
// Returns a domain error for non-200 responses.
func doStreamRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}

	return httpResp, nil
}

// mapHTTPError maps an HTTP status code + response body to a domain
// error so the circuit breaker and the session classify failures
// consistently.
func mapHTTPError(statusCode int, body []byte) error {
	detail := fmt.Sprintf("API error %d: %s", statusCode, string(body))

	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimit, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s", domain.ErrStreamFailed, detail)
	default:
		return fmt.Errorf("%s", detail)
	}
}

// Default endpoint timeouts.
const (
	defaultConnTimeout = 30 * time.Second
	defaultRespTimeout = 120 * time.Second
)

// Default connection pool settings: one host, long-lived connections.
const (
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 20
	defaultIdleConnTimeout     = 120 * time.Second
)

// NewHTTPClient creates an *http.Client with a pooled transport and
// timeout defaults suitable for long streaming responses.
func NewHTTPClient(cfg config.LLMConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout == 0 {
		connTimeout = defaultConnTimeout
	}
	respTimeout := cfg.RespTimeout
	if respTimeout == 0 {
		respTimeout = defaultRespTimeout
	}

	maxIdle := cfg.Pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	maxIdlePerHost := cfg.Pool.MaxIdleConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = defaultMaxIdleConnsPerHost
	}
	maxConnsPerHost := cfg.Pool.MaxConnsPerHost
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = defaultMaxConnsPerHost
	}
	idleTimeout := cfg.Pool.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleConnTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   connTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: respTimeout,
			MaxIdleConns:          maxIdle,
			MaxIdleConnsPerHost:   maxIdlePerHost,
			MaxConnsPerHost:       maxConnsPerHost,
			IdleConnTimeout:       idleTimeout,
			ForceAttemptHTTP2:     true,
		},
		// No overall client timeout: the SSE body stays open for the
		// whole turn. Cancellation comes from the request context.
	}
}

var _ domain.Completer = (*Client)(nil)
