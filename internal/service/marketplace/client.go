// Package marketplace talks to the marketplace seller API: logistics
// clusters, supply drafts, drop-off timeslots and supply creation.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api-seller.ozon.ru"

	clusterTypeOzon     = "CLUSTER_TYPE_OZON"
	supplyTypeCrossdock = "CREATE_TYPE_CROSSDOCK"
)

// RetryPolicy is exponential backoff on rate limiting: up to MaxAttempts
// calls, waiting BaseDelay, 2*BaseDelay, ... between them.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 30 * time.Second}
}

type Config struct {
	BaseURL  string
	ClientID string
	APIKey   string
	Timeout  time.Duration

	// RequestsPerSecond caps outgoing calls; zero disables the limiter.
	RequestsPerSecond float64
	Burst             int

	DraftRetry RetryPolicy
}

type Option func(*Client)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger.With().Str("component", "marketplace").Logger() }
}

// Client is a thin JSON client for the seller API. It holds no state
// besides the outgoing rate limiter.
type Client struct {
	baseURL    string
	clientID   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	clock      clockwork.Clock
	logger     zerolog.Logger
	draftRetry RetryPolicy
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DraftRetry.MaxAttempts <= 0 {
		cfg.DraftRetry = DefaultRetryPolicy()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		clientID: cfg.ClientID,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:    rate.NewLimiter(limit, burst),
		clock:      clockwork.NewRealClock(),
		logger:     zerolog.Nop(),
		draftRetry: cfg.DraftRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// post sends a JSON request and decodes a 2xx JSON response into out.
func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &APIError{Op: op, Message: "rate limiter wait", Kind: ErrUpstream, Err: err}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Op: op, Message: err.Error(), Kind: ErrUpstream, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: readMessage(resp),
			Kind:    classify(resp.StatusCode),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Message: "decode response", Kind: ErrUpstream, Err: err}
	}
	return nil
}

func readMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Message != "" {
		return eb.Message
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
