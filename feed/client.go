package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rustyeddy/tradereplay/market"
	"go.uber.org/zap"
)

// DefaultBaseURL is where the dashboard backend listens in development.
const DefaultBaseURL = "http://localhost:5000"

// ErrBackend is wrapped by every error the backend itself reports.
var ErrBackend = errors.New("backend error")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return ErrBackend }

// Loader returns a normalized feed for a query.
type Loader interface {
	Load(ctx context.Context, q Query) (*market.Feed, error)
}

// Client fetches strategy feeds from the dashboard backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a backend client. A zero timeout uses 30 seconds.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.Named("feed"),
	}
}

// Strategy fetches GET /api/strategy.
func (c *Client) Strategy(ctx context.Context, q Query) (*market.Feed, error) {
	q.Source = SourceStrategy
	return c.Fetch(ctx, q)
}

// LiveStrategy fetches GET /api/strategy/live.
func (c *Client) LiveStrategy(ctx context.Context, q Query) (*market.Feed, error) {
	q.Source = SourceLive
	return c.Fetch(ctx, q)
}

// SimulatorData fetches GET /api/simulator-data.
func (c *Client) SimulatorData(ctx context.Context, q Query) (*market.Feed, error) {
	q.Source = SourceSimulator
	return c.Fetch(ctx, q)
}

func (c *Client) Load(ctx context.Context, q Query) (*market.Feed, error) {
	return c.Fetch(ctx, q)
}

// Fetch requests the feed for q and returns it sorted with signals joined
// onto their bars.
func (c *Client) Fetch(ctx context.Context, q Query) (*market.Feed, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Source == SourceFile {
		return nil, fmt.Errorf("backend client cannot load file feeds")
	}

	apiURL := c.baseURL + q.Source.Path() + "?" + q.Values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if wr.Success != nil && !*wr.Success {
		return nil, fmt.Errorf("%w: %s", ErrBackend, wr.failure())
	}

	f := wr.toFeed(q)
	c.log.Debug("fetched feed",
		zap.String("query", q.String()),
		zap.Int("bars", f.Len()),
		zap.Int("buy_signals", len(f.BuySignals)),
		zap.Int("sell_signals", len(f.SellSignals)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return f, nil
}
