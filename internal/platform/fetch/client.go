package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/platform/resilience"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 6 << 20
)

// Config configures one platform-scoped HTTP client. Adapters own a Client
// each so timeouts and breaker state never leak across platforms.
type Config struct {
	HTTPClient     *http.Client
	Timeout        time.Duration
	UserAgent      string
	MaxBodyBytes   int64
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client is a bounded single-attempt HTTP helper. It never retries: retry
// policy belongs to the caller, and the accepted failure model for profile
// fetches is one attempt per refresh cycle.
type Client struct {
	httpClient     *http.Client
	userAgent      string
	maxBodyBytes   int64
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		userAgent:      strings.TrimSpace(cfg.UserAgent),
		maxBodyBytes:   maxBodyBytes,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// GetJSON fetches url and decodes the body into target. Concurrent calls for
// the same url are collapsed into one request.
func (c *Client) GetJSON(ctx context.Context, url string, target any) error {
	raw, err := c.deduped(url, func() ([]byte, error) {
		return c.do(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrapf(stats.ErrExtraction, "decode json payload: %v", err)
	}
	return nil
}

// PostJSON sends body as JSON and decodes the response into target.
func (c *Client) PostJSON(ctx context.Context, url string, body any, target any) error {
	encoded, err := sonic.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, url, encoded)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrapf(stats.ErrExtraction, "decode json payload: %v", err)
	}
	return nil
}

// GetDocument fetches url and returns the body as text, for adapters that
// extract fields from human-readable pages.
func (c *Client) GetDocument(ctx context.Context, url string) (string, error) {
	raw, err := c.deduped(url, func() ([]byte, error) {
		return c.do(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (c *Client) deduped(key string, fn func() ([]byte, error)) ([]byte, error) {
	out, err, _ := c.flight.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "circuit breaker rejected request", "url", url, "state", c.breaker.State())
			return nil, crerr.Wrap(stats.ErrTransient, "platform temporarily unavailable")
		}
	}

	raw, err := c.execute(ctx, method, url, body)
	if c.circuitEnabled {
		if err != nil && stats.IsTransient(err) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return raw, err
}

func (c *Client) execute(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, crerr.Wrapf(stats.ErrTransient, "send request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, crerr.Wrapf(stats.ErrTransient, "read response body: %v", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, crerr.Wrapf(stats.ErrProfileNotFound, "status=%d", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, crerr.Wrapf(stats.ErrTransient, "status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	default:
		return nil, crerr.Wrapf(stats.ErrExtraction, "unexpected status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
