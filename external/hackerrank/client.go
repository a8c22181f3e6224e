package hackerrank

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/platform/fetch"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/platform/resilience"
)

const (
	defaultBaseURL = "https://www.hackerrank.com"

	// The badges endpoint rejects non-browser user agents.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// The public surface exposes badges but not a per-problem solve log, so
	// the solved count is a declared approximation of five problems per
	// earned badge.
	solvedPerBadgeApprox = 5
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	UserAgent      string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	http    *fetch.Client
	baseURL string
	logger  *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		http: fetch.New(fetch.Config{
			HTTPClient:     cfg.HTTPClient,
			Timeout:        cfg.Timeout,
			UserAgent:      userAgent,
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
		}),
		baseURL: baseURL,
		logger:  logger,
	}
}

func (c *Client) Platform() stats.Platform { return stats.PlatformHackerRank }

type badgesEnvelope struct {
	Models []struct {
		BadgeName string `json:"badge_name"`
		Stars     int    `json:"stars"`
		Solved    int    `json:"solved"`
	} `json:"models"`
}

// FetchProfile returns badge counts and the approximate solved total. When a
// badge reports its own solved count that value is used; otherwise the badge
// contributes the declared approximation.
func (c *Client) FetchProfile(ctx context.Context, handle string) (stats.Record, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return stats.Record{}, fmt.Errorf("handle is required")
	}

	var envelope badgesEnvelope
	badgesURL := fmt.Sprintf("%s/rest/hackers/%s/badges", c.baseURL, handle)
	if err := c.http.GetJSON(ctx, badgesURL, &envelope); err != nil {
		return stats.Record{}, fmt.Errorf("fetch hackerrank badges handle=%s: %w", handle, err)
	}

	record := stats.Record{
		Platform:  stats.PlatformHackerRank,
		Handle:    handle,
		Badges:    len(envelope.Models),
		FetchedAt: time.Now().UTC(),
	}
	for _, badge := range envelope.Models {
		record.Stars += badge.Stars
		if badge.Solved > 0 {
			record.TotalSolved += badge.Solved
		} else {
			record.TotalSolved += solvedPerBadgeApprox
		}
	}

	return record, nil
}
