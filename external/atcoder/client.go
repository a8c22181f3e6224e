package atcoder

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/platform/fetch"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/platform/resilience"
)

// Contest listing comes from the kenkoooo mirror, which serves the full
// AtCoder contest catalogue as one JSON document.
const defaultFeedURL = "https://kenkoooo.com/atcoder/resources/contests.json"

const platformAtCoder = stats.Platform("atcoder")

type ClientConfig struct {
	HTTPClient     *http.Client
	FeedURL        string
	Timeout        time.Duration
	UserAgent      string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	http    *fetch.Client
	feedURL string
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	feedURL := strings.TrimSpace(cfg.FeedURL)
	if feedURL == "" {
		feedURL = defaultFeedURL
	}

	return &Client{
		http: fetch.New(fetch.Config{
			HTTPClient:     cfg.HTTPClient,
			Timeout:        cfg.Timeout,
			UserAgent:      cfg.UserAgent,
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
		}),
		feedURL: feedURL,
	}
}

type feedItem struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	StartEpoch     int64  `json:"start_epoch_second"`
	DurationSecond int64  `json:"duration_second"`
}

// FetchUpcomingContests filters the catalogue down to contests starting
// within horizon, soonest first.
func (c *Client) FetchUpcomingContests(ctx context.Context, horizon time.Duration) ([]contest.Upcoming, error) {
	var items []feedItem
	if err := c.http.GetJSON(ctx, c.feedURL, &items); err != nil {
		return nil, fmt.Errorf("fetch atcoder contest feed: %w", err)
	}

	now := time.Now().UTC()
	cutoff := now.Add(horizon)
	out := make([]contest.Upcoming, 0, 8)
	for _, item := range items {
		start := time.Unix(item.StartEpoch, 0).UTC()
		if !start.After(now) || (horizon > 0 && start.After(cutoff)) {
			continue
		}
		out = append(out, contest.Upcoming{
			ID:        item.ID,
			Name:      item.Title,
			Platform:  platformAtCoder,
			StartTime: start,
			Duration:  time.Duration(item.DurationSecond) * time.Second,
			URL:       "https://atcoder.jp/contests/" + item.ID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })

	return out, nil
}
