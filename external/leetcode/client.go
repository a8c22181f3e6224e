package leetcode

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/platform/fetch"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/platform/resilience"
)

const defaultGraphQLEndpoint = "https://leetcode.com/graphql"

// profileQuery resolves the profile, the global submit stats and the contest
// ranking history in a single round trip. History entries where the user did
// not actually attend are returned too and filtered client-side.
const profileQuery = `
query userProfile($username: String!) {
  matchedUser(username: $username) {
    username
    profile { ranking }
    submitStatsGlobal { acSubmissionNum { difficulty count } }
  }
  userContestRanking(username: $username) {
    attendedContestsCount
    rating
    globalRanking
    topPercentage
  }
  userContestRankingHistory(username: $username) {
    attended
    rating
    ranking
    problemsSolved
    totalProblems
    contest { title startTime }
  }
}`

type ClientConfig struct {
	HTTPClient     *http.Client
	Endpoint       string
	Timeout        time.Duration
	UserAgent      string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	http     *fetch.Client
	endpoint string
	logger   *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultGraphQLEndpoint
	}

	return &Client{
		http: fetch.New(fetch.Config{
			HTTPClient:     cfg.HTTPClient,
			Timeout:        cfg.Timeout,
			UserAgent:      cfg.UserAgent,
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
		}),
		endpoint: endpoint,
		logger:   logger,
	}
}

func (c *Client) Platform() stats.Platform { return stats.PlatformLeetCode }

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type profileEnvelope struct {
	Data struct {
		MatchedUser *struct {
			Username string `json:"username"`
			Profile  struct {
				Ranking int `json:"ranking"`
			} `json:"profile"`
			SubmitStatsGlobal struct {
				ACSubmissionNum []struct {
					Difficulty string `json:"difficulty"`
					Count      int    `json:"count"`
				} `json:"acSubmissionNum"`
			} `json:"submitStatsGlobal"`
		} `json:"matchedUser"`
		UserContestRanking *struct {
			AttendedContestsCount int     `json:"attendedContestsCount"`
			Rating                float64 `json:"rating"`
			GlobalRanking         int     `json:"globalRanking"`
			TopPercentage         float64 `json:"topPercentage"`
		} `json:"userContestRanking"`
		UserContestRankingHistory []struct {
			Attended       bool    `json:"attended"`
			Rating         float64 `json:"rating"`
			Ranking        int     `json:"ranking"`
			ProblemsSolved int     `json:"problemsSolved"`
			TotalProblems  int     `json:"totalProblems"`
			Contest        struct {
				Title     string `json:"title"`
				StartTime int64  `json:"startTime"`
			} `json:"contest"`
		} `json:"userContestRankingHistory"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchProfile returns the normalized snapshot for handle. Contest history
// contains attended contests only, oldest first as the API returns them.
func (c *Client) FetchProfile(ctx context.Context, handle string) (stats.Record, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return stats.Record{}, fmt.Errorf("handle is required")
	}

	payload := graphqlRequest{
		Query:     profileQuery,
		Variables: map[string]any{"username": handle},
	}

	var envelope profileEnvelope
	if err := c.http.PostJSON(ctx, c.endpoint, payload, &envelope); err != nil {
		return stats.Record{}, fmt.Errorf("fetch leetcode profile handle=%s: %w", handle, err)
	}

	if envelope.Data.MatchedUser == nil {
		return stats.Record{}, crerr.Wrapf(stats.ErrProfileNotFound, "leetcode handle=%s", handle)
	}

	record := stats.Record{
		Platform:   stats.PlatformLeetCode,
		Handle:     handle,
		GlobalRank: envelope.Data.MatchedUser.Profile.Ranking,
		FetchedAt:  time.Now().UTC(),
	}

	for _, bucket := range envelope.Data.MatchedUser.SubmitStatsGlobal.ACSubmissionNum {
		switch strings.ToLower(bucket.Difficulty) {
		case "all":
			record.TotalSolved = bucket.Count
		case "easy":
			record.Easy = bucket.Count
		case "medium":
			record.Medium = bucket.Count
		case "hard":
			record.Hard = bucket.Count
		}
	}

	if ranking := envelope.Data.UserContestRanking; ranking != nil {
		record.Rating = int(math.Round(ranking.Rating))
		record.ContestCount = ranking.AttendedContestsCount
		record.TopPercentage = ranking.TopPercentage
		if ranking.GlobalRanking > 0 {
			record.GlobalRank = ranking.GlobalRanking
		}
	}

	for _, item := range envelope.Data.UserContestRankingHistory {
		if !item.Attended {
			continue
		}
		record.History = append(record.History, stats.ContestResult{
			ContestName:    item.Contest.Title,
			Date:           time.Unix(item.Contest.StartTime, 0).UTC(),
			RatingAfter:    int(math.Round(item.Rating)),
			Rank:           item.Ranking,
			ProblemsSolved: item.ProblemsSolved,
		})
	}

	if len(envelope.Errors) > 0 {
		c.logger.WarnContext(ctx, "leetcode graphql returned partial errors",
			"handle", handle, "first_error", envelope.Errors[0].Message)
	}

	return record, nil
}
