package codeforces

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/platform/fetch"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/platform/resilience"
	"github.com/harivignesh/cp-tracker/internal/usecase"
)

const (
	defaultBaseURL = "https://codeforces.com/api"

	// submissionPageSize caps how much of the submission log one profile
	// fetch pulls. Distinct solved problems beyond this window are missed,
	// which is acceptable for a cohort snapshot.
	submissionPageSize = 10000
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

	return &Client{
		http: fetch.New(fetch.Config{
			HTTPClient:     cfg.HTTPClient,
			Timeout:        cfg.Timeout,
			UserAgent:      cfg.UserAgent,
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
		}),
		baseURL: baseURL,
		logger:  logger,
	}
}

func (c *Client) Platform() stats.Platform { return stats.PlatformCodeforces }

type userInfoEnvelope struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  []struct {
		Handle    string `json:"handle"`
		Rating    int    `json:"rating"`
		MaxRating int    `json:"maxRating"`
		Rank      string `json:"rank"`
		MaxRank   string `json:"maxRank"`
	} `json:"result"`
}

type ratingChangeEnvelope struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  []struct {
		ContestID               int64  `json:"contestId"`
		ContestName             string `json:"contestName"`
		Rank                    int    `json:"rank"`
		RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
		OldRating               int    `json:"oldRating"`
		NewRating               int    `json:"newRating"`
	} `json:"result"`
}

type submissionEnvelope struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  []struct {
		Verdict string `json:"verdict"`
		Problem struct {
			ContestID int64  `json:"contestId"`
			Index     string `json:"index"`
			Name      string `json:"name"`
		} `json:"problem"`
	} `json:"result"`
}

type standingsEnvelope struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  struct {
		Contest struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"contest"`
		Problems []struct {
			Index string `json:"index"`
			Name  string `json:"name"`
		} `json:"problems"`
		Rows []struct {
			Rank   int     `json:"rank"`
			Points float64 `json:"points"`
			Party  struct {
				Members []struct {
					Handle string `json:"handle"`
				} `json:"members"`
			} `json:"party"`
			ProblemResults []struct {
				Points float64 `json:"points"`
			} `json:"problemResults"`
		} `json:"rows"`
	} `json:"result"`
}

type contestListEnvelope struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  []struct {
		ID                  int64  `json:"id"`
		Name                string `json:"name"`
		Phase               string `json:"phase"`
		DurationSeconds     int64  `json:"durationSeconds"`
		StartTimeSeconds    int64  `json:"startTimeSeconds"`
		RelativeTimeSeconds int64  `json:"relativeTimeSeconds"`
	} `json:"result"`
}

// FetchProfile aggregates three API methods into one snapshot: user.info for
// the rating block, user.rating for contest history and user.status for the
// distinct-solved count.
func (c *Client) FetchProfile(ctx context.Context, handle string) (stats.Record, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return stats.Record{}, fmt.Errorf("handle is required")
	}

	var info userInfoEnvelope
	infoURL := fmt.Sprintf("%s/user.info?handles=%s", c.baseURL, url.QueryEscape(handle))
	if err := c.http.GetJSON(ctx, infoURL, &info); err != nil {
		return stats.Record{}, fmt.Errorf("fetch codeforces user.info handle=%s: %w", handle, err)
	}
	if err := checkStatus(info.Status, info.Comment, handle); err != nil {
		return stats.Record{}, err
	}
	if len(info.Result) == 0 {
		return stats.Record{}, crerr.Wrapf(stats.ErrProfileNotFound, "codeforces handle=%s", handle)
	}

	user := info.Result[0]
	record := stats.Record{
		Platform:     stats.PlatformCodeforces,
		Handle:       user.Handle,
		Rating:       user.Rating,
		MaxRating:    user.MaxRating,
		RankLabel:    user.Rank,
		MaxRankLabel: user.MaxRank,
		FetchedAt:    time.Now().UTC(),
	}

	var changes ratingChangeEnvelope
	ratingURL := fmt.Sprintf("%s/user.rating?handle=%s", c.baseURL, url.QueryEscape(handle))
	if err := c.http.GetJSON(ctx, ratingURL, &changes); err != nil {
		return stats.Record{}, fmt.Errorf("fetch codeforces user.rating handle=%s: %w", handle, err)
	}
	if err := checkStatus(changes.Status, changes.Comment, handle); err != nil {
		return stats.Record{}, err
	}
	record.ContestCount = len(changes.Result)
	for _, change := range changes.Result {
		record.History = append(record.History, stats.ContestResult{
			ContestName:  change.ContestName,
			ContestCode:  fmt.Sprintf("%d", change.ContestID),
			Date:         time.Unix(change.RatingUpdateTimeSeconds, 0).UTC(),
			RatingBefore: change.OldRating,
			RatingAfter:  change.NewRating,
			Rank:         change.Rank,
		})
	}

	solved, err := c.fetchSolvedCount(ctx, handle)
	if err != nil {
		return stats.Record{}, err
	}
	record.TotalSolved = solved

	return record, nil
}

// fetchSolvedCount counts distinct problems with at least one accepted
// submission. Re-solves of the same problem count once.
func (c *Client) fetchSolvedCount(ctx context.Context, handle string) (int, error) {
	var submissions submissionEnvelope
	statusURL := fmt.Sprintf("%s/user.status?handle=%s&from=1&count=%d",
		c.baseURL, url.QueryEscape(handle), submissionPageSize)
	if err := c.http.GetJSON(ctx, statusURL, &submissions); err != nil {
		return 0, fmt.Errorf("fetch codeforces user.status handle=%s: %w", handle, err)
	}
	if err := checkStatus(submissions.Status, submissions.Comment, handle); err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(submissions.Result))
	for _, submission := range submissions.Result {
		if submission.Verdict != "OK" {
			continue
		}
		key := fmt.Sprintf("%d-%s", submission.Problem.ContestID, submission.Problem.Index)
		if submission.Problem.ContestID == 0 {
			key = submission.Problem.Name
		}
		seen[key] = struct{}{}
	}
	return len(seen), nil
}

// FetchContestStandings returns the scoreboard for contestID restricted to
// handles. Handles unknown to the contest are simply absent from the rows.
func (c *Client) FetchContestStandings(ctx context.Context, contestID int64, handles []string) (usecase.ExternalContestStandings, error) {
	if contestID <= 0 {
		return usecase.ExternalContestStandings{}, fmt.Errorf("contest id must be greater than zero")
	}

	cleaned := make([]string, 0, len(handles))
	for _, handle := range handles {
		if handle = strings.TrimSpace(handle); handle != "" {
			cleaned = append(cleaned, handle)
		}
	}
	if len(cleaned) == 0 {
		return usecase.ExternalContestStandings{}, fmt.Errorf("at least one handle is required")
	}

	var envelope standingsEnvelope
	standingsURL := fmt.Sprintf("%s/contest.standings?contestId=%d&handles=%s&showUnofficial=false",
		c.baseURL, contestID, url.QueryEscape(strings.Join(cleaned, ";")))
	if err := c.http.GetJSON(ctx, standingsURL, &envelope); err != nil {
		return usecase.ExternalContestStandings{}, fmt.Errorf("fetch codeforces contest.standings contest_id=%d: %w", contestID, err)
	}
	if envelope.Status != "OK" {
		if strings.Contains(strings.ToLower(envelope.Comment), "not found") {
			return usecase.ExternalContestStandings{}, crerr.Wrapf(stats.ErrProfileNotFound, "codeforces contest_id=%d", contestID)
		}
		return usecase.ExternalContestStandings{}, crerr.Wrapf(stats.ErrExtraction, "codeforces contest.standings failed: %s", envelope.Comment)
	}

	out := usecase.ExternalContestStandings{
		ContestID:   envelope.Result.Contest.ID,
		ContestName: envelope.Result.Contest.Name,
		Problems:    make([]usecase.ExternalContestProblem, 0, len(envelope.Result.Problems)),
		Rows:        make([]usecase.ExternalStandingsRow, 0, len(envelope.Result.Rows)),
	}
	for _, problem := range envelope.Result.Problems {
		out.Problems = append(out.Problems, usecase.ExternalContestProblem{
			Index: problem.Index,
			Name:  problem.Name,
		})
	}
	for _, row := range envelope.Result.Rows {
		if len(row.Party.Members) == 0 {
			continue
		}
		mapped := usecase.ExternalStandingsRow{
			Handle: row.Party.Members[0].Handle,
			Rank:   row.Rank,
			Points: row.Points,
		}
		for idx, result := range row.ProblemResults {
			if result.Points > 0 && idx < len(out.Problems) {
				mapped.Solved = append(mapped.Solved, out.Problems[idx].Index)
			}
		}
		out.Rows = append(out.Rows, mapped)
	}

	return out, nil
}

// FetchUpcomingContests lists contests in phase BEFORE starting within
// horizon, soonest first.
func (c *Client) FetchUpcomingContests(ctx context.Context, horizon time.Duration) ([]contest.Upcoming, error) {
	var envelope contestListEnvelope
	listURL := fmt.Sprintf("%s/contest.list?gym=false", c.baseURL)
	if err := c.http.GetJSON(ctx, listURL, &envelope); err != nil {
		return nil, fmt.Errorf("fetch codeforces contest.list: %w", err)
	}
	if envelope.Status != "OK" {
		return nil, crerr.Wrapf(stats.ErrExtraction, "codeforces contest.list failed: %s", envelope.Comment)
	}

	now := time.Now().UTC()
	cutoff := now.Add(horizon)
	out := make([]contest.Upcoming, 0, 16)
	for _, item := range envelope.Result {
		if item.Phase != "BEFORE" || item.StartTimeSeconds <= 0 {
			continue
		}
		start := time.Unix(item.StartTimeSeconds, 0).UTC()
		if start.Before(now) || (horizon > 0 && start.After(cutoff)) {
			continue
		}
		out = append(out, contest.Upcoming{
			ID:        fmt.Sprintf("cf-%d", item.ID),
			Name:      item.Name,
			Platform:  stats.PlatformCodeforces,
			StartTime: start,
			Duration:  time.Duration(item.DurationSeconds) * time.Second,
			URL:       fmt.Sprintf("https://codeforces.com/contest/%d", item.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })

	return out, nil
}

func checkStatus(status, comment, handle string) error {
	if status == "OK" {
		return nil
	}
	if strings.Contains(strings.ToLower(comment), "not found") {
		return crerr.Wrapf(stats.ErrProfileNotFound, "codeforces handle=%s", handle)
	}
	return crerr.Wrapf(stats.ErrExtraction, "codeforces api failed: %s", comment)
}
