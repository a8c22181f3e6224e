package leetcode

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
)

const upcomingQuery = `{ topTwoContests { title startTime titleSlug duration } }`

// Weekly and biweekly contests run 90 minutes; used when the feed omits the
// duration.
const defaultContestDuration = 90 * time.Minute

type upcomingEnvelope struct {
	Data struct {
		TopTwoContests []struct {
			Title     string `json:"title"`
			TitleSlug string `json:"titleSlug"`
			StartTime int64  `json:"startTime"`
			Duration  int64  `json:"duration"`
		} `json:"topTwoContests"`
	} `json:"data"`
}

// FetchUpcomingContests returns the next scheduled contests, soonest first.
func (c *Client) FetchUpcomingContests(ctx context.Context, horizon time.Duration) ([]contest.Upcoming, error) {
	payload := graphqlRequest{Query: upcomingQuery}

	var envelope upcomingEnvelope
	if err := c.http.PostJSON(ctx, c.endpoint, payload, &envelope); err != nil {
		return nil, fmt.Errorf("fetch leetcode upcoming contests: %w", err)
	}

	now := time.Now().UTC()
	cutoff := now.Add(horizon)
	out := make([]contest.Upcoming, 0, 2)
	for _, item := range envelope.Data.TopTwoContests {
		start := time.Unix(item.StartTime, 0).UTC()
		if !start.After(now) || (horizon > 0 && start.After(cutoff)) {
			continue
		}
		duration := time.Duration(item.Duration) * time.Second
		if duration <= 0 {
			duration = defaultContestDuration
		}
		out = append(out, contest.Upcoming{
			ID:        "lc-" + item.TitleSlug,
			Name:      item.Title,
			Platform:  stats.PlatformLeetCode,
			StartTime: start,
			Duration:  duration,
			URL:       "https://leetcode.com/contest/" + item.TitleSlug,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })

	return out, nil
}
