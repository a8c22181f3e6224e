package stats

import (
	"strings"
	"time"
)

// Platform identifies one of the tracked external judges.
type Platform string

const (
	PlatformLeetCode   Platform = "leetcode"
	PlatformCodeforces Platform = "codeforces"
	PlatformCodeChef   Platform = "codechef"
	PlatformHackerRank Platform = "hackerrank"
)

var AllPlatforms = []Platform{
	PlatformLeetCode,
	PlatformCodeforces,
	PlatformCodeChef,
	PlatformHackerRank,
}

func ParsePlatform(raw string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(raw))) {
	case PlatformLeetCode:
		return PlatformLeetCode, true
	case PlatformCodeforces:
		return PlatformCodeforces, true
	case PlatformCodeChef:
		return PlatformCodeChef, true
	case PlatformHackerRank:
		return PlatformHackerRank, true
	default:
		return "", false
	}
}

// Record is the normalized per-platform snapshot every adapter must emit,
// regardless of the transport it fetched from. Fields a platform cannot
// provide stay at their zero value.
type Record struct {
	Platform      Platform        `json:"platform"`
	Handle        string          `json:"handle"`
	TotalSolved   int             `json:"total_solved"`
	Easy          int             `json:"easy,omitempty"`
	Medium        int             `json:"medium,omitempty"`
	Hard          int             `json:"hard,omitempty"`
	Rating        int             `json:"rating,omitempty"`
	MaxRating     int             `json:"max_rating,omitempty"`
	RankLabel     string          `json:"rank_label,omitempty"`
	MaxRankLabel  string          `json:"max_rank_label,omitempty"`
	GlobalRank    int             `json:"global_rank,omitempty"`
	CountryRank   int             `json:"country_rank,omitempty"`
	TopPercentage float64         `json:"top_percentage,omitempty"`
	Stars         int             `json:"stars,omitempty"`
	Division      string          `json:"division,omitempty"`
	Badges        int             `json:"badges,omitempty"`
	ContestCount  int             `json:"contest_count"`
	History       []ContestResult `json:"history,omitempty"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// ContestResult is one attended contest participation inside a Record's
// chronological history.
type ContestResult struct {
	ContestName       string    `json:"contest_name"`
	ContestCode       string    `json:"contest_code,omitempty"`
	Date              time.Time `json:"date"`
	RatingBefore      int       `json:"rating_before,omitempty"`
	RatingAfter       int       `json:"rating_after,omitempty"`
	Rank              int       `json:"rank,omitempty"`
	ProblemsSolved    int       `json:"problems_solved"`
	TotalParticipants int       `json:"total_participants,omitempty"`
}

// ProfileStats maps platform to its latest normalized record. A platform the
// student has no handle for, or whose last fetch failed, is simply absent —
// an absent key is distinguishable from a fetched record with zero activity.
type ProfileStats map[Platform]Record

func (p ProfileStats) Clone() ProfileStats {
	if p == nil {
		return nil
	}
	out := make(ProfileStats, len(p))
	for platform, record := range p {
		out[platform] = record
	}
	return out
}
