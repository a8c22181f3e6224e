package usecase

import (
	"context"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/report"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
)

// PlatformClient is the contract every judge adapter implements. FetchProfile
// is a single attempt; callers decide whether a failure is worth a retry on
// the next refresh cycle.
type PlatformClient interface {
	Platform() stats.Platform
	FetchProfile(ctx context.Context, handle string) (stats.Record, error)
}

// ExternalContestProblem is one column of a live scoreboard.
type ExternalContestProblem struct {
	Index string
	Name  string
}

// ExternalStandingsRow is one participant's row on a live scoreboard. Solved
// holds the problem indexes the participant has solved so far.
type ExternalStandingsRow struct {
	Handle string
	Rank   int
	Points float64
	Solved []string
}

// ExternalContestStandings is a live scoreboard restricted to the requested
// handles. A handle absent from Rows did not register for the contest.
type ExternalContestStandings struct {
	ContestID   int64
	ContestName string
	Problems    []ExternalContestProblem
	Rows        []ExternalStandingsRow
}

// ContestStandingsClient fetches a live scoreboard for a known contest id.
type ContestStandingsClient interface {
	FetchContestStandings(ctx context.Context, contestID int64, handles []string) (ExternalContestStandings, error)
}

// UpcomingContestsClient lists contests that have not started yet.
type UpcomingContestsClient interface {
	FetchUpcomingContests(ctx context.Context, horizon time.Duration) ([]contest.Upcoming, error)
}

// SheetRenderer serializes built sheets into a downloadable workbook without
// touching the persisted report store.
type SheetRenderer interface {
	Render(sheets []report.Sheet) ([]byte, error)
}
