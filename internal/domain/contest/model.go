package contest

import (
	"fmt"
	"strings"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
)

// Performance is one immutable per-contest participation fact. Once observed
// it is never updated: ratings and ranks for a past contest do not change.
// Uniqueness key: (reg no, platform, contest name).
type Performance struct {
	ID             string
	RegNo          string
	Platform       stats.Platform
	ContestName    string
	Date           string // YYYY-MM-DD
	Rating         int
	Rank           int
	ProblemsSolved int
	Easy           int
	Medium         int
	Hard           int
	TotalProblems  int
	CreatedAt      time.Time
}

func (p Performance) Validate() error {
	if strings.TrimSpace(p.RegNo) == "" {
		return fmt.Errorf("performance reg no is required")
	}
	if strings.TrimSpace(string(p.Platform)) == "" {
		return fmt.Errorf("performance platform is required")
	}
	if strings.TrimSpace(p.ContestName) == "" {
		return fmt.Errorf("performance contest name is required")
	}
	return nil
}

// Upcoming is one scheduled contest from a public feed.
type Upcoming struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Platform  stats.Platform `json:"platform"`
	StartTime time.Time      `json:"start_time"`
	Duration  time.Duration  `json:"duration"`
	URL       string         `json:"url"`
}
