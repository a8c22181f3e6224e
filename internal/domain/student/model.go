package student

import (
	"fmt"
	"strings"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
)

// Handles holds the optional per-platform user identifiers supplied for a
// student. An empty string means "no handle" and keeps that platform out of
// aggregation entirely.
type Handles struct {
	LeetCode   string `json:"leetcode,omitempty"`
	Codeforces string `json:"codeforces,omitempty"`
	CodeChef   string `json:"codechef,omitempty"`
	HackerRank string `json:"hackerrank,omitempty"`
}

func (h Handles) Get(platform stats.Platform) string {
	switch platform {
	case stats.PlatformLeetCode:
		return strings.TrimSpace(h.LeetCode)
	case stats.PlatformCodeforces:
		return strings.TrimSpace(h.Codeforces)
	case stats.PlatformCodeChef:
		return strings.TrimSpace(h.CodeChef)
	case stats.PlatformHackerRank:
		return strings.TrimSpace(h.HackerRank)
	default:
		return ""
	}
}

func (h Handles) IsEmpty() bool {
	for _, platform := range stats.AllPlatforms {
		if h.Get(platform) != "" {
			return false
		}
	}
	return true
}

// Student is a tracked individual of the cohort.
type Student struct {
	ID          string
	RegNo       string
	Name        string
	Department  string
	Year        int
	Handles     Handles
	Stats       stats.ProfileStats
	CreatedAt   time.Time
	LastUpdated *time.Time
}

func (s Student) Validate() error {
	if strings.TrimSpace(s.RegNo) == "" {
		return fmt.Errorf("student reg no is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("student name is required")
	}
	if strings.TrimSpace(s.Department) == "" {
		return fmt.Errorf("student department is required")
	}
	if s.Year < 1 || s.Year > 5 {
		return fmt.Errorf("student year must be between 1 and 5")
	}
	return nil
}
