package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/platform/cache"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

const (
	dashboardCacheKey   = "dashboard:summary"
	leaderboardCacheKey = "dashboard:leaderboard"
	dashboardCacheTTL   = 5 * time.Minute
	topPerformerCount   = 5
)

type PlatformSummary struct {
	Platform      stats.Platform `json:"platform"`
	TrackedCount  int            `json:"tracked_count"`
	TotalSolved   int            `json:"total_solved"`
	AverageRating int            `json:"average_rating"`
	TopRating     int            `json:"top_rating"`
	TopHandle     string         `json:"top_handle"`
}

type Dashboard struct {
	StudentCount  int               `json:"student_count"`
	Platforms     []PlatformSummary `json:"platforms"`
	TopPerformers []LeaderboardRow  `json:"top_performers"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

type LeaderboardRow struct {
	Rank        int    `json:"rank"`
	RegNo       string `json:"reg_no"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	TotalSolved int    `json:"total_solved"`
	RatingSum   int    `json:"rating_sum"`
}

// DashboardService assembles cohort-wide summaries from the cached
// snapshots. Both views are cheap to rebuild, so a short TTL cache is enough
// to keep repeated page loads off the repository.
type DashboardService struct {
	students student.Repository
	store    *cache.Store
	logger   *logging.Logger
}

func NewDashboardService(students student.Repository, store *cache.Store, logger *logging.Logger) (*DashboardService, error) {
	if students == nil {
		return nil, fmt.Errorf("student repository is required")
	}
	if store == nil {
		store = cache.NewStore(dashboardCacheTTL)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &DashboardService{students: students, store: store, logger: logger}, nil
}

func (s *DashboardService) Get(ctx context.Context) (Dashboard, error) {
	ctx, span := startUsecaseSpan(ctx, "DashboardService.Get")
	defer span.End()

	value, err := s.store.GetOrLoad(ctx, dashboardCacheKey, func(ctx context.Context) (any, error) {
		return s.build(ctx)
	})
	if err != nil {
		return Dashboard{}, err
	}
	dashboard, ok := value.(Dashboard)
	if !ok {
		return Dashboard{}, fmt.Errorf("unexpected cached value type %T", value)
	}
	return dashboard, nil
}

func (s *DashboardService) build(ctx context.Context) (Dashboard, error) {
	cohort, err := s.students.List(ctx, student.Filter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list students: %w", err)
	}

	dashboard := Dashboard{
		StudentCount: len(cohort),
		GeneratedAt:  time.Now().UTC(),
	}

	for _, platform := range stats.AllPlatforms {
		summary := PlatformSummary{Platform: platform}
		ratingSum := 0
		rated := 0
		for _, item := range cohort {
			record, ok := item.Stats[platform]
			if !ok {
				continue
			}
			summary.TrackedCount++
			summary.TotalSolved += record.TotalSolved
			if record.Rating > 0 {
				ratingSum += record.Rating
				rated++
			}
			if record.Rating > summary.TopRating {
				summary.TopRating = record.Rating
				summary.TopHandle = record.Handle
			}
		}
		if rated > 0 {
			summary.AverageRating = ratingSum / rated
		}
		dashboard.Platforms = append(dashboard.Platforms, summary)
	}

	rows := buildLeaderboard(cohort)
	if len(rows) > topPerformerCount {
		rows = rows[:topPerformerCount]
	}
	dashboard.TopPerformers = rows

	return dashboard, nil
}

// Leaderboard ranks the whole cohort by rating sum, ties broken by solved
// count then reg no.
func (s *DashboardService) Leaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	ctx, span := startUsecaseSpan(ctx, "DashboardService.Leaderboard")
	defer span.End()

	value, err := s.store.GetOrLoad(ctx, leaderboardCacheKey, func(ctx context.Context) (any, error) {
		cohort, listErr := s.students.List(ctx, student.Filter{})
		if listErr != nil {
			return nil, fmt.Errorf("list students: %w", listErr)
		}
		return buildLeaderboard(cohort), nil
	})
	if err != nil {
		return nil, err
	}
	rows, ok := value.([]LeaderboardRow)
	if !ok {
		return nil, fmt.Errorf("unexpected cached value type %T", value)
	}
	out := make([]LeaderboardRow, len(rows))
	copy(out, rows)

	return out, nil
}

// Invalidate drops the cached views, called after refresh cycles so the next
// page load sees fresh numbers.
func (s *DashboardService) Invalidate(ctx context.Context) {
	s.store.Delete(ctx, dashboardCacheKey)
	s.store.Delete(ctx, leaderboardCacheKey)
}

func buildLeaderboard(cohort []student.Student) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(cohort))
	for _, item := range cohort {
		row := LeaderboardRow{
			RegNo:      item.RegNo,
			Name:       item.Name,
			Department: item.Department,
		}
		for _, record := range item.Stats {
			row.TotalSolved += record.TotalSolved
			row.RatingSum += record.Rating
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RatingSum != rows[j].RatingSum {
			return rows[i].RatingSum > rows[j].RatingSum
		}
		if rows[i].TotalSolved != rows[j].TotalSolved {
			return rows[i].TotalSolved > rows[j].TotalSolved
		}
		return strings.ToLower(rows[i].RegNo) < strings.ToLower(rows[j].RegNo)
	})
	for idx := range rows {
		rows[idx].Rank = idx + 1
	}
	return rows
}
