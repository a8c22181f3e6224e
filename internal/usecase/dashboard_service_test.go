package usecase

import (
	"context"
	"testing"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

func newDashboardFixture(t *testing.T, repo *stubStudentRepo) *DashboardService {
	t.Helper()

	service, err := NewDashboardService(repo, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewDashboardService: %v", err)
	}
	return service
}

func dashboardCohort() *stubStudentRepo {
	return newStubStudentRepo(
		student.Student{
			ID: "s1", RegNo: "21CS001", Name: "Asha", Department: "CSE",
			Stats: stats.ProfileStats{
				stats.PlatformLeetCode:   {Handle: "asha_lc", TotalSolved: 220, Rating: 1712},
				stats.PlatformCodeforces: {Handle: "asha_cf", TotalSolved: 150, Rating: 1510},
			},
		},
		student.Student{
			ID: "s2", RegNo: "21CS002", Name: "Bala", Department: "CSE",
			Stats: stats.ProfileStats{
				stats.PlatformCodeforces: {Handle: "bala_cf", TotalSolved: 230, Rating: 1420},
			},
		},
		student.Student{
			ID: "s3", RegNo: "21CS003", Name: "Charu", Department: "ECE",
		},
	)
}

func TestDashboard_PlatformSummaries(t *testing.T) {
	t.Parallel()

	service := newDashboardFixture(t, dashboardCohort())

	dashboard, err := service.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if dashboard.StudentCount != 3 {
		t.Fatalf("expected 3 students, got %d", dashboard.StudentCount)
	}
	if len(dashboard.Platforms) != len(stats.AllPlatforms) {
		t.Fatalf("expected a summary per platform, got %d", len(dashboard.Platforms))
	}

	var codeforces PlatformSummary
	for _, summary := range dashboard.Platforms {
		if summary.Platform == stats.PlatformCodeforces {
			codeforces = summary
		}
	}
	if codeforces.TrackedCount != 2 {
		t.Fatalf("expected 2 tracked codeforces students, got %d", codeforces.TrackedCount)
	}
	if codeforces.TotalSolved != 380 {
		t.Fatalf("expected total_solved=380, got %d", codeforces.TotalSolved)
	}
	if codeforces.AverageRating != 1465 {
		t.Fatalf("expected average_rating=1465, got %d", codeforces.AverageRating)
	}
	if codeforces.TopHandle != "asha_cf" {
		t.Fatalf("expected top handle asha_cf, got %q", codeforces.TopHandle)
	}
}

func TestLeaderboard_OrderedByRatingSum(t *testing.T) {
	t.Parallel()

	service := newDashboardFixture(t, dashboardCohort())

	rows, err := service.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].RegNo != "21CS001" || rows[0].Rank != 1 {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[0].RatingSum != 3222 || rows[0].TotalSolved != 370 {
		t.Fatalf("unexpected aggregate %+v", rows[0])
	}
	if rows[2].RegNo != "21CS003" {
		t.Fatalf("student without stats must rank last, got %+v", rows[2])
	}
}
