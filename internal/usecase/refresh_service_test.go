package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

type stubStudentRepo struct {
	mu       sync.Mutex
	students map[string]student.Student
	upserts  int
}

func newStubStudentRepo(items ...student.Student) *stubStudentRepo {
	byID := make(map[string]student.Student, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return &stubStudentRepo{students: byID}
}

func (r *stubStudentRepo) List(_ context.Context, filter student.Filter) ([]student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]student.Student, 0, len(r.students))
	for _, item := range r.students {
		if filter.Department != "" && item.Department != filter.Department {
			continue
		}
		if filter.Year != 0 && item.Year != filter.Year {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *stubStudentRepo) GetByID(_ context.Context, id string) (student.Student, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.students[id]
	return item, ok, nil
}

func (r *stubStudentRepo) GetByRegNo(_ context.Context, regNo string) (student.Student, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.students {
		if item.RegNo == regNo {
			return item, true, nil
		}
	}
	return student.Student{}, false, nil
}

func (r *stubStudentRepo) Create(_ context.Context, item student.Student) (student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.students[item.ID] = item
	return item, nil
}

func (r *stubStudentRepo) Update(_ context.Context, item student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.students[item.ID] = item
	return nil
}

func (r *stubStudentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.students, id)
	return nil
}

func (r *stubStudentRepo) UpsertStats(_ context.Context, id string, profile stats.ProfileStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := r.students[id]
	now := time.Now().UTC()
	item.Stats = profile.Clone()
	item.LastUpdated = &now
	r.students[id] = item
	r.upserts++
	return nil
}

type stubPerformanceRepo struct {
	mu   sync.Mutex
	keys map[string]contest.Performance
}

func newStubPerformanceRepo() *stubPerformanceRepo {
	return &stubPerformanceRepo{keys: make(map[string]contest.Performance)}
}

func (r *stubPerformanceRepo) InsertIfAbsent(_ context.Context, item contest.Performance) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(item.RegNo + "|" + string(item.Platform) + "|" + item.ContestName)
	if _, exists := r.keys[key]; exists {
		return false, nil
	}
	r.keys[key] = item
	return true, nil
}

func (r *stubPerformanceRepo) ListByStudent(_ context.Context, regNo string) ([]contest.Performance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]contest.Performance, 0, len(r.keys))
	for _, item := range r.keys {
		if item.RegNo == regNo {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *stubPerformanceRepo) ListByPlatform(_ context.Context, platform stats.Platform) ([]contest.Performance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]contest.Performance, 0, len(r.keys))
	for _, item := range r.keys {
		if item.Platform == platform {
			out = append(out, item)
		}
	}
	return out, nil
}

func newRefreshFixture(t *testing.T, repo *stubStudentRepo, perf *stubPerformanceRepo, clients ...PlatformClient) *RefreshService {
	t.Helper()

	aggregator := newAggregator(t, clients...)
	service, err := NewRefreshService(repo, perf, aggregator, nil, logging.NewNop(), 4)
	if err != nil {
		t.Fatalf("NewRefreshService: %v", err)
	}
	return service
}

func TestRefreshAll_UpsertsStatsAndRecordsHistory(t *testing.T) {
	t.Parallel()

	history := []stats.ContestResult{
		{ContestName: "Weekly Contest 301", Date: time.Date(2024, 7, 3, 2, 30, 0, 0, time.UTC), RatingAfter: 1844, Rank: 950, ProblemsSolved: 3},
	}
	repo := newStubStudentRepo(student.Student{
		ID:    "s1",
		RegNo: "21CS001",
		Name:  "Asha",
		Handles: student.Handles{
			LeetCode: "lc_user",
		},
	})
	perf := newStubPerformanceRepo()
	service := newRefreshFixture(t, repo, perf,
		&stubPlatformClient{platform: stats.PlatformLeetCode, record: stats.Record{TotalSolved: 620, History: history}},
	)

	result, err := service.RefreshAll(context.Background(), student.Filter{})
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}

	if result.RefreshedCount != 1 || result.FailedCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.NewPerformances != 1 {
		t.Fatalf("expected one new performance, got %d", result.NewPerformances)
	}

	updated, _, _ := repo.GetByID(context.Background(), "s1")
	if updated.LastUpdated == nil {
		t.Fatal("expected last_updated to be set")
	}
	if updated.Stats[stats.PlatformLeetCode].TotalSolved != 620 {
		t.Fatalf("unexpected stored stats %+v", updated.Stats)
	}

	rows, _ := perf.ListByStudent(context.Background(), "21CS001")
	if len(rows) != 1 {
		t.Fatalf("expected one performance row, got %d", len(rows))
	}
	if rows[0].Date != "2024-07-03" {
		t.Fatalf("expected date partition 2024-07-03, got %s", rows[0].Date)
	}
}

func TestRefreshAll_SecondCycleIsIdempotentForHistory(t *testing.T) {
	t.Parallel()

	history := []stats.ContestResult{
		{ContestName: "Starters 100", Date: time.Date(2024, 8, 16, 0, 0, 0, 0, time.UTC), RatingAfter: 1745},
	}
	repo := newStubStudentRepo(student.Student{
		ID: "s1", RegNo: "21CS001", Handles: student.Handles{CodeChef: "cc_user"},
	})
	perf := newStubPerformanceRepo()
	service := newRefreshFixture(t, repo, perf,
		&stubPlatformClient{platform: stats.PlatformCodeChef, record: stats.Record{History: history}},
	)

	first, err := service.RefreshAll(context.Background(), student.Filter{})
	if err != nil {
		t.Fatalf("first RefreshAll: %v", err)
	}
	second, err := service.RefreshAll(context.Background(), student.Filter{})
	if err != nil {
		t.Fatalf("second RefreshAll: %v", err)
	}

	if first.NewPerformances != 1 {
		t.Fatalf("expected first cycle to insert one row, got %d", first.NewPerformances)
	}
	if second.NewPerformances != 0 {
		t.Fatalf("expected second cycle to insert nothing, got %d", second.NewPerformances)
	}
}

func TestRefreshAll_AllPlatformsFailedKeepsPreviousSnapshot(t *testing.T) {
	t.Parallel()

	previous := stats.ProfileStats{
		stats.PlatformCodeforces: {Platform: stats.PlatformCodeforces, Rating: 1500},
	}
	repo := newStubStudentRepo(student.Student{
		ID: "s1", RegNo: "21CS001", Stats: previous,
		Handles: student.Handles{Codeforces: "cf_user"},
	})
	perf := newStubPerformanceRepo()
	service := newRefreshFixture(t, repo, perf,
		&stubPlatformClient{platform: stats.PlatformCodeforces, err: crerr.Wrap(stats.ErrTransient, "down")},
	)

	result, err := service.RefreshAll(context.Background(), student.Filter{})
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}

	if result.FailedCount != 1 || result.RefreshedCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if repo.upserts != 0 {
		t.Fatal("stats must not be overwritten when every platform fails")
	}
	current, _, _ := repo.GetByID(context.Background(), "s1")
	if current.Stats[stats.PlatformCodeforces].Rating != 1500 {
		t.Fatalf("previous snapshot lost: %+v", current.Stats)
	}
}

func TestRefreshAll_FailedPlatformRetainsPreviousRecord(t *testing.T) {
	t.Parallel()

	previous := stats.ProfileStats{
		stats.PlatformLeetCode:   {Platform: stats.PlatformLeetCode, TotalSolved: 600},
		stats.PlatformCodeforces: {Platform: stats.PlatformCodeforces, Rating: 1500},
	}
	repo := newStubStudentRepo(student.Student{
		ID: "s1", RegNo: "21CS001", Stats: previous,
		Handles: student.Handles{LeetCode: "lc_user", Codeforces: "cf_user"},
	})
	perf := newStubPerformanceRepo()
	service := newRefreshFixture(t, repo, perf,
		&stubPlatformClient{platform: stats.PlatformLeetCode, record: stats.Record{TotalSolved: 620}},
		&stubPlatformClient{platform: stats.PlatformCodeforces, err: crerr.Wrap(stats.ErrTransient, "down")},
	)

	result, err := service.RefreshAll(context.Background(), student.Filter{})
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if result.RefreshedCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	current, _, _ := repo.GetByID(context.Background(), "s1")
	if current.Stats[stats.PlatformLeetCode].TotalSolved != 620 {
		t.Fatalf("fresh record missing: %+v", current.Stats)
	}
	if current.Stats[stats.PlatformCodeforces].Rating != 1500 {
		t.Fatalf("failed platform's previous record was cleared: %+v", current.Stats)
	}
}

func TestRefreshStudent_UnknownIDIsNotFound(t *testing.T) {
	t.Parallel()

	service := newRefreshFixture(t, newStubStudentRepo(), newStubPerformanceRepo(),
		&stubPlatformClient{platform: stats.PlatformLeetCode},
	)

	_, err := service.RefreshStudent(context.Background(), "missing")
	if !crerr.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
