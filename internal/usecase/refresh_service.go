package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/platform/id"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

const (
	defaultRefreshWorkers = 5
	maxRefreshWorkers     = 20
)

// RefreshService re-fetches platform snapshots for students and folds newly
// observed contest participations into the immutable history table.
type RefreshService struct {
	students     student.Repository
	performances contest.PerformanceRepository
	aggregator   *AggregatorService
	ids          id.Generator
	logger       *logging.Logger
	maxWorkers   int
}

func NewRefreshService(
	students student.Repository,
	performances contest.PerformanceRepository,
	aggregator *AggregatorService,
	ids id.Generator,
	logger *logging.Logger,
	maxWorkers int,
) (*RefreshService, error) {
	if students == nil {
		return nil, fmt.Errorf("student repository is required")
	}
	if performances == nil {
		return nil, fmt.Errorf("performance repository is required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator service is required")
	}
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if maxWorkers < 1 {
		maxWorkers = defaultRefreshWorkers
	}
	if maxWorkers > maxRefreshWorkers {
		maxWorkers = maxRefreshWorkers
	}

	return &RefreshService{
		students:     students,
		performances: performances,
		aggregator:   aggregator,
		ids:          ids,
		logger:       logger,
		maxWorkers:   maxWorkers,
	}, nil
}

type RefreshResult struct {
	StudentCount    int   `json:"student_count"`
	RefreshedCount  int   `json:"refreshed_count"`
	FailedCount     int   `json:"failed_count"`
	SkippedCount    int   `json:"skipped_count"`
	NewPerformances int   `json:"new_performances"`
	DurationMs      int64 `json:"duration_ms"`
}

// RefreshAll re-fetches every student's platforms through a bounded worker
// pool. A student whose every platform fetch fails keeps their previous
// snapshot untouched.
func (s *RefreshService) RefreshAll(ctx context.Context, filter student.Filter) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "RefreshService.RefreshAll")
	defer span.End()

	start := time.Now()
	cohort, err := s.students.List(ctx, filter)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("list students: %w", err)
	}

	result := RefreshResult{StudentCount: len(cohort)}
	if len(cohort) == 0 {
		result.DurationMs = time.Since(start).Milliseconds()
		return result, nil
	}

	workerCount := s.maxWorkers
	if workerCount > len(cohort) {
		workerCount = len(cohort)
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var refreshed, failed, skipped, inserted atomic.Int32
	var workers sync.WaitGroup
	for _, item := range cohort {
		item := item
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			if item.Handles.IsEmpty() {
				skipped.Add(1)
				return
			}

			newRows, refreshErr := s.refreshOne(ctx, item)
			if refreshErr != nil {
				failed.Add(1)
				s.logger.WarnContext(ctx, "student refresh failed",
					"reg_no", item.RegNo, "error", refreshErr)
				return
			}
			refreshed.Add(1)
			inserted.Add(int32(newRows))
		}); err != nil {
			workers.Done()
			return RefreshResult{}, fmt.Errorf("submit refresh task: %w", err)
		}
	}
	workers.Wait()

	result.RefreshedCount = int(refreshed.Load())
	result.FailedCount = int(failed.Load())
	result.SkippedCount = int(skipped.Load())
	result.NewPerformances = int(inserted.Load())
	result.DurationMs = time.Since(start).Milliseconds()

	s.logger.InfoContext(ctx, "refresh cycle finished",
		"students", result.StudentCount,
		"refreshed", result.RefreshedCount,
		"failed", result.FailedCount,
		"new_performances", result.NewPerformances,
		"duration_ms", result.DurationMs)

	return result, nil
}

// RefreshStudent refreshes a single student by id, on demand.
func (s *RefreshService) RefreshStudent(ctx context.Context, studentID string) (student.Student, error) {
	ctx, span := startUsecaseSpan(ctx, "RefreshService.RefreshStudent")
	defer span.End()

	if studentID == "" {
		return student.Student{}, fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}

	item, found, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return student.Student{}, fmt.Errorf("get student id=%s: %w", studentID, err)
	}
	if !found {
		return student.Student{}, fmt.Errorf("%w: student id=%s", ErrNotFound, studentID)
	}
	if item.Handles.IsEmpty() {
		return student.Student{}, fmt.Errorf("%w: student %s has no platform handles", ErrInvalidInput, item.RegNo)
	}

	if _, err := s.refreshOne(ctx, item); err != nil {
		return student.Student{}, err
	}

	updated, _, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return student.Student{}, fmt.Errorf("reload student id=%s: %w", studentID, err)
	}
	return updated, nil
}

// ListPerformances returns the recorded contest participations of one
// student, oldest first.
func (s *RefreshService) ListPerformances(ctx context.Context, studentID string) ([]contest.Performance, error) {
	ctx, span := startUsecaseSpan(ctx, "RefreshService.ListPerformances")
	defer span.End()

	if studentID == "" {
		return nil, fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}

	item, found, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student id=%s: %w", studentID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: student id=%s", ErrNotFound, studentID)
	}

	rows, err := s.performances.ListByStudent(ctx, item.RegNo)
	if err != nil {
		return nil, fmt.Errorf("list performances reg_no=%s: %w", item.RegNo, err)
	}
	return rows, nil
}

func (s *RefreshService) refreshOne(ctx context.Context, item student.Student) (int, error) {
	profile, err := s.aggregator.Aggregate(ctx, item.Handles)
	if err != nil {
		return 0, fmt.Errorf("aggregate reg_no=%s: %w", item.RegNo, err)
	}
	if len(profile) == 0 {
		return 0, fmt.Errorf("%w: every platform fetch failed for reg_no=%s", ErrDependencyUnavailable, item.RegNo)
	}

	if err := s.students.UpsertStats(ctx, item.ID, retainFailedPlatforms(item, profile)); err != nil {
		return 0, fmt.Errorf("upsert stats reg_no=%s: %w", item.RegNo, err)
	}

	inserted, err := s.recordPerformances(ctx, item.RegNo, profile)
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// retainFailedPlatforms keeps the previous record of every platform the
// student still has a handle for but that is missing from the fresh snapshot.
// A platform down for one cycle must not wipe its cached value.
func retainFailedPlatforms(item student.Student, fresh stats.ProfileStats) stats.ProfileStats {
	merged := fresh.Clone()
	for _, platform := range stats.AllPlatforms {
		if _, ok := merged[platform]; ok {
			continue
		}
		if item.Handles.Get(platform) == "" {
			continue
		}
		if previous, ok := item.Stats[platform]; ok {
			merged[platform] = previous
		}
	}
	return merged
}

// recordPerformances appends history entries not seen before. The insert is
// keyed on (reg no, platform, contest name), so re-observing an old contest
// on a later cycle is a no-op and past rows are never rewritten.
func (s *RefreshService) recordPerformances(ctx context.Context, regNo string, profile stats.ProfileStats) (int, error) {
	inserted := 0
	for _, platform := range stats.AllPlatforms {
		record, ok := profile[platform]
		if !ok {
			continue
		}
		for _, entry := range record.History {
			if entry.ContestName == "" {
				continue
			}
			rowID, err := s.ids.NewID()
			if err != nil {
				return inserted, fmt.Errorf("generate performance id: %w", err)
			}
			row := contest.Performance{
				ID:             rowID,
				RegNo:          regNo,
				Platform:       platform,
				ContestName:    entry.ContestName,
				Date:           entry.Date.UTC().Format("2006-01-02"),
				Rating:         entry.RatingAfter,
				Rank:           entry.Rank,
				ProblemsSolved: entry.ProblemsSolved,
				CreatedAt:      time.Now().UTC(),
			}
			created, err := s.performances.InsertIfAbsent(ctx, row)
			if err != nil {
				return inserted, fmt.Errorf("insert performance reg_no=%s contest=%q: %w", regNo, entry.ContestName, err)
			}
			if created {
				inserted++
			}
		}
	}
	return inserted, nil
}
