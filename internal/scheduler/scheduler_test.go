package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/infrastructure/repository/memory"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/usecase"
)

type fixedClient struct {
	platform stats.Platform
	record   stats.Record
}

func (c *fixedClient) Platform() stats.Platform { return c.platform }

func (c *fixedClient) FetchProfile(_ context.Context, handle string) (stats.Record, error) {
	record := c.record
	record.Platform = c.platform
	record.Handle = handle
	return record, nil
}

func newSchedulerFixture(t *testing.T, cfg Config) (*Scheduler, *memory.StudentRepository) {
	t.Helper()

	students := memory.NewStudentRepository([]student.Student{
		{ID: "s1", RegNo: "21CS001", Name: "Asha", Department: "CSE", Year: 3,
			Handles: student.Handles{LeetCode: "asha_lc"}},
	})
	performances := memory.NewPerformanceRepository()

	aggregator, err := usecase.NewAggregatorService(
		[]usecase.PlatformClient{&fixedClient{
			platform: stats.PlatformLeetCode,
			record: stats.Record{TotalSolved: 100, History: []stats.ContestResult{
				{ContestName: "Weekly Contest 301", Date: time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)},
			}},
		}},
		logging.NewNop(), time.Second)
	if err != nil {
		t.Fatalf("NewAggregatorService: %v", err)
	}

	refresh, err := usecase.NewRefreshService(students, performances, aggregator, nil, logging.NewNop(), 2)
	if err != nil {
		t.Fatalf("NewRefreshService: %v", err)
	}

	sched, err := New(refresh, nil, logging.NewNop(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sched, students
}

func TestScheduler_RunOnStartRefreshesCohort(t *testing.T) {
	t.Parallel()

	sched, students := newSchedulerFixture(t, Config{
		RefreshInterval:   time.Hour,
		HeartbeatInterval: time.Hour,
		RunOnStart:        true,
	})

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		item, _, _ := students.GetByID(context.Background(), "s1")
		if item.LastUpdated != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("startup cycle never refreshed the student")
		case <-time.After(10 * time.Millisecond):
		}
	}

	sched.Stop()

	item, _, _ := students.GetByID(context.Background(), "s1")
	if item.Stats[stats.PlatformLeetCode].TotalSolved != 100 {
		t.Fatalf("unexpected stored stats %+v", item.Stats)
	}
}

func TestScheduler_StartTwiceIsAnError(t *testing.T) {
	t.Parallel()

	sched, _ := newSchedulerFixture(t, Config{
		RefreshInterval:   time.Hour,
		HeartbeatInterval: time.Hour,
	})

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer sched.Stop()

	if err := sched.Start(context.Background()); err == nil {
		t.Fatal("second Start must fail while running")
	}
}

func TestScheduler_StopIsIdempotentAndRestartable(t *testing.T) {
	t.Parallel()

	sched, _ := newSchedulerFixture(t, Config{
		RefreshInterval:   time.Hour,
		HeartbeatInterval: time.Hour,
	})

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sched.Stop()
	sched.Stop()

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("restart after Stop: %v", err)
	}
	sched.Stop()
}

func TestScheduler_TickerDrivenCycle(t *testing.T) {
	t.Parallel()

	sched, students := newSchedulerFixture(t, Config{
		RefreshInterval:   50 * time.Millisecond,
		HeartbeatInterval: time.Hour,
	})

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sched.Stop()

	deadline := time.After(2 * time.Second)
	for {
		item, _, _ := students.GetByID(context.Background(), "s1")
		if item.LastUpdated != nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("ticker cycle never refreshed the student")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
