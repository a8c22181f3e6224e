package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

type stubPlatformClient struct {
	platform stats.Platform
	record   stats.Record
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (s *stubPlatformClient) Platform() stats.Platform { return s.platform }

func (s *stubPlatformClient) FetchProfile(ctx context.Context, handle string) (stats.Record, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return stats.Record{}, ctx.Err()
		}
	}
	if s.err != nil {
		return stats.Record{}, s.err
	}
	record := s.record
	record.Platform = s.platform
	record.Handle = handle
	return record, nil
}

func newAggregator(t *testing.T, clients ...PlatformClient) *AggregatorService {
	t.Helper()

	service, err := NewAggregatorService(clients, logging.NewNop(), time.Second)
	if err != nil {
		t.Fatalf("NewAggregatorService: %v", err)
	}
	return service
}

func TestAggregate_FailedPlatformIsOmittedNotZeroed(t *testing.T) {
	t.Parallel()

	service := newAggregator(t,
		&stubPlatformClient{platform: stats.PlatformLeetCode, record: stats.Record{TotalSolved: 100}},
		&stubPlatformClient{platform: stats.PlatformCodeforces, err: crerr.Wrap(stats.ErrTransient, "codeforces down")},
		&stubPlatformClient{platform: stats.PlatformCodeChef, record: stats.Record{TotalSolved: 50}},
	)

	profile, err := service.Aggregate(context.Background(), student.Handles{
		LeetCode:   "lc_user",
		Codeforces: "cf_user",
		CodeChef:   "cc_user",
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if len(profile) != 2 {
		t.Fatalf("expected two platforms, got %d", len(profile))
	}
	if _, present := profile[stats.PlatformCodeforces]; present {
		t.Fatal("failed platform must be absent from the snapshot")
	}
	if profile[stats.PlatformLeetCode].TotalSolved != 100 {
		t.Fatalf("unexpected leetcode record %+v", profile[stats.PlatformLeetCode])
	}
}

func TestAggregate_SkipsPlatformsWithoutHandles(t *testing.T) {
	t.Parallel()

	leetcode := &stubPlatformClient{platform: stats.PlatformLeetCode}
	codeforces := &stubPlatformClient{platform: stats.PlatformCodeforces}
	service := newAggregator(t, leetcode, codeforces)

	profile, err := service.Aggregate(context.Background(), student.Handles{Codeforces: "cf_user"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if leetcode.calls.Load() != 0 {
		t.Fatal("platform without a handle must not be fetched")
	}
	if len(profile) != 1 {
		t.Fatalf("expected one platform, got %d", len(profile))
	}
}

func TestAggregate_EmptyHandlesYieldsEmptySnapshot(t *testing.T) {
	t.Parallel()

	leetcode := &stubPlatformClient{platform: stats.PlatformLeetCode}
	service := newAggregator(t, leetcode)

	profile, err := service.Aggregate(context.Background(), student.Handles{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(profile) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", profile)
	}
	if leetcode.calls.Load() != 0 {
		t.Fatal("no platform may be fetched without handles")
	}
}

func TestAggregate_RunsPlatformsConcurrently(t *testing.T) {
	t.Parallel()

	delay := 150 * time.Millisecond
	service := newAggregator(t,
		&stubPlatformClient{platform: stats.PlatformLeetCode, delay: delay},
		&stubPlatformClient{platform: stats.PlatformCodeforces, delay: delay},
		&stubPlatformClient{platform: stats.PlatformCodeChef, delay: delay},
		&stubPlatformClient{platform: stats.PlatformHackerRank, delay: delay},
	)

	start := time.Now()
	profile, err := service.Aggregate(context.Background(), student.Handles{
		LeetCode:   "a",
		Codeforces: "b",
		CodeChef:   "c",
		HackerRank: "d",
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	elapsed := time.Since(start)

	if len(profile) != 4 {
		t.Fatalf("expected four platforms, got %d", len(profile))
	}
	// Sequential execution would take at least 4x the per-platform delay.
	if elapsed >= 3*delay {
		t.Fatalf("platform fetches appear sequential, elapsed=%v", elapsed)
	}
}

func TestVerifyHandle_Classification(t *testing.T) {
	t.Parallel()

	service := newAggregator(t,
		&stubPlatformClient{platform: stats.PlatformLeetCode},
		&stubPlatformClient{platform: stats.PlatformCodeforces, err: crerr.Wrap(stats.ErrProfileNotFound, "no such user")},
		&stubPlatformClient{platform: stats.PlatformCodeChef, err: crerr.Wrap(stats.ErrTransient, "timeout")},
	)

	if err := service.VerifyHandle(context.Background(), stats.PlatformLeetCode, "real_user"); err != nil {
		t.Fatalf("expected existing handle to verify, got %v", err)
	}

	err := service.VerifyHandle(context.Background(), stats.PlatformCodeforces, "ghost")
	if !crerr.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing profile, got %v", err)
	}

	err = service.VerifyHandle(context.Background(), stats.PlatformCodeChef, "someone")
	if !crerr.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable for transient failure, got %v", err)
	}

	err = service.VerifyHandle(context.Background(), stats.PlatformHackerRank, "someone")
	if !crerr.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unsupported platform, got %v", err)
	}
}
