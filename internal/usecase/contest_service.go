package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/platform/cache"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

const (
	upcomingCacheKey     = "contests:upcoming"
	defaultFeedHorizon   = 30 * 24 * time.Hour
	maxUpcomingContests  = 10
	defaultUpcomingCache = 10 * time.Minute
)

// ContestService merges the public contest calendars. A feed that fails is
// skipped; the merged list is whatever the healthy feeds returned.
type ContestService struct {
	feeds   []UpcomingContestsClient
	store   *cache.Store
	logger  *logging.Logger
	horizon time.Duration
}

func NewContestService(feeds []UpcomingContestsClient, store *cache.Store, logger *logging.Logger) (*ContestService, error) {
	if len(feeds) == 0 {
		return nil, fmt.Errorf("at least one contest feed is required")
	}
	if store == nil {
		store = cache.NewStore(defaultUpcomingCache)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ContestService{
		feeds:   feeds,
		store:   store,
		logger:  logger,
		horizon: defaultFeedHorizon,
	}, nil
}

// Upcoming returns the next contests across all feeds, soonest first, capped
// at ten. Served from the TTL cache between refreshes.
func (s *ContestService) Upcoming(ctx context.Context) ([]contest.Upcoming, error) {
	ctx, span := startUsecaseSpan(ctx, "ContestService.Upcoming")
	defer span.End()

	value, err := s.store.GetOrLoad(ctx, upcomingCacheKey, func(ctx context.Context) (any, error) {
		return s.fetchMerged(ctx), nil
	})
	if err != nil {
		return nil, err
	}

	merged, ok := value.([]contest.Upcoming)
	if !ok {
		return nil, fmt.Errorf("unexpected cached value type %T", value)
	}
	out := make([]contest.Upcoming, len(merged))
	copy(out, merged)

	return out, nil
}

func (s *ContestService) fetchMerged(ctx context.Context) []contest.Upcoming {
	var mu sync.Mutex
	merged := make([]contest.Upcoming, 0, 32)

	var wg conc.WaitGroup
	for _, feed := range s.feeds {
		feed := feed
		wg.Go(func() {
			items, err := feed.FetchUpcomingContests(ctx, s.horizon)
			if err != nil {
				s.logger.WarnContext(ctx, "contest feed failed, skipping", "error", err)
				return
			}
			mu.Lock()
			merged = append(merged, items...)
			mu.Unlock()
		})
	}
	wg.Wait()

	sort.Slice(merged, func(i, j int) bool { return merged[i].StartTime.Before(merged[j].StartTime) })
	if len(merged) > maxUpcomingContests {
		merged = merged[:maxUpcomingContests]
	}
	return merged
}
