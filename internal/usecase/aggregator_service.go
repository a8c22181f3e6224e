package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

const defaultPlatformFetchTimeout = 15 * time.Second

// AggregatorService fans one student's handles out to every configured
// platform adapter and merges the successful snapshots. A platform that
// fails, whatever the reason, is omitted from the result rather than
// reported as a zeroed record.
type AggregatorService struct {
	clients map[stats.Platform]PlatformClient
	logger  *logging.Logger
	timeout time.Duration
}

func NewAggregatorService(clients []PlatformClient, logger *logging.Logger, timeout time.Duration) (*AggregatorService, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("at least one platform client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = defaultPlatformFetchTimeout
	}

	byPlatform := make(map[stats.Platform]PlatformClient, len(clients))
	for _, client := range clients {
		if client == nil {
			return nil, fmt.Errorf("platform client must not be nil")
		}
		if _, exists := byPlatform[client.Platform()]; exists {
			return nil, fmt.Errorf("duplicate client for platform %s", client.Platform())
		}
		byPlatform[client.Platform()] = client
	}

	return &AggregatorService{
		clients: byPlatform,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Aggregate fetches every platform the handles name concurrently and returns
// the snapshots that succeeded. The slowest platform bounds total latency,
// not the sum. Zero handles yield an empty snapshot with nothing dispatched;
// an empty result for non-empty handles means every fetch failed.
func (s *AggregatorService) Aggregate(ctx context.Context, handles student.Handles) (stats.ProfileStats, error) {
	ctx, span := startUsecaseSpan(ctx, "AggregatorService.Aggregate")
	defer span.End()

	var mu sync.Mutex
	profile := make(stats.ProfileStats, len(s.clients))
	if handles.IsEmpty() {
		return profile, nil
	}

	var wg conc.WaitGroup
	for _, platform := range stats.AllPlatforms {
		client, ok := s.clients[platform]
		if !ok {
			continue
		}
		handle := handles.Get(platform)
		if handle == "" {
			continue
		}

		platform := platform
		wg.Go(func() {
			record, err := s.fetchOne(ctx, client, handle)
			if err != nil {
				s.logger.WarnContext(ctx, "platform fetch failed, omitting from snapshot",
					"platform", platform, "handle", handle, "error", err)
				return
			}
			mu.Lock()
			profile[platform] = record
			mu.Unlock()
		})
	}
	wg.Wait()

	return profile, nil
}

func (s *AggregatorService) fetchOne(ctx context.Context, client PlatformClient, handle string) (stats.Record, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return client.FetchProfile(fetchCtx, handle)
}

// VerifyHandle confirms a handle resolves to a real profile on platform.
// Used at registration time so a typo is rejected before it pollutes every
// later refresh cycle.
func (s *AggregatorService) VerifyHandle(ctx context.Context, platform stats.Platform, handle string) error {
	ctx, span := startUsecaseSpan(ctx, "AggregatorService.VerifyHandle")
	defer span.End()

	client, ok := s.clients[platform]
	if !ok {
		return fmt.Errorf("%w: unsupported platform %s", ErrInvalidInput, platform)
	}
	if handle == "" {
		return fmt.Errorf("%w: handle is required", ErrInvalidInput)
	}

	if _, err := s.fetchOne(ctx, client, handle); err != nil {
		if stats.IsNotFound(err) {
			return fmt.Errorf("%w: %s handle %q does not exist", ErrInvalidInput, platform, handle)
		}
		return fmt.Errorf("%w: verify %s handle %q: %v", ErrDependencyUnavailable, platform, handle, err)
	}
	return nil
}

// Platforms lists the platforms this aggregator can serve, in canonical
// order.
func (s *AggregatorService) Platforms() []stats.Platform {
	out := make([]stats.Platform, 0, len(s.clients))
	for _, platform := range stats.AllPlatforms {
		if _, ok := s.clients[platform]; ok {
			out = append(out, platform)
		}
	}
	return out
}
