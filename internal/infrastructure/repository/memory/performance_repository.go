package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
)

type PerformanceRepository struct {
	mu   sync.RWMutex
	rows []contest.Performance
	keys map[string]struct{}
}

func NewPerformanceRepository() *PerformanceRepository {
	return &PerformanceRepository{keys: make(map[string]struct{})}
}

func performanceKey(item contest.Performance) string {
	return strings.ToLower(item.RegNo) + "|" + string(item.Platform) + "|" + strings.ToLower(item.ContestName)
}

func (r *PerformanceRepository) InsertIfAbsent(_ context.Context, item contest.Performance) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := performanceKey(item)
	if _, exists := r.keys[key]; exists {
		return false, nil
	}
	r.keys[key] = struct{}{}
	r.rows = append(r.rows, item)

	return true, nil
}

func (r *PerformanceRepository) ListByStudent(_ context.Context, regNo string) ([]contest.Performance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contest.Performance, 0, 16)
	for _, item := range r.rows {
		if strings.EqualFold(item.RegNo, regNo) {
			out = append(out, item)
		}
	}
	sortPerformances(out)

	return out, nil
}

func (r *PerformanceRepository) ListByPlatform(_ context.Context, platform stats.Platform) ([]contest.Performance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contest.Performance, 0, 16)
	for _, item := range r.rows {
		if item.Platform == platform {
			out = append(out, item)
		}
	}
	sortPerformances(out)

	return out, nil
}

func sortPerformances(rows []contest.Performance) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].RegNo < rows[j].RegNo
	})
}
