package contest

import (
	"context"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
)

// PerformanceRepository persists historical contest participations.
type PerformanceRepository interface {
	// InsertIfAbsent stores the record unless one already exists for the
	// (reg no, platform, contest name) triple. Returns whether a row was
	// actually inserted. Existing rows are never modified.
	InsertIfAbsent(ctx context.Context, item Performance) (bool, error)

	ListByStudent(ctx context.Context, regNo string) ([]Performance, error)
	ListByPlatform(ctx context.Context, platform stats.Platform) ([]Performance, error)
}
