package student

import (
	"context"
	"errors"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
)

// ErrDuplicateRegNo signals a create with a reg no that is already tracked.
var ErrDuplicateRegNo = errors.New("student reg no already exists")

// Filter narrows cohort queries. Zero values mean "all".
type Filter struct {
	Department string
	Year       int
}

// Repository describes student persistence needs from use cases.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Student, error)
	GetByID(ctx context.Context, id string) (Student, bool, error)
	GetByRegNo(ctx context.Context, regNo string) (Student, bool, error)
	Create(ctx context.Context, item Student) (Student, error)
	Update(ctx context.Context, item Student) error
	Delete(ctx context.Context, id string) error

	// UpsertStats replaces the student's cached profile stats wholesale and
	// bumps the last-updated timestamp. Scoped to a single student so
	// concurrent refreshes of different students never contend.
	UpsertStats(ctx context.Context, id string, profile stats.ProfileStats) error
}
