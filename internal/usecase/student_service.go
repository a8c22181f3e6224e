package usecase

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/platform/id"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

// StudentService owns cohort membership. Platform snapshots hang off the
// student row but are written by the refresh flow, not here.
type StudentService struct {
	students   student.Repository
	aggregator *AggregatorService
	ids        id.Generator
	logger     *logging.Logger
}

func NewStudentService(
	students student.Repository,
	aggregator *AggregatorService,
	ids id.Generator,
	logger *logging.Logger,
) (*StudentService, error) {
	if students == nil {
		return nil, fmt.Errorf("student repository is required")
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

	return &StudentService{
		students:   students,
		aggregator: aggregator,
		ids:        ids,
		logger:     logger,
	}, nil
}

type CreateStudentInput struct {
	RegNo      string
	Name       string
	Department string
	Year       int
	Handles    student.Handles
}

// Create registers a student and immediately attempts a first snapshot so
// the new row is never empty for a whole refresh interval. The snapshot
// attempt is best effort.
func (s *StudentService) Create(ctx context.Context, input CreateStudentInput) (student.Student, error) {
	ctx, span := startUsecaseSpan(ctx, "StudentService.Create")
	defer span.End()

	item := student.Student{
		RegNo:      input.RegNo,
		Name:       input.Name,
		Department: input.Department,
		Year:       input.Year,
		Handles:    input.Handles,
		CreatedAt:  time.Now().UTC(),
	}
	if err := item.Validate(); err != nil {
		return student.Student{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	newID, err := s.ids.NewID()
	if err != nil {
		return student.Student{}, fmt.Errorf("generate student id: %w", err)
	}
	item.ID = newID

	created, err := s.students.Create(ctx, item)
	if err != nil {
		if crerr.Is(err, student.ErrDuplicateRegNo) {
			return student.Student{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return student.Student{}, fmt.Errorf("create student reg_no=%s: %w", input.RegNo, err)
	}

	if !created.Handles.IsEmpty() {
		if profile, aggErr := s.aggregator.Aggregate(ctx, created.Handles); aggErr == nil && len(profile) > 0 {
			if upErr := s.students.UpsertStats(ctx, created.ID, profile); upErr != nil {
				s.logger.WarnContext(ctx, "initial stats write failed", "reg_no", created.RegNo, "error", upErr)
			} else {
				created.Stats = profile
			}
		} else if aggErr != nil {
			s.logger.WarnContext(ctx, "initial snapshot failed", "reg_no", created.RegNo, "error", aggErr)
		}
	}

	return created, nil
}

func (s *StudentService) List(ctx context.Context, filter student.Filter) ([]student.Student, error) {
	ctx, span := startUsecaseSpan(ctx, "StudentService.List")
	defer span.End()

	items, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return items, nil
}

func (s *StudentService) Get(ctx context.Context, studentID string) (student.Student, error) {
	ctx, span := startUsecaseSpan(ctx, "StudentService.Get")
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
	return item, nil
}

type UpdateStudentInput struct {
	Name       string
	Department string
	Year       int
	Handles    student.Handles
}

func (s *StudentService) Update(ctx context.Context, studentID string, input UpdateStudentInput) (student.Student, error) {
	ctx, span := startUsecaseSpan(ctx, "StudentService.Update")
	defer span.End()

	item, err := s.Get(ctx, studentID)
	if err != nil {
		return student.Student{}, err
	}

	item.Name = input.Name
	item.Department = input.Department
	item.Year = input.Year
	item.Handles = input.Handles
	if err := item.Validate(); err != nil {
		return student.Student{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.students.Update(ctx, item); err != nil {
		return student.Student{}, fmt.Errorf("update student id=%s: %w", studentID, err)
	}
	return item, nil
}

func (s *StudentService) Delete(ctx context.Context, studentID string) error {
	ctx, span := startUsecaseSpan(ctx, "StudentService.Delete")
	defer span.End()

	if _, err := s.Get(ctx, studentID); err != nil {
		return err
	}
	if err := s.students.Delete(ctx, studentID); err != nil {
		return fmt.Errorf("delete student id=%s: %w", studentID, err)
	}
	return nil
}
