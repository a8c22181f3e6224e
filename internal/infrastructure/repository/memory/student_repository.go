package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
)

type StudentRepository struct {
	mu   sync.RWMutex
	byID map[string]student.Student
}

func NewStudentRepository(seed []student.Student) *StudentRepository {
	byID := make(map[string]student.Student, len(seed))
	for _, item := range seed {
		byID[item.ID] = item
	}
	return &StudentRepository{byID: byID}
}

func (r *StudentRepository) List(_ context.Context, filter student.Filter) ([]student.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]student.Student, 0, len(r.byID))
	for _, item := range r.byID {
		if filter.Department != "" && !strings.EqualFold(item.Department, filter.Department) {
			continue
		}
		if filter.Year != 0 && item.Year != filter.Year {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegNo < out[j].RegNo })

	return out, nil
}

func (r *StudentRepository) GetByID(_ context.Context, id string) (student.Student, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byID[id]
	return item, ok, nil
}

func (r *StudentRepository) GetByRegNo(_ context.Context, regNo string) (student.Student, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.byID {
		if strings.EqualFold(item.RegNo, regNo) {
			return item, true, nil
		}
	}
	return student.Student{}, false, nil
}

func (r *StudentRepository) Create(_ context.Context, item student.Student) (student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if strings.EqualFold(existing.RegNo, item.RegNo) {
			return student.Student{}, fmt.Errorf("%w: %s", student.ErrDuplicateRegNo, item.RegNo)
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	r.byID[item.ID] = item

	return item, nil
}

func (r *StudentRepository) Update(_ context.Context, item student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[item.ID]; !ok {
		return fmt.Errorf("student id=%s does not exist", item.ID)
	}
	r.byID[item.ID] = item

	return nil
}

func (r *StudentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, id)
	return nil
}

func (r *StudentRepository) UpsertStats(_ context.Context, id string, profile stats.ProfileStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("student id=%s does not exist", id)
	}
	now := time.Now().UTC()
	item.Stats = profile.Clone()
	item.LastUpdated = &now
	r.byID[id] = item

	return nil
}
