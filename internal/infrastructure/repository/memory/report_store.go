package memory

import (
	"context"
	"fmt"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/harivignesh/cp-tracker/internal/domain/report"
)

// ReportStore keeps report sheets in process memory. Test double for the
// excel store, which the runtime always wires; bytes served by Open are a
// JSON rendering, not a spreadsheet.
type ReportStore struct {
	mu     sync.RWMutex
	files  map[report.Key][]report.Sheet
	locked map[report.Key]bool
}

func NewReportStore() *ReportStore {
	return &ReportStore{
		files:  make(map[report.Key][]report.Sheet),
		locked: make(map[report.Key]bool),
	}
}

// SetLocked marks a file as held open, so writes to it surface the same
// conflict a locked spreadsheet would.
func (s *ReportStore) SetLocked(key report.Key, locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locked[key.Normalize()] = locked
}

func (s *ReportStore) LoadSheets(_ context.Context, key report.Key) ([]report.Sheet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sheets, ok := s.files[key.Normalize()]
	if !ok {
		return nil, false, nil
	}
	out := make([]report.Sheet, 0, len(sheets))
	for _, sheet := range sheets {
		out = append(out, sheet.Clone())
	}

	return out, true, nil
}

func (s *ReportStore) WriteSheets(_ context.Context, key report.Key, sheets []report.Sheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := key.Normalize()
	if s.locked[normalized] {
		return fmt.Errorf("%w: %s/%s/%s", report.ErrFileLocked, normalized.Department, normalized.Year, normalized.Type)
	}

	stored := make([]report.Sheet, 0, len(sheets))
	for _, sheet := range sheets {
		stored = append(stored, sheet.Clone())
	}
	s.files[normalized] = stored

	return nil
}

// Render serializes sheets the same way Open does, for on-demand exports.
func (s *ReportStore) Render(sheets []report.Sheet) ([]byte, error) {
	raw, err := sonic.Marshal(sheets)
	if err != nil {
		return nil, fmt.Errorf("render sheets: %w", err)
	}
	return raw, nil
}

func (s *ReportStore) Open(_ context.Context, key report.Key) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sheets, ok := s.files[key.Normalize()]
	if !ok {
		return nil, false, nil
	}
	raw, err := sonic.Marshal(sheets)
	if err != nil {
		return nil, false, fmt.Errorf("render stored sheets: %w", err)
	}

	return raw, true, nil
}
