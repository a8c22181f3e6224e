package usecase

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/report"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

// ReconcileService merges freshly built sheets into the persisted report
// file for a key. The write is always a full delete-then-write of every
// sheet: partial in-place edits of a spreadsheet are how historical rows get
// corrupted.
type ReconcileService struct {
	store  report.Store
	logger *logging.Logger
	now    func() time.Time
}

func NewReconcileService(store report.Store, logger *logging.Logger) (*ReconcileService, error) {
	if store == nil {
		return nil, fmt.Errorf("report store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ReconcileService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// MergeAndPersist folds newSheets into the stored file for key and returns
// the names of every sheet now present, in stored order.
//
// Merge rules per sheet:
//   - contest report: the new sheet replaces its stored counterpart whole,
//     whatever columns it carries. One sheet per contest, latest snapshot wins.
//   - stored sheet with a date column: drop stored rows dated today, then
//     append the new rows. Rows for other dates survive untouched.
//   - stored sheet without a date column, or no stored counterpart: the new
//     sheet replaces or becomes the whole content.
//
// Failures propagate; there is no partial success. A locked target file is
// ErrConflict.
func (s *ReconcileService) MergeAndPersist(ctx context.Context, key report.Key, newSheets []report.Sheet) ([]string, error) {
	ctx, span := startUsecaseSpan(ctx, "ReconcileService.MergeAndPersist")
	defer span.End()

	if len(newSheets) == 0 {
		return nil, fmt.Errorf("%w: at least one sheet is required", ErrInvalidInput)
	}
	key = key.Normalize()

	existing, found, err := s.store.LoadSheets(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load report %s/%s/%s: %w", key.Department, key.Year, key.Type, err)
	}
	if !found {
		existing = nil
	}

	today := s.now().Format("2006-01-02")
	merged := mergeSheets(existing, newSheets, today, key.Type == report.TypeContest)

	if err := s.store.WriteSheets(ctx, key, merged); err != nil {
		if crerr.Is(err, report.ErrFileLocked) {
			return nil, fmt.Errorf("%w: report %s/%s/%s is open elsewhere", ErrConflict, key.Department, key.Year, key.Type)
		}
		return nil, fmt.Errorf("write report %s/%s/%s: %w", key.Department, key.Year, key.Type, err)
	}

	names := make([]string, 0, len(merged))
	for _, sheet := range merged {
		names = append(names, sheet.Name)
	}

	s.logger.InfoContext(ctx, "report reconciled",
		"department", key.Department, "year", key.Year, "type", key.Type,
		"sheets", len(names))

	return names, nil
}

// OpenReport returns the stored workbook bytes for download. A report that
// has never been built is ErrNotFound so the caller can tell the user to
// build it first.
func (s *ReconcileService) OpenReport(ctx context.Context, key report.Key) ([]byte, error) {
	ctx, span := startUsecaseSpan(ctx, "ReconcileService.OpenReport")
	defer span.End()

	key = key.Normalize()
	raw, found, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open report %s/%s/%s: %w", key.Department, key.Year, key.Type, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: report %s/%s/%s has not been built yet, run an update first", ErrNotFound, key.Department, key.Year, key.Type)
	}
	return raw, nil
}

func mergeSheets(existing, incoming []report.Sheet, today string, replaceWhole bool) []report.Sheet {
	merged := make([]report.Sheet, 0, len(existing)+len(incoming))
	incomingByName := make(map[string]report.Sheet, len(incoming))
	for _, sheet := range incoming {
		incomingByName[sheet.Name] = sheet
	}

	replaced := make(map[string]struct{}, len(incoming))
	for _, stored := range existing {
		fresh, hasFresh := incomingByName[stored.Name]
		if !hasFresh {
			merged = append(merged, stored.Clone())
			continue
		}
		replaced[stored.Name] = struct{}{}

		dateCol := stored.DateColumn()
		if replaceWhole || dateCol < 0 {
			merged = append(merged, fresh.Clone())
			continue
		}

		combined := report.Sheet{Name: fresh.Name, Header: append([]string(nil), fresh.Header...)}
		for _, row := range stored.Rows {
			if dateCol < len(row) && row[dateCol] == today {
				continue
			}
			combined.Rows = append(combined.Rows, append([]string(nil), row...))
		}
		for _, row := range fresh.Rows {
			combined.Rows = append(combined.Rows, append([]string(nil), row...))
		}
		merged = append(merged, combined)
	}

	for _, sheet := range incoming {
		if _, done := replaced[sheet.Name]; done {
			continue
		}
		merged = append(merged, sheet.Clone())
	}

	return merged
}
