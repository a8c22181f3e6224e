package usecase

import (
	"context"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/report"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/infrastructure/repository/memory"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

func newReconcileFixture(t *testing.T, store report.Store) *ReconcileService {
	t.Helper()

	service, err := NewReconcileService(store, logging.NewNop())
	if err != nil {
		t.Fatalf("NewReconcileService: %v", err)
	}
	return service
}

func dailySheet(rows [][]string) report.Sheet {
	return report.Sheet{
		Name:   "Daily Performance",
		Header: []string{"Reg No", "Name", "Date", "Solved"},
		Rows:   rows,
	}
}

func TestMergeAndPersist_DatePartitionReplace(t *testing.T) {
	t.Parallel()

	store := memory.NewReportStore()
	key := report.Key{Department: "CSE", Year: "2025", Type: report.TypePerformance}
	ctx := context.Background()

	// Seed the store with rows for two dates.
	seed := dailySheet([][]string{
		{"21CS001", "Asha", "2025-05-31", "210"},
		{"21CS002", "Bala", "2025-05-31", "180"},
		{"21CS001", "Asha", "2025-06-01", "215"},
	})
	if err := store.WriteSheets(ctx, key, []report.Sheet{seed}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	service := newReconcileFixture(t, store)
	service.now = func() time.Time { return time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC) }

	fresh := dailySheet([][]string{
		{"21CS001", "Asha", "2025-06-01", "220"},
		{"21CS002", "Bala", "2025-06-01", "185"},
		{"21CS003", "Charu", "2025-06-01", "90"},
	})
	names, err := service.MergeAndPersist(ctx, key, []report.Sheet{fresh})
	if err != nil {
		t.Fatalf("MergeAndPersist: %v", err)
	}
	if len(names) != 1 || names[0] != "Daily Performance" {
		t.Fatalf("unexpected sheet names %v", names)
	}

	sheets, found, err := store.LoadSheets(ctx, key)
	if err != nil || !found {
		t.Fatalf("LoadSheets: found=%v err=%v", found, err)
	}

	rows := sheets[0].Rows
	if len(rows) != 5 {
		t.Fatalf("expected 2 old-date + 3 new-date rows, got %d: %v", len(rows), rows)
	}
	oldDate, newDate := 0, 0
	for _, row := range rows {
		switch row[2] {
		case "2025-05-31":
			oldDate++
		case "2025-06-01":
			newDate++
			if row[0] == "21CS001" && row[3] != "220" {
				t.Fatalf("stale same-date row survived: %v", row)
			}
		}
	}
	if oldDate != 2 || newDate != 3 {
		t.Fatalf("expected 2 old / 3 new rows, got %d/%d", oldDate, newDate)
	}
}

func TestMergeAndPersist_UndatedSheetIsReplacedWhole(t *testing.T) {
	t.Parallel()

	store := memory.NewReportStore()
	key := report.Key{Department: "CSE", Year: "2025", Type: report.TypeContest}
	ctx := context.Background()

	stale := report.Sheet{
		Name:   "cod_starters100",
		Header: []string{"S.No", "Reg No", "Rank"},
		Rows:   [][]string{{"1", "21CS001", "500"}},
	}
	if err := store.WriteSheets(ctx, key, []report.Sheet{stale}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	service := newReconcileFixture(t, store)
	fresh := report.Sheet{
		Name:   "cod_starters100",
		Header: []string{"S.No", "Reg No", "Rank"},
		Rows: [][]string{
			{"1", "21CS001", "430"},
			{"2", "21CS002", "Absent"},
		},
	}
	if _, err := service.MergeAndPersist(ctx, key, []report.Sheet{fresh}); err != nil {
		t.Fatalf("MergeAndPersist: %v", err)
	}

	sheets, _, _ := store.LoadSheets(ctx, key)
	if len(sheets) != 1 || len(sheets[0].Rows) != 2 {
		t.Fatalf("expected full replacement, got %+v", sheets)
	}
	if sheets[0].Rows[0][2] != "430" {
		t.Fatalf("stale snapshot survived: %v", sheets[0].Rows)
	}
}

func TestMergeAndPersist_RebuiltContestSheetReplacesSnapshot(t *testing.T) {
	t.Parallel()

	repo := newStubStudentRepo(student.Student{
		ID: "s1", RegNo: "21CS001", Name: "Asha",
		Handles: student.Handles{CodeChef: "asha_cc"},
		Stats: stats.ProfileStats{
			stats.PlatformCodeChef: {
				Platform: stats.PlatformCodeChef,
				Handle:   "asha_cc",
				History: []stats.ContestResult{
					{ContestName: "Starters 100 (Rated)", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), RatingAfter: 1745, Rank: 312, ProblemsSolved: 4},
				},
			},
		},
	})
	reports, err := NewReportService(repo, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewReportService: %v", err)
	}

	store := memory.NewReportStore()
	service := newReconcileFixture(t, store)
	key := report.Key{Department: "CSE", Year: "2025", Type: report.TypeContest}
	ctx := context.Background()

	// Two update runs on consecutive days, each persisting the rebuilt sheet
	// under its slug the way the update flow does.
	for day := 1; day <= 2; day++ {
		sheet, buildErr := reports.BuildContestSheet(ctx, stats.PlatformCodeChef, "Starters 100", student.Filter{})
		if buildErr != nil {
			t.Fatalf("BuildContestSheet day %d: %v", day, buildErr)
		}
		sheet.Name = ContestSheetSlug(stats.PlatformCodeChef, "Starters 100")

		service.now = func() time.Time { return time.Date(2025, 6, day, 9, 0, 0, 0, time.UTC) }
		names, mergeErr := service.MergeAndPersist(ctx, key, []report.Sheet{sheet})
		if mergeErr != nil {
			t.Fatalf("MergeAndPersist day %d: %v", day, mergeErr)
		}
		if len(names) != 1 || names[0] != "cod_starters100" {
			t.Fatalf("expected a single slug-named sheet, got %v", names)
		}
	}

	sheets, found, err := store.LoadSheets(ctx, key)
	if err != nil || !found {
		t.Fatalf("LoadSheets: found=%v err=%v", found, err)
	}
	if len(sheets) != 1 {
		t.Fatalf("expected one stored sheet, got %d", len(sheets))
	}
	// The rebuilt sheet carries a Date column; the snapshot must still be
	// replaced whole, never accumulated.
	if len(sheets[0].Rows) != 1 {
		t.Fatalf("expected one row per student, got %d: %v", len(sheets[0].Rows), sheets[0].Rows)
	}
	if sheets[0].Rows[0][4] != "Starters 100 (Rated)" {
		t.Fatalf("unexpected contest cell: %v", sheets[0].Rows[0])
	}
}

func TestMergeAndPersist_UntouchedSheetsSurvive(t *testing.T) {
	t.Parallel()

	store := memory.NewReportStore()
	key := report.Key{Type: report.TypePerformance}
	ctx := context.Background()

	other := report.Sheet{Name: "LeetCode", Header: []string{"Reg No", "Solved"}, Rows: [][]string{{"21CS001", "220"}}}
	if err := store.WriteSheets(ctx, key, []report.Sheet{other}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	service := newReconcileFixture(t, store)
	fresh := report.Sheet{Name: "Codeforces", Header: []string{"Reg No", "Rating"}, Rows: [][]string{{"21CS001", "1510"}}}
	names, err := service.MergeAndPersist(ctx, key, []report.Sheet{fresh})
	if err != nil {
		t.Fatalf("MergeAndPersist: %v", err)
	}

	if len(names) != 2 {
		t.Fatalf("expected both sheets present, got %v", names)
	}
	if names[0] != "LeetCode" || names[1] != "Codeforces" {
		t.Fatalf("unexpected order %v", names)
	}
}

func TestMergeAndPersist_LockedFileIsConflict(t *testing.T) {
	t.Parallel()

	store := memory.NewReportStore()
	key := report.Key{Department: "CSE", Year: "2025", Type: report.TypePerformance}
	store.SetLocked(key, true)

	service := newReconcileFixture(t, store)
	_, err := service.MergeAndPersist(context.Background(), key, []report.Sheet{dailySheet(nil)})
	if !crerr.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Nothing may have been written.
	if _, found, _ := store.LoadSheets(context.Background(), key); found {
		t.Fatal("locked file must not be partially written")
	}
}

func TestMergeAndPersist_NoSheetsIsInvalidInput(t *testing.T) {
	t.Parallel()

	service := newReconcileFixture(t, memory.NewReportStore())
	_, err := service.MergeAndPersist(context.Background(), report.Key{Type: report.TypePerformance}, nil)
	if !crerr.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
