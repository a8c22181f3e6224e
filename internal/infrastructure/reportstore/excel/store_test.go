package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/harivignesh/cp-tracker/internal/domain/report"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func sampleSheets() []report.Sheet {
	return []report.Sheet{
		{
			Name:   "Codeforces",
			Header: []string{"Reg No", "Name", "Rating"},
			Rows: [][]string{
				{"21CS001", "Asha", "1510"},
				{"21CS002", "Bala", "1420"},
			},
		},
		{
			Name:   "Daily Performance",
			Header: []string{"Reg No", "Date", "Solved"},
			Rows: [][]string{
				{"21CS001", "2025-06-01", "220"},
			},
		},
	}
}

func TestStore_WriteThenLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	key := report.Key{Department: "CSE", Year: "2025", Type: report.TypePerformance}
	ctx := context.Background()

	if err := store.WriteSheets(ctx, key, sampleSheets()); err != nil {
		t.Fatalf("WriteSheets: %v", err)
	}

	sheets, found, err := store.LoadSheets(ctx, key)
	if err != nil {
		t.Fatalf("LoadSheets: %v", err)
	}
	if !found {
		t.Fatal("expected file to exist after write")
	}
	if len(sheets) != 2 {
		t.Fatalf("expected two sheets, got %d", len(sheets))
	}
	if sheets[0].Name != "Codeforces" || sheets[1].Name != "Daily Performance" {
		t.Fatalf("unexpected sheet order %q/%q", sheets[0].Name, sheets[1].Name)
	}
	if len(sheets[0].Rows) != 2 || sheets[0].Rows[0][2] != "1510" {
		t.Fatalf("unexpected rows %v", sheets[0].Rows)
	}
	if sheets[1].Header[1] != "Date" {
		t.Fatalf("unexpected header %v", sheets[1].Header)
	}
}

func TestStore_LoadNeverWrittenReportsAbsent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, found, err := store.LoadSheets(context.Background(), report.Key{Type: report.TypeContest})
	if err != nil {
		t.Fatalf("LoadSheets: %v", err)
	}
	if found {
		t.Fatal("never-written report must be absent, not empty")
	}
}

func TestStore_WriteReplacesWholeFile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	key := report.Key{Type: report.TypePerformance}
	ctx := context.Background()

	if err := store.WriteSheets(ctx, key, sampleSheets()); err != nil {
		t.Fatalf("first WriteSheets: %v", err)
	}

	replacement := []report.Sheet{{
		Name:   "LeetCode",
		Header: []string{"Reg No", "Solved"},
		Rows:   [][]string{{"21CS003", "90"}},
	}}
	if err := store.WriteSheets(ctx, key, replacement); err != nil {
		t.Fatalf("second WriteSheets: %v", err)
	}

	sheets, _, err := store.LoadSheets(ctx, key)
	if err != nil {
		t.Fatalf("LoadSheets: %v", err)
	}
	if len(sheets) != 1 || sheets[0].Name != "LeetCode" {
		t.Fatalf("old sheets survived the rewrite: %+v", sheets)
	}
}

func TestStore_LockMarkerIsConflict(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	key := report.Key{Department: "CSE", Year: "2025", Type: report.TypePerformance}
	ctx := context.Background()

	marker := store.lockMarkerPath(key)
	if err := os.WriteFile(marker, []byte("owner"), 0o644); err != nil {
		t.Fatalf("create lock marker: %v", err)
	}

	err := store.WriteSheets(ctx, key, sampleSheets())
	if !crerr.Is(err, report.ErrFileLocked) {
		t.Fatalf("expected ErrFileLocked, got %v", err)
	}

	// No partial write may exist.
	if _, statErr := os.Stat(store.path(key)); !os.IsNotExist(statErr) {
		t.Fatal("locked write must not leave a file behind")
	}
	entries, _ := filepath.Glob(store.path(key) + ".tmp")
	if len(entries) != 0 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestStore_OpenServesWrittenBytes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	key := report.Key{Type: report.TypeContest}
	ctx := context.Background()

	if err := store.WriteSheets(ctx, key, sampleSheets()); err != nil {
		t.Fatalf("WriteSheets: %v", err)
	}

	raw, found, err := store.Open(ctx, key)
	if err != nil || !found {
		t.Fatalf("Open: found=%v err=%v", found, err)
	}
	if len(raw) == 0 {
		t.Fatal("expected workbook bytes")
	}
	// xlsx files are zip archives.
	if raw[0] != 'P' || raw[1] != 'K' {
		t.Fatalf("unexpected file magic %v", raw[:2])
	}
}

func TestRender_EmptySheetKeepsHeader(t *testing.T) {
	t.Parallel()

	raw, err := Render([]report.Sheet{{
		Name:   "Starters 100",
		Header: []string{"S.No", "Reg No", "Rank"},
	}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected workbook bytes for a headered empty sheet")
	}
}
