package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/xuri/excelize/v2"

	"github.com/harivignesh/cp-tracker/internal/domain/report"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

const (
	minColumnWidth = 10
	maxColumnWidth = 40
)

// Store persists report files as xlsx workbooks, one file per report key.
// Writes are whole-file: the workbook is rebuilt from scratch and swapped in
// with a rename, never edited in place.
type Store struct {
	dir    string
	logger *logging.Logger

	// Serializes writers within this process. Cross-process conflicts are
	// detected via the spreadsheet lock marker instead.
	mu sync.Mutex
}

func NewStore(dir string, logger *logging.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("report directory is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory %s: %w", dir, err)
	}

	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(key report.Key) string {
	key = key.Normalize()
	name := fmt.Sprintf("%s_%s_%s.xlsx", key.Type, sanitizeName(key.Department), sanitizeName(key.Year))
	return filepath.Join(s.dir, name)
}

// lockMarkerPath is the owner file spreadsheet tools drop next to an open
// workbook.
func (s *Store) lockMarkerPath(key report.Key) string {
	path := s.path(key)
	return filepath.Join(filepath.Dir(path), "~$"+filepath.Base(path))
}

func (s *Store) LoadSheets(_ context.Context, key report.Key) ([]report.Sheet, bool, error) {
	path := s.path(key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, false, nil
	}
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("open report %s: %w", path, err)
	}
	defer func() { _ = workbook.Close() }()

	names := workbook.GetSheetList()
	sheets := make([]report.Sheet, 0, len(names))
	for _, name := range names {
		rows, rowsErr := workbook.GetRows(name)
		if rowsErr != nil {
			return nil, false, fmt.Errorf("read sheet %q of %s: %w", name, path, rowsErr)
		}
		sheet := report.Sheet{Name: name}
		if len(rows) > 0 {
			sheet.Header = rows[0]
			sheet.Rows = rows[1:]
		}
		sheets = append(sheets, sheet)
	}

	return sheets, true, nil
}

func (s *Store) WriteSheets(ctx context.Context, key report.Key, sheets []report.Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("at least one sheet is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	if _, err := os.Stat(s.lockMarkerPath(key)); err == nil {
		return crerr.Wrapf(report.ErrFileLocked, "path=%s", path)
	}

	raw, err := Render(sheets)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp report %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		// EBUSY/EACCES on the rename means another process holds the file.
		return crerr.Wrapf(report.ErrFileLocked, "replace %s: %v", path, err)
	}

	s.logger.DebugContext(ctx, "report file written", "path", path, "sheets", len(sheets))
	return nil
}

// Render satisfies the on-demand export contract with the package renderer.
func (s *Store) Render(sheets []report.Sheet) ([]byte, error) {
	return Render(sheets)
}

func (s *Store) Open(_ context.Context, key report.Key) ([]byte, bool, error) {
	path := s.path(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read report %s: %w", path, err)
	}
	return raw, true, nil
}

// Render builds a workbook from sheets and returns its serialized bytes.
// Also used by the on-demand export download, which never touches disk.
func Render(sheets []report.Sheet) ([]byte, error) {
	workbook := excelize.NewFile()
	defer func() { _ = workbook.Close() }()

	defaultSheet := workbook.GetSheetName(0)
	for _, sheet := range sheets {
		if _, err := workbook.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(workbook, sheet); err != nil {
			return nil, err
		}
	}
	if len(sheets) > 0 && defaultSheet != sheets[0].Name {
		_ = workbook.DeleteSheet(defaultSheet)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := workbook.Write(buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	return append([]byte(nil), buf.B...), nil
}

func writeSheet(workbook *excelize.File, sheet report.Sheet) error {
	header := make([]any, len(sheet.Header))
	widths := make([]int, len(sheet.Header))
	for idx, cell := range sheet.Header {
		header[idx] = cell
		widths[idx] = len(cell)
	}
	if err := workbook.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", sheet.Name, err)
	}

	for rowIdx, row := range sheet.Rows {
		cells := make([]any, len(row))
		for colIdx, cell := range row {
			cells[colIdx] = cell
			if colIdx < len(widths) && len(cell) > widths[colIdx] {
				widths[colIdx] = len(cell)
			}
		}
		anchor, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return fmt.Errorf("compute row anchor: %w", err)
		}
		if err := workbook.SetSheetRow(sheet.Name, anchor, &cells); err != nil {
			return fmt.Errorf("write row %d of %q: %w", rowIdx+2, sheet.Name, err)
		}
	}

	for idx, width := range widths {
		column, err := excelize.ColumnNumberToName(idx + 1)
		if err != nil {
			return fmt.Errorf("compute column name: %w", err)
		}
		target := width + 2
		if target < minColumnWidth {
			target = minColumnWidth
		}
		if target > maxColumnWidth {
			target = maxColumnWidth
		}
		if err := workbook.SetColWidth(sheet.Name, column, column, float64(target)); err != nil {
			return fmt.Errorf("set width of column %s in %q: %w", column, sheet.Name, err)
		}
	}

	return nil
}

func sanitizeName(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "all"
	}
	return b.String()
}
