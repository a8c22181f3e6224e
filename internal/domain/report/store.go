package report

import (
	"context"
	"errors"
)

// ErrFileLocked signals the target file is held open by an external tool and
// cannot be replaced right now.
var ErrFileLocked = errors.New("report file is locked")

// Store persists whole report files. Writes are destructive full replaces by
// design: the reconciler always rewrites every sheet it intends to keep, so a
// partially applied incremental edit can never corrupt historical rows.
type Store interface {
	// LoadSheets returns all sheets of the file for key, in stored order.
	// The boolean is false when the file has never been written.
	LoadSheets(ctx context.Context, key Key) ([]Sheet, bool, error)

	// WriteSheets atomically replaces the file's full sheet set. A target
	// file held open by an external tool must surface as a conflict, not a
	// silent partial write.
	WriteSheets(ctx context.Context, key Key, sheets []Sheet) error

	// Open returns the stored file bytes for download. The boolean is false
	// when the file has never been written.
	Open(ctx context.Context, key Key) ([]byte, bool, error)
}
