package dataset

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxFileSize is the largest CSV file Load accepts when Config leaves
// MaxFileSize unset (100MB).
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// Config holds engine settings.
type Config struct {
	// MaxFileSize is the largest file Load will read, in bytes.
	MaxFileSize int64

	// Logger receives debug-level operation logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Engine owns the loaded table and the source file metadata.
type Engine struct {
	maxFileSize int64
	log         *slog.Logger

	mu       sync.RWMutex
	table    *Table
	info     SourceFileInfo
	hasInfo  bool
	loadID   string
	revision uint64
}

// NewEngine creates an engine with no table loaded.
func NewEngine(cfg Config) *Engine {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		maxFileSize: cfg.MaxFileSize,
		log:         cfg.Logger.With("component", "dataset"),
	}
}

// Load parses the CSV file at path and replaces the current table with it.
//
// Load is destructive: on success every unsaved edit, appended row and
// deletion made since the previous load is discarded. On failure the current
// table is left untouched. Load does not update SourceFileInfo; call
// RecordSourceInfo for that.
func (e *Engine) Load(path string) (*Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, opErr(OpLoad, ErrIOFailure).withPath(path).wrap(err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, opErr(OpLoad, ErrIOFailure).withPath(path).wrap(err)
	}
	if st.IsDir() {
		return nil, opErr(OpLoad, ErrIOFailure).withPath(path).wrap(errors.New("is a directory"))
	}
	if st.Size() > e.maxFileSize {
		return nil, opErr(OpLoad, ErrIOFailure).withPath(path).wrap(ErrFileTooLarge)
	}

	src := wrapForLoad(f)
	t, err := readTable(src)
	if err != nil {
		var pe *parseError
		if errors.As(err, &pe) {
			return nil, opErr(OpLoad, ErrParseFailure).withPath(path).withLine(pe.line).wrap(pe.err)
		}
		return nil, opErr(OpLoad, ErrIOFailure).withPath(path).wrap(err)
	}

	e.table = t
	e.loadID = uuid.NewString()
	e.revision = 0

	e.log.Debug("table loaded",
		"path", path,
		"columns", len(t.Columns),
		"rows", len(t.Rows),
		"bytes", src.n,
		"load_id", e.loadID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return t.Clone(), nil
}

// RecordSourceInfo stats path and stores the result as the current
// SourceFileInfo, overwriting any previous value.
func (e *Engine) RecordSourceInfo(path string) (SourceFileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return SourceFileInfo{}, opErr(OpSourceInfo, ErrIOFailure).withPath(path).wrap(err)
	}

	info := SourceFileInfo{
		Name:     filepath.Base(path),
		Path:     path,
		Size:     st.Size(),
		Modified: st.ModTime(),
	}

	e.mu.Lock()
	e.info = info
	e.hasInfo = true
	e.mu.Unlock()

	e.log.Debug("source info recorded", "path", path, "size", info.Size)
	return info, nil
}

// Save writes the current table to path as CSV, overwriting any existing
// file. Engine state is not modified.
func (e *Engine) Save(path string) error {
	return e.write(OpSave, path)
}

// Export writes the current table to path. It currently produces the same
// bytes as Save and exists as its own operation so callers can attach
// different semantics to it.
func (e *Engine) Export(path string) error {
	return e.write(OpExport, path)
}

func (e *Engine) write(op, path string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.table == nil {
		return opErr(op, ErrNoData).withPath(path)
	}
	if err := writeFileAtomic(path, e.table); err != nil {
		return opErr(op, ErrIOFailure).withPath(path).wrap(err)
	}

	e.log.Debug("table written", "op", op, "path", path, "rows", len(e.table.Rows))
	return nil
}

// Table returns a snapshot of the current table. ok is false before the
// first successful load.
func (e *Engine) Table() (t *Table, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.table == nil {
		return nil, false
	}
	return e.table.Clone(), true
}

// SourceInfo returns the last recorded file metadata.
func (e *Engine) SourceInfo() (SourceFileInfo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.info, e.hasInfo
}

// Columns returns the current schema, or nil if no table is loaded.
func (e *Engine) Columns() Schema {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.table == nil {
		return nil
	}
	return e.table.Columns.Clone()
}

// RowCount returns the number of rows in the current table.
func (e *Engine) RowCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table.RowCount()
}

// Version returns the identity of the current table contents.
func (e *Engine) Version() Version {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Version{LoadID: e.loadID, Revision: e.revision}
}

// Snapshot returns the table, file info and version read under one lock, so
// an adapter can render a consistent view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Table:   e.table.Clone(),
		Info:    e.info,
		HasInfo: e.hasInfo,
		Version: Version{LoadID: e.loadID, Revision: e.revision},
	}
}

// Snapshot is a consistent read of all engine state.
type Snapshot struct {
	Table   *Table // nil before the first load
	Info    SourceFileInfo
	HasInfo bool
	Version Version
}
