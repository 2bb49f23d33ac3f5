package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds. Every error returned by the engine matches exactly one of
// these with errors.Is.
var (
	ErrIOFailure      = errors.New("io failure")
	ErrParseFailure   = errors.New("parse failure")
	ErrOutOfRange     = errors.New("row index out of range")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrNoData         = errors.New("no table loaded")
	ErrNoSchema       = errors.New("no schema established")
	ErrInvalidQuery   = errors.New("invalid query")
)

// Causes wrapped under a failure kind.
var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("empty file")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrBlankColumn     = errors.New("blank column name")
)

// Operation names carried by OpError.Op.
const (
	OpLoad       = "load"
	OpSourceInfo = "source info"
	OpSave       = "save"
	OpExport     = "export"
	OpEditCell   = "edit cell"
	OpAddRows    = "add rows"
	OpDeleteRows = "delete rows"
	OpView       = "view"
	OpAggregate  = "aggregate"
)

// OpError describes a failed engine operation with enough structured detail
// for a caller to build its own message.
type OpError struct {
	Op     string // Operation that failed
	Kind   error  // One of the Err* failure kinds
	Path   string // File involved, if any
	Row    int    // Row index involved, -1 if none
	Column string // Column involved, if any
	Line   int    // 1-based CSV line for parse failures, 0 if unknown
	Err    error  // Underlying cause, may be nil
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString("dataset: ")
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	}
	if e.Row >= 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opErr(op string, kind error) *OpError {
	return &OpError{Op: op, Kind: kind, Row: -1}
}

func (e *OpError) withPath(path string) *OpError {
	e.Path = path
	return e
}

func (e *OpError) withRow(row int) *OpError {
	e.Row = row
	return e
}

func (e *OpError) withColumn(col string) *OpError {
	e.Column = col
	return e
}

func (e *OpError) withLine(line int) *OpError {
	e.Line = line
	return e
}

func (e *OpError) wrap(err error) *OpError {
	e.Err = err
	return e
}

// KindOf returns the failure kind of err, or nil if err did not come from
// the engine.
func KindOf(err error) error {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return nil
}
