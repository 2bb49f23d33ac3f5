package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Kind classifies a cell value for display, sorting and aggregation.
// The stored text is never rewritten based on its kind.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindDate
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single scalar cell. It holds the exact text read from or written
// to CSV, so a save/load round-trip never reformats numbers. The empty string
// is the missing-value marker.
type Value string

// Empty returns the missing-value marker.
func Empty() Value { return "" }

// Number returns a numeric value formatted with the shortest representation
// that round-trips f.
func Number(f float64) Value {
	return Value(strconv.FormatFloat(f, 'f', -1, 64))
}

// String returns the cell text.
func (v Value) String() string { return string(v) }

// IsEmpty reports whether v is the missing-value marker.
func (v Value) IsEmpty() bool { return v == "" }

// Kind infers the display kind of v.
func (v Value) Kind() Kind {
	switch {
	case v.IsEmpty():
		return KindEmpty
	case ToNumeric(string(v)).Valid:
		return KindNumber
	case ToDate(string(v)).Valid:
		return KindDate
	default:
		return KindText
	}
}

// normalizeNewlines rewrites CRLF inside v as LF, the form encoding/csv
// returns for quoted line breaks, so stored text survives Save and Load.
func normalizeNewlines(v Value) Value {
	s := string(v)
	for strings.Contains(s, "\r\n") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
	}
	return Value(s)
}

// Float64 returns the numeric value of v and whether it is numeric.
func (v Value) Float64() (float64, bool) {
	return numericFloat(string(v))
}

// Row maps column names to values. A row belonging to a table always has
// exactly the table's columns as keys.
type Row map[string]Value

// Clone returns a copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Schema is the ordered list of column names shared by every row of a table.
type Schema []string

// Index returns the position of name in s, or -1.
func (s Schema) Index(name string) int {
	for i, col := range s {
		if col == name {
			return i
		}
	}
	return -1
}

// Contains reports whether name is a column of s.
func (s Schema) Contains(name string) bool {
	return s.Index(name) >= 0
}

// Conforms reports whether r's key set equals the schema's column set.
func (s Schema) Conforms(r Row) bool {
	if len(r) != len(s) {
		return false
	}
	for _, col := range s {
		if _, ok := r[col]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a copy of s.
func (s Schema) Clone() Schema {
	return append(Schema(nil), s...)
}

// Table is an ordered sequence of rows sharing a fixed schema.
// Tables returned by the engine are snapshots; modifying them does not
// affect engine state.
type Table struct {
	Columns Schema
	Rows    []Row
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Cell returns the value at (row, column).
func (t *Table) Cell(row int, column string) (Value, bool) {
	if t == nil || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	v, ok := t.Rows[row][column]
	return v, ok
}

// Record returns the row's values in schema order.
func (t *Table) Record(row int) []string {
	rec := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		rec[i] = string(t.Rows[row][col])
	}
	return rec
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns: t.Columns.Clone(),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// SourceFileInfo is a metadata snapshot of the last file engaged in a load or
// save. It is replaced wholesale, never merged.
type SourceFileInfo struct {
	Name     string    // Base name
	Path     string    // Path as given by the caller
	Size     int64     // Size in bytes
	Modified time.Time // Last modification time
}

// IsZero reports whether no file info has been recorded.
func (i SourceFileInfo) IsZero() bool {
	return i.Name == "" && i.Path == "" && i.Size == 0 && i.Modified.IsZero()
}

// Version identifies the table an adapter rendered. LoadID changes on every
// successful load; Revision increases on every successful mutation.
type Version struct {
	LoadID   string
	Revision uint64
}
