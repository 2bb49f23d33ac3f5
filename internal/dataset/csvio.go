package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Comma is the only field delimiter the engine reads and writes.
const Comma = ','

// parseError carries the CSV line a parse failure occurred on.
type parseError struct {
	line int
	err  error
}

func (e *parseError) Error() string { return e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

// readTable parses CSV from r. The first record names the columns; every
// following record must have the same number of fields.
func readTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = Comma
	cr.FieldsPerRecord = 0
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &parseError{line: 1, err: ErrEmptyFile}
	}
	if err != nil {
		return nil, asParseError(err)
	}

	columns, err := buildSchema(header)
	if err != nil {
		return nil, &parseError{line: 1, err: err}
	}

	t := &Table{Columns: columns}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, asParseError(err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeNewlines(Value(rec[i]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// buildSchema validates header names. Duplicate or blank names cannot be
// represented as row keys.
func buildSchema(header []string) (Schema, error) {
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w at position %d", ErrBlankColumn, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w %q", ErrDuplicateColumn, name)
		}
		seen[name] = true
	}
	return Schema(header).Clone(), nil
}

func asParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &parseError{line: pe.Line, err: pe.Err}
	}
	var ee *EncodingError
	if errors.As(err, &ee) {
		return &parseError{err: ee}
	}
	return err
}

// writeTable writes t as CSV: header of column names, then one record per row
// in schema order.
func writeTable(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = Comma

	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for i := range t.Rows {
		rec := t.Record(i)
		if len(rec) == 1 && rec[0] == "" {
			// A bare empty line would be skipped on reload.
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return err
			}
			continue
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFileAtomic writes t to a temporary file next to path and renames it
// into place, so a failed write never truncates an existing destination.
// A symlinked destination is resolved and its target replaced. An existing
// file keeps its permission bits; a read-only one is not overwritten.
func writeFileAtomic(path string, t *Table) error {
	target, mode, err := saveTarget(path)
	if err != nil {
		return err
	}

	dir, base := filepath.Split(target)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if err = writeTable(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, mode); err != nil {
		return err
	}
	err = os.Rename(tmpName, target)
	return err
}

// newFileMode is the permission of a file Save creates.
const newFileMode fs.FileMode = 0o644

// saveTarget resolves the file a save to path replaces and the mode the
// written file gets.
func saveTarget(path string) (string, fs.FileMode, error) {
	target := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		target = resolved
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", 0, err
	} else if link, lerr := os.Readlink(path); lerr == nil {
		// Dangling link: create the file it points to.
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(path), link)
		}
		target = link
	}

	info, err := os.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return target, newFileMode, nil
	}
	if err != nil {
		return "", 0, err
	}
	if !info.Mode().IsRegular() {
		return "", 0, &fs.PathError{Op: "save", Path: target, Err: errors.New("not a regular file")}
	}
	if info.Mode().Perm()&0o200 == 0 {
		return "", 0, &fs.PathError{Op: "save", Path: target, Err: fs.ErrPermission}
	}
	return target, info.Mode().Perm(), nil
}
