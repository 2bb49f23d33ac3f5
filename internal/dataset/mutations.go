package dataset

import (
	"fmt"
	"sort"
)

// EditCell replaces the value of one cell. The value is stored as given
// apart from CRLF line breaks, which become LF; no type coercion is performed. Every other cell and the row order
// are left unchanged.
func (e *Engine) EditCell(row int, column string, value Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.table == nil {
		return opErr(OpEditCell, ErrNoData).withRow(row).withColumn(column)
	}
	if row < 0 || row >= len(e.table.Rows) {
		return opErr(OpEditCell, ErrOutOfRange).withRow(row).
			wrap(fmt.Errorf("table has %d rows", len(e.table.Rows)))
	}
	if !e.table.Columns.Contains(column) {
		return opErr(OpEditCell, ErrUnknownColumn).withColumn(column)
	}

	value = normalizeNewlines(value)
	old := e.table.Rows[row][column]
	e.table.Rows[row][column] = value
	e.revision++

	e.log.Debug("cell edited", "row", row, "column", column, "old", string(old), "new", string(value))
	return nil
}

// AddRows appends rows, in order, to the end of the table. Every row must
// have exactly the table's columns as keys; if any row does not, nothing is
// appended. A table must already exist: appending before the first load
// fails with ErrNoSchema.
func (e *Engine) AddRows(rows []Row) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.table == nil {
		return opErr(OpAddRows, ErrNoSchema)
	}

	for i, r := range rows {
		if !e.table.Columns.Conforms(r) {
			return opErr(OpAddRows, ErrSchemaMismatch).withRow(i).
				wrap(schemaDiff(e.table.Columns, r))
		}
	}

	for _, r := range rows {
		row := make(Row, len(r))
		for col, v := range r {
			row[col] = normalizeNewlines(v)
		}
		e.table.Rows = append(e.table.Rows, row)
	}
	if len(rows) > 0 {
		e.revision++
	}

	e.log.Debug("rows added", "count", len(rows), "rows", len(e.table.Rows))
	return nil
}

// DeleteRows removes the rows at the given indices and compacts the table:
// surviving rows keep their relative order and later rows shift down by the
// number of removed rows before them. Indices refer to positions before the
// call; duplicates are removed once. The result is the same as deleting the
// indices one at a time in descending order. If any index is out of range,
// nothing is removed.
func (e *Engine) DeleteRows(indices []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.table == nil {
		return opErr(OpDeleteRows, ErrNoData)
	}

	n := len(e.table.Rows)
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return opErr(OpDeleteRows, ErrOutOfRange).withRow(idx).
				wrap(fmt.Errorf("table has %d rows", n))
		}
		drop[idx] = true
	}
	if len(drop) == 0 {
		return nil
	}

	kept := make([]Row, 0, n-len(drop))
	for i, r := range e.table.Rows {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	e.table.Rows = kept
	e.revision++

	e.log.Debug("rows deleted", "count", len(drop), "rows", len(kept))
	return nil
}

// schemaDiff describes how r's keys differ from the schema.
func schemaDiff(s Schema, r Row) error {
	var missing, extra []string
	for _, col := range s {
		if _, ok := r[col]; !ok {
			missing = append(missing, col)
		}
	}
	for k := range r {
		if !s.Contains(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return fmt.Errorf("missing %q, unexpected %q", missing, extra)
}
