package dataset

// view.go provides read-only projections of the current table: filtering,
// sorting and numeric aggregation. None of these mutate engine state.

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// FilterOperator is a comparison applied by a Filter.
type FilterOperator string

const (
	OpContains   FilterOperator = "contains"
	OpEquals     FilterOperator = "eq"
	OpStartsWith FilterOperator = "starts"
	OpEndsWith   FilterOperator = "ends"
	OpGreaterEq  FilterOperator = "gte"
	OpLessEq     FilterOperator = "lte"
	OpGreater    FilterOperator = "gt"
	OpLess       FilterOperator = "lt"
)

// Valid reports whether op is a known operator.
func (op FilterOperator) Valid() bool {
	switch op {
	case OpContains, OpEquals, OpStartsWith, OpEndsWith,
		OpGreaterEq, OpLessEq, OpGreater, OpLess:
		return true
	}
	return false
}

// Filter is one condition on a column. Text operators are case-insensitive.
// Ordering operators only match cells that compare with Value as numbers or
// as dates.
type Filter struct {
	Column   string
	Operator FilterOperator
	Value    string
}

// SortSpec orders a view by one column.
type SortSpec struct {
	Column string
	Desc   bool
}

// ViewQuery selects and orders rows. Filters are combined with AND; sort keys
// apply in order. Empty cells always sort last.
type ViewQuery struct {
	Filters []Filter
	Sort    []SortSpec
}

// ViewRow is a row of a view together with its index in the source table,
// which is what EditCell and DeleteRows expect.
type ViewRow struct {
	Index int
	Row   Row
}

// ViewResult is a projection of the table.
type ViewResult struct {
	Columns Schema
	Rows    []ViewRow
	Total   int     // Row count of the source table
	Version Version // Table version the view was taken from
}

// View returns the rows matching q in the order q asks for.
func (e *Engine) View(q ViewQuery) (*ViewResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.table == nil {
		return nil, opErr(OpView, ErrNoData)
	}
	if err := validateQuery(e.table.Columns, q); err != nil {
		return nil, err
	}

	res := &ViewResult{
		Columns: e.table.Columns.Clone(),
		Total:   len(e.table.Rows),
		Version: Version{LoadID: e.loadID, Revision: e.revision},
	}
	for i, r := range e.table.Rows {
		if matchesAll(r, q.Filters) {
			res.Rows = append(res.Rows, ViewRow{Index: i, Row: r.Clone()})
		}
	}

	if len(q.Sort) > 0 {
		sort.SliceStable(res.Rows, func(i, j int) bool {
			return lessRow(res.Rows[i].Row, res.Rows[j].Row, q.Sort)
		})
	}
	return res, nil
}

func validateQuery(s Schema, q ViewQuery) error {
	for _, f := range q.Filters {
		if !s.Contains(f.Column) {
			return opErr(OpView, ErrUnknownColumn).withColumn(f.Column)
		}
		if !f.Operator.Valid() {
			return opErr(OpView, ErrInvalidQuery).withColumn(f.Column).
				wrap(fmt.Errorf("unknown operator %q", f.Operator))
		}
	}
	for _, sp := range q.Sort {
		if !s.Contains(sp.Column) {
			return opErr(OpView, ErrUnknownColumn).withColumn(sp.Column)
		}
	}
	return nil
}

func matchesAll(r Row, filters []Filter) bool {
	for _, f := range filters {
		if !f.matches(r[f.Column]) {
			return false
		}
	}
	return true
}

func (f Filter) matches(v Value) bool {
	cell := strings.ToLower(string(v))
	want := strings.ToLower(f.Value)

	switch f.Operator {
	case OpContains:
		return strings.Contains(cell, want)
	case OpStartsWith:
		return strings.HasPrefix(cell, want)
	case OpEndsWith:
		return strings.HasSuffix(cell, want)
	case OpEquals:
		if c, ok := compareSameKind(v, Value(f.Value)); ok {
			return c == 0
		}
		return cell == want
	}

	c, ok := compareSameKind(v, Value(f.Value))
	if !ok {
		return false
	}
	switch f.Operator {
	case OpGreater:
		return c > 0
	case OpGreaterEq:
		return c >= 0
	case OpLess:
		return c < 0
	case OpLessEq:
		return c <= 0
	}
	return false
}

// compareSameKind compares a and b only when both are numbers or both are
// dates.
func compareSameKind(a, b Value) (int, bool) {
	ak, bk := a.Kind(), b.Kind()
	if ak != bk || (ak != KindNumber && ak != KindDate) {
		return 0, false
	}
	return compareValues(a, b)
}

func lessRow(a, b Row, keys []SortSpec) bool {
	for _, k := range keys {
		av, bv := a[k.Column], b[k.Column]
		switch {
		case av.IsEmpty() && bv.IsEmpty():
			continue
		case av.IsEmpty():
			return false
		case bv.IsEmpty():
			return true
		}
		c, _ := compareValues(av, bv)
		if c == 0 {
			continue
		}
		if k.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

// Aggregation summarises the numeric cells of one column. Pointer fields are
// nil when the column has no numeric cells.
type Aggregation struct {
	Column  string
	Count   int // Numeric cells
	Skipped int // Non-empty cells that are not numeric
	Sum     *float64
	Avg     *float64
	Min     *float64
	Max     *float64
}

// Aggregate computes sum, average, minimum and maximum over the numeric
// cells of column. The sum is accumulated in decimal, so money columns add
// up exactly before the result is converted to float64.
func (e *Engine) Aggregate(column string) (Aggregation, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.table == nil {
		return Aggregation{}, opErr(OpAggregate, ErrNoData).withColumn(column)
	}
	if !e.table.Columns.Contains(column) {
		return Aggregation{}, opErr(OpAggregate, ErrUnknownColumn).withColumn(column)
	}

	agg := Aggregation{Column: column}
	total := pgtype.Numeric{Int: new(big.Int), Valid: true}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range e.table.Rows {
		v := r[column]
		if v.IsEmpty() {
			continue
		}
		n := ToNumeric(string(v))
		f, ok := numericToFloat(n)
		if !ok {
			agg.Skipped++
			continue
		}
		agg.Count++
		total = addNumeric(total, n)
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}

	if agg.Count > 0 {
		sum, _ := numericToFloat(total)
		avg := sum / float64(agg.Count)
		agg.Sum, agg.Avg, agg.Min, agg.Max = &sum, &avg, &lo, &hi
	}
	return agg, nil
}
