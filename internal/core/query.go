package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/suppliers/internal/dataset"
)

// ParseFilter parses "column=op:value". The operator may be omitted
// ("column=value"), in which case contains is used.
func ParseFilter(s string) (dataset.Filter, error) {
	col, rest, ok := strings.Cut(s, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return dataset.Filter{}, fmt.Errorf("%w: filter %q must look like column=op:value", dataset.ErrInvalidQuery, s)
	}
	return ParseFilterValue(col, rest)
}

// ParseFilterValue parses the "op:value" part of a filter on column.
// Text without a known operator prefix is a contains filter on the whole text.
func ParseFilterValue(column, s string) (dataset.Filter, error) {
	f := dataset.Filter{Column: column, Operator: dataset.OpContains, Value: s}
	if op, val, ok := strings.Cut(s, ":"); ok {
		if o := dataset.FilterOperator(strings.ToLower(op)); o.Valid() {
			f.Operator, f.Value = o, val
		}
	}
	if f.Value == "" {
		return dataset.Filter{}, fmt.Errorf("%w: filter on %q has no value", dataset.ErrInvalidQuery, column)
	}
	return f, nil
}

// ParseSort parses "column" or "column:asc|desc".
func ParseSort(s string) (dataset.SortSpec, error) {
	col, dir := s, ""
	if i := strings.LastIndex(s, ":"); i >= 0 {
		col, dir = s[:i], strings.ToLower(strings.TrimSpace(s[i+1:]))
	}
	col = strings.TrimSpace(col)
	if col == "" {
		return dataset.SortSpec{}, fmt.Errorf("%w: sort %q has no column", dataset.ErrInvalidQuery, s)
	}
	switch dir {
	case "", "asc":
		return dataset.SortSpec{Column: col}, nil
	case "desc":
		return dataset.SortSpec{Column: col, Desc: true}, nil
	}
	return dataset.SortSpec{}, fmt.Errorf("%w: sort direction %q must be asc or desc", dataset.ErrInvalidQuery, dir)
}
