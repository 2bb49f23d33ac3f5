// Package templates renders the HTML pages and fragments of the editor.
// Components live in .templ files; run templ generate after editing them.
package templates

//go:generate templ generate

import "github.com/JonMunkholm/suppliers/internal/core"

// PageParams holds everything the editor page shows.
type PageParams struct {
	Files     []core.FileEntry
	Selected  string            // File name prefilled in the load and save forms
	Info      *core.FileSummary // nil until a file has been loaded or saved
	Table     *TableData        // nil before the first load
	Query     QueryState
	Aggregate *AggregateData
	Alert     *core.UserMessage
}

// TableData is the rendered view of the current table.
type TableData struct {
	LoadID   string
	Revision uint64
	Columns  []string // Display order
	Schema   []string // File order, used by the add-row form
	Rows     []TableRow
	Total    int // Rows in the table, before filtering
}

// TableRow is one displayed row. Index is the row's position in the table,
// which is what the edit and delete forms send back.
type TableRow struct {
	Index int
	Cells []string
}

// QueryState echoes the view controls back into the form.
type QueryState struct {
	FilterColumn string
	FilterOp     string
	FilterValue  string
	SortColumn   string
	SortDesc     bool
	AggColumn    string
}

// AggregateData is a formatted column aggregation.
type AggregateData struct {
	Column  string
	Count   int
	Skipped int
	Sum     string
	Avg     string
	Min     string
	Max     string
}

// filterOps lists the operators offered by the filter control.
var filterOps = []struct{ Value, Label string }{
	{"contains", "contains"},
	{"eq", "equals"},
	{"starts", "starts with"},
	{"ends", "ends with"},
	{"gt", ">"},
	{"gte", ">="},
	{"lt", "<"},
	{"lte", "<="},
}
