package web

// handlers_common.go holds request decoding, view query parsing and the
// response shapes shared by the handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/JonMunkholm/suppliers/internal/logging"
	"github.com/JonMunkholm/suppliers/internal/web/templates"
)

// versionGuard is the table version a client rendered. An empty LoadID
// skips the check; Revision is only compared when sent.
type versionGuard struct {
	LoadID   string  `json:"loadId"`
	Revision *uint64 `json:"revision"`
}

// rowResponse is one row of a table response.
type rowResponse struct {
	Index int               `json:"index"`
	Cells map[string]string `json:"cells"`
}

// tableResponse is the JSON form of a table view.
type tableResponse struct {
	LoadID   string            `json:"loadId"`
	Revision uint64            `json:"revision"`
	Columns  []string          `json:"columns"`
	Rows     []rowResponse     `json:"rows"`
	Total    int               `json:"total"`
	File     *core.FileSummary `json:"file,omitempty"`
}

// isJSONBody reports whether the request body is JSON.
func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// decodeJSON decodes a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", core.ErrBadRequest, err)
	}
	return nil
}

// parseForm parses a bounded form body and returns the posted values.
func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: parse form: %v", core.ErrBadRequest, err)
	}
	return r.PostForm, nil
}

// guardFromForm reads the hidden loadId and revision fields.
func guardFromForm(v url.Values) (versionGuard, error) {
	g := versionGuard{LoadID: strings.TrimSpace(v.Get("loadId"))}
	if rev := strings.TrimSpace(v.Get("revision")); rev != "" {
		n, err := strconv.ParseUint(rev, 10, 64)
		if err != nil {
			return g, fmt.Errorf("%w: revision %q", core.ErrBadRequest, rev)
		}
		g.Revision = &n
	}
	return g, nil
}

// checkVersion rejects a mutation built against a table other than the
// current one, so row indices from an old page are never applied to new rows.
func (s *Server) checkVersion(g versionGuard) error {
	if g.LoadID == "" {
		return nil
	}
	cur := s.engine.Version()
	if g.LoadID != cur.LoadID {
		return fmt.Errorf("%w: load %s, current %s", core.ErrStaleTable, g.LoadID, cur.LoadID)
	}
	if g.Revision != nil && *g.Revision != cur.Revision {
		return fmt.Errorf("%w: revision %d, current %d", core.ErrStaleTable, *g.Revision, cur.Revision)
	}
	return nil
}

// parseIndex parses a row index. Range checks are left to the engine.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: row %q is not a number", core.ErrBadRequest, s)
	}
	return n, nil
}

// parseViewQuery reads filters and sort keys from the URL. Filters come as
// filter[Column]=op:value or as the page's filter_column, filter_op and
// filter_value controls. Sort keys come as comma lists in sort and dir.
func parseViewQuery(r *http.Request) (dataset.ViewQuery, templates.QueryState, error) {
	var q dataset.ViewQuery
	vals := r.URL.Query()
	state := templates.QueryState{
		FilterColumn: vals.Get("filter_column"),
		FilterOp:     vals.Get("filter_op"),
		FilterValue:  vals.Get("filter_value"),
		AggColumn:    vals.Get("aggregate"),
	}

	keys := make([]string, 0, len(vals))
	for key := range vals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		col := key[len("filter[") : len(key)-1]
		if col == "" {
			return q, state, fmt.Errorf("%w: filter has no column", dataset.ErrInvalidQuery)
		}
		for _, v := range vals[key] {
			f, err := core.ParseFilterValue(col, v)
			if err != nil {
				return q, state, err
			}
			q.Filters = append(q.Filters, f)
		}
	}

	if state.FilterColumn != "" && state.FilterValue != "" {
		raw := state.FilterValue
		if state.FilterOp != "" {
			raw = state.FilterOp + ":" + raw
		}
		f, err := core.ParseFilterValue(state.FilterColumn, raw)
		if err != nil {
			return q, state, err
		}
		q.Filters = append(q.Filters, f)
	}

	if sortParam := vals.Get("sort"); sortParam != "" {
		cols := strings.Split(sortParam, ",")
		dirs := strings.Split(vals.Get("dir"), ",")
		for i, col := range cols {
			col = strings.TrimSpace(col)
			if col == "" {
				continue
			}
			dir := ""
			if i < len(dirs) {
				dir = strings.ToLower(strings.TrimSpace(dirs[i]))
			}
			if dir != "" && dir != "asc" && dir != "desc" {
				return q, state, fmt.Errorf("%w: sort direction %q must be asc or desc", dataset.ErrInvalidQuery, dir)
			}
			q.Sort = append(q.Sort, dataset.SortSpec{Column: col, Desc: dir == "desc"})
		}
		if len(q.Sort) > 0 {
			state.SortColumn = q.Sort[0].Column
			state.SortDesc = q.Sort[0].Desc
		}
	}

	return q, state, nil
}

// toTableResponse converts a view for the JSON API.
func toTableResponse(res *dataset.ViewResult, info *core.FileSummary) tableResponse {
	resp := tableResponse{
		LoadID:   res.Version.LoadID,
		Revision: res.Version.Revision,
		Columns:  []string(res.Columns),
		Rows:     make([]rowResponse, len(res.Rows)),
		Total:    res.Total,
		File:     info,
	}
	for i, vr := range res.Rows {
		cells := make(map[string]string, len(vr.Row))
		for col, v := range vr.Row {
			cells[col] = v.String()
		}
		resp.Rows[i] = rowResponse{Index: vr.Index, Cells: cells}
	}
	return resp
}

// toTableData converts a view for the page, with columns in display order.
func toTableData(res *dataset.ViewResult, preferred []string) *templates.TableData {
	cols := core.DisplayOrder(res.Columns, preferred)
	data := &templates.TableData{
		LoadID:   res.Version.LoadID,
		Revision: res.Version.Revision,
		Columns:  cols,
		Schema:   []string(res.Columns),
		Rows:     make([]templates.TableRow, len(res.Rows)),
		Total:    res.Total,
	}
	for i, vr := range res.Rows {
		cells := make([]string, len(cols))
		for j, col := range cols {
			cells[j] = vr.Row[col].String()
		}
		data.Rows[i] = templates.TableRow{Index: vr.Index, Cells: cells}
	}
	return data
}

// toAggregateData formats an aggregation for the page.
func toAggregateData(a dataset.Aggregation) *templates.AggregateData {
	return &templates.AggregateData{
		Column:  a.Column,
		Count:   a.Count,
		Skipped: a.Skipped,
		Sum:     core.FormatNumber(a.Sum),
		Avg:     core.FormatNumber(a.Avg),
		Min:     core.FormatNumber(a.Min),
		Max:     core.FormatNumber(a.Max),
	}
}

// currentInfo returns the display form of the source file info, if any.
func (s *Server) currentInfo() *core.FileSummary {
	info, ok := s.engine.SourceInfo()
	if !ok {
		return nil
	}
	return s.summarize(info)
}

// summarize converts info for display and checks it against the watcher.
func (s *Server) summarize(info dataset.SourceFileInfo) *core.FileSummary {
	sum := core.Summarize(info)
	sum.ChangedOnDisk = s.watcher.ChangedSince(info.Name, info.Modified)
	return &sum
}

// pageParams gathers the page state for r. A bad view query or aggregate
// column is returned as an error, with the unfiltered table still filled in.
func (s *Server) pageParams(r *http.Request) (templates.PageParams, error) {
	var params templates.PageParams

	files, err := s.catalog.List()
	if err != nil {
		logging.FromContext(r.Context()).Warn("list data dir failed", "dir", s.catalog.Dir(), "error", err)
	}
	params.Files = files

	if params.Info = s.currentInfo(); params.Info != nil {
		params.Selected = params.Info.Name
	}

	q, state, qerr := parseViewQuery(r)
	params.Query = state
	if qerr != nil {
		q = dataset.ViewQuery{}
	}

	res, err := s.engine.View(q)
	if err != nil && !errors.Is(err, dataset.ErrNoData) {
		qerr = err
		res, err = s.engine.View(dataset.ViewQuery{})
	}
	if err != nil {
		// No table loaded yet.
		return params, qerr
	}
	params.Table = toTableData(res, s.cfg.Dataset.DisplayColumns)

	if state.AggColumn != "" {
		agg, err := s.engine.Aggregate(state.AggColumn)
		if err != nil {
			if qerr == nil {
				qerr = err
			}
		} else {
			params.Aggregate = toAggregateData(agg)
		}
	}
	return params, qerr
}
