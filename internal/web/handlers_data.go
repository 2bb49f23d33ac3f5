package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/JonMunkholm/suppliers/internal/web/templates"
)

// infoResponse describes the current engine state without the rows.
type infoResponse struct {
	Loaded   bool              `json:"loaded"`
	LoadID   string            `json:"loadId,omitempty"`
	Revision uint64            `json:"revision"`
	Columns  []string          `json:"columns"`
	Rows     int               `json:"rows"`
	File     *core.FileSummary `json:"file"`
}

// aggregateResponse is the JSON form of dataset.Aggregation.
type aggregateResponse struct {
	Column  string   `json:"column"`
	Count   int      `json:"count"`
	Skipped int      `json:"skipped"`
	Sum     *float64 `json:"sum"`
	Avg     *float64 `json:"avg"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
}

// handleIndex renders the editor page, or only the table for HTMX.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	params, err := s.pageParams(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isHTMX(r) {
		templates.TablePartial(params.Table).Render(r.Context(), w)
		return
	}
	templates.Page(params).Render(r.Context(), w)
}

// handleListFiles returns the CSV files in the data directory.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.catalog.List()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if files == nil {
		files = []core.FileEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// handleTable returns the current table, filtered and sorted by the query.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	q, _, err := parseViewQuery(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.engine.View(q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.TablePartial(toTableData(res, s.cfg.Dataset.DisplayColumns)).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(res, s.currentInfo()))
}

// handleInfo returns the source file metadata and table shape.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	resp := infoResponse{
		Loaded:   snap.Table != nil,
		LoadID:   snap.Version.LoadID,
		Revision: snap.Version.Revision,
		Columns:  []string{},
	}
	if snap.Table != nil {
		resp.Columns = []string(snap.Table.Columns)
		resp.Rows = snap.Table.RowCount()
	}
	if snap.HasInfo {
		resp.File = s.summarize(snap.Info)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAggregate sums a numeric column.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	column := strings.TrimSpace(r.URL.Query().Get("column"))
	if column == "" {
		s.respondError(w, r, dataset.ErrInvalidQuery)
		return
	}

	agg, err := s.engine.Aggregate(column)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregateResponse{
		Column:  agg.Column,
		Count:   agg.Count,
		Skipped: agg.Skipped,
		Sum:     agg.Sum,
		Avg:     agg.Avg,
		Min:     agg.Min,
		Max:     agg.Max,
	})
}
