package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/JonMunkholm/suppliers/internal/logging"
	"github.com/JonMunkholm/suppliers/internal/web/templates"
)

// formColumnPrefix marks add-row form fields: col:<column name>.
const formColumnPrefix = "col:"

type editRequest struct {
	Row    *int   `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	versionGuard
}

type addRowsRequest struct {
	Rows []map[string]string `json:"rows"`
	versionGuard
}

type deleteRequest struct {
	Rows []int `json:"rows"`
	versionGuard
}

// handleEditCell sets one cell. The value is stored as sent.
func (s *Server) handleEditCell(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if isJSONBody(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	} else {
		v, err := parseForm(w, r)
		if err == nil {
			req.versionGuard, err = guardFromForm(v)
		}
		if err == nil && v.Get("row") != "" {
			var row int
			row, err = parseIndex(v.Get("row"))
			req.Row = &row
		}
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		req.Column = v.Get("column")
		req.Value = v.Get("value")
	}

	if req.Row == nil || req.Column == "" {
		s.respondError(w, r, fmt.Errorf("%w: row and column are required", core.ErrBadRequest))
		return
	}
	if err := s.checkVersion(req.versionGuard); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.engine.EditCell(*req.Row, req.Column, dataset.Value(req.Value)); err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("cell edited", "row", *req.Row, "column", req.Column)
	s.respondTable(w, r)
}

// handleAddRows appends rows. JSON clients may send several; the page form
// sends one row as col:<name> fields.
func (s *Server) handleAddRows(w http.ResponseWriter, r *http.Request) {
	var req addRowsRequest
	if isJSONBody(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	} else {
		v, err := parseForm(w, r)
		if err == nil {
			req.versionGuard, err = guardFromForm(v)
		}
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		row := map[string]string{}
		for key, vals := range v {
			if col, ok := strings.CutPrefix(key, formColumnPrefix); ok && len(vals) > 0 {
				row[col] = vals[0]
			}
		}
		if len(row) > 0 {
			req.Rows = append(req.Rows, row)
		}
	}

	if len(req.Rows) == 0 {
		s.respondError(w, r, fmt.Errorf("%w: no rows given", core.ErrBadRequest))
		return
	}
	if err := s.checkVersion(req.versionGuard); err != nil {
		s.respondError(w, r, err)
		return
	}

	rows := make([]dataset.Row, len(req.Rows))
	for i, m := range req.Rows {
		row := make(dataset.Row, len(m))
		for col, val := range m {
			row[col] = dataset.Value(val)
		}
		rows[i] = row
	}
	if err := s.engine.AddRows(rows); err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("rows added", "count", len(rows))
	s.respondTable(w, r)
}

// handleDeleteRows removes rows by index. Indices refer to the table as the
// client last saw it, which is why the version check matters here.
func (s *Server) handleDeleteRows(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if isJSONBody(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	} else {
		v, err := parseForm(w, r)
		if err == nil {
			req.versionGuard, err = guardFromForm(v)
		}
		for _, raw := range v["rows"] {
			if err != nil {
				break
			}
			var idx int
			idx, err = parseIndex(raw)
			req.Rows = append(req.Rows, idx)
		}
		if err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	if len(req.Rows) == 0 {
		s.respondError(w, r, fmt.Errorf("%w: no rows selected", core.ErrBadRequest))
		return
	}
	if err := s.checkVersion(req.versionGuard); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.engine.DeleteRows(req.Rows); err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("rows deleted", "count", len(req.Rows))
	s.respondTable(w, r)
}

// respondTable answers a successful load or mutation with the full current
// table: JSON for API clients, the table fragment for HTMX, and a redirect
// back to the page for plain form posts.
func (s *Server) respondTable(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.View(dataset.ViewQuery{})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.TablePartial(toTableData(res, s.cfg.Dataset.DisplayColumns)).Render(r.Context(), w)
	case isFormPost(r):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		writeJSON(w, http.StatusOK, toTableResponse(res, s.currentInfo()))
	}
}

// respondDone answers a successful save or export.
func (s *Server) respondDone(w http.ResponseWriter, r *http.Request, payload any) {
	if isFormPost(r) && !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
