package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/JonMunkholm/suppliers/internal/logging"
)

// fileRequest names a file in the data directory.
type fileRequest struct {
	Name string `json:"name"`
	versionGuard
}

// fileResponse reports a completed save or export.
type fileResponse struct {
	Status string           `json:"status"`
	File   core.FileSummary `json:"file"`
}

func decodeFileRequest(w http.ResponseWriter, r *http.Request) (fileRequest, error) {
	var req fileRequest
	if isJSONBody(r) {
		err := decodeJSON(w, r, &req)
		return req, err
	}
	v, err := parseForm(w, r)
	if err != nil {
		return req, err
	}
	req.Name = v.Get("name")
	req.versionGuard, err = guardFromForm(v)
	return req, err
}

// handleLoad replaces the current table with a file from the data
// directory. Unsaved changes are discarded.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFileRequest(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	path, err := s.catalog.Resolve(req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	t, err := s.engine.Load(path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.engine.RecordSourceInfo(path); err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("table loaded",
		"file", strings.TrimSpace(req.Name),
		"rows", t.RowCount(),
		"columns", len(t.Columns),
		"load_id", s.engine.Version().LoadID,
	)
	s.respondTable(w, r)
}

// handleSave writes the table to a file in the data directory.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.writeFile(w, r, dataset.OpSave, s.engine.Save)
}

// handleExport writes a copy of the table to a file in the data directory.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.writeFile(w, r, dataset.OpExport, s.engine.Export)
}

func (s *Server) writeFile(w http.ResponseWriter, r *http.Request, op string, write func(string) error) {
	req, err := decodeFileRequest(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.checkVersion(req.versionGuard); err != nil {
		s.respondError(w, r, err)
		return
	}
	path, err := s.catalog.Resolve(req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	log := logging.WithFields(r.Context(), "op", op, "file", req.Name)
	log.Debug("writing table", "rows", s.engine.RowCount())

	if err := write(path); err != nil {
		s.respondError(w, r, err)
		return
	}
	info, err := s.engine.RecordSourceInfo(path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	log.Info("table written", "size", info.Size)
	s.respondDone(w, r, fileResponse{Status: op, File: core.Summarize(info)})
}
