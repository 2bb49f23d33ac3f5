package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/suppliers/internal/config"
	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureCSV = "Material,Soma de Saldo,Último UM pedido,Data de remessa mais recente,Primeiro Fornecedor\n" +
	"M-100,1500.50,KG,2024-01-15,Acme Ltda\n" +
	"M-101,0,UN,2024-02-01,Beta SA\n" +
	"M-102,250,CX,,Gamma\n"

const fixtureName = "fornecedores.csv"

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fixtureName), []byte(fixtureCSV), 0o644))

	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Dataset: config.DatasetConfig{
			DataDir:        dir,
			MaxFileSize:    1 << 20,
			DisplayColumns: []string{"Material", "Primeiro Fornecedor"},
		},
		Security: config.SecurityConfig{EnableCSP: true},
	}
	if mutate != nil {
		mutate(cfg)
	}

	catalog, err := core.NewCatalog(dir)
	require.NoError(t, err)
	s := NewServer(dataset.NewEngine(dataset.Config{MaxFileSize: cfg.Dataset.MaxFileSize}), catalog, cfg)
	t.Cleanup(func() { s.Shutdown(t.Context()) })
	return s, dir
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeTable(t *testing.T, rec *httptest.ResponseRecorder) tableResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp tableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func load(t *testing.T, s *Server) tableResponse {
	t.Helper()
	return decodeTable(t, doJSON(t, s, http.MethodPost, "/api/load", map[string]string{"name": fixtureName}))
}

func TestIndex_NoTable(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file loaded.")
	assert.Contains(t, rec.Body.String(), fixtureName)
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestLoad_JSON(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := load(t, s)

	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "M-100", resp.Rows[0].Cells["Material"])
	assert.Equal(t, 0, resp.Rows[0].Index)
	assert.NotEmpty(t, resp.LoadID)
	require.NotNil(t, resp.File)
	assert.Equal(t, fixtureName, resp.File.Name)
	assert.Equal(t, core.FormatSize(int64(len(fixtureCSV))), resp.File.SizeText)
}

func TestInfo_ReportsChangeOnDisk(t *testing.T) {
	s, dir := newTestServer(t, nil)
	path := filepath.Join(dir, fixtureName)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	w, err := core.WatchDir(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	s.watcher = w

	resp := load(t, s)
	require.NotNil(t, resp.File)
	assert.False(t, resp.File.ChangedOnDisk)

	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV+"M-103,1,UN,,Delta\n"), 0o644))

	assert.Eventually(t, func() bool {
		rec := doJSON(t, s, http.MethodGet, "/api/info", nil)
		var info infoResponse
		if json.Unmarshal(rec.Body.Bytes(), &info) != nil || info.File == nil {
			return false
		}
		return info.File.ChangedOnDisk
	}, 5*time.Second, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "changed on disk since it was loaded")
}

func TestLoad_FormRedirectsToPage(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := postForm(t, s, "/api/load", url.Values{"name": {fixtureName}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	page := httptest.NewRecorder()
	s.Router().ServeHTTP(page, httptest.NewRequest(http.MethodGet, "/", nil))
	body := page.Body.String()
	assert.Contains(t, body, "M-101")
	assert.Contains(t, body, "Beta SA")
	assert.Contains(t, body, "Rows: 3")
	// Preferred display columns come first.
	assert.Less(t, strings.Index(body, "<th>Primeiro Fornecedor</th>"), strings.Index(body, "<th>Soma de Saldo</th>"))
}

func TestLoad_Rejected(t *testing.T) {
	s, dir := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ragged.csv"), []byte("a,b\n1\n"), 0o644))

	tests := []struct {
		name   string
		file   string
		status int
		code   string
	}{
		{name: "parent traversal", file: "../" + fixtureName, status: http.StatusBadRequest, code: "FILE008"},
		{name: "absolute path", file: filepath.Join(dir, fixtureName), status: http.StatusBadRequest, code: "FILE008"},
		{name: "not csv", file: "notes.txt", status: http.StatusBadRequest, code: "FILE008"},
		{name: "empty name", file: "", status: http.StatusBadRequest, code: "FILE004"},
		{name: "missing file", file: "missing.csv", status: http.StatusNotFound, code: "FILE007"},
		{name: "ragged rows", file: "ragged.csv", status: http.StatusUnprocessableEntity, code: "FILE002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/load", map[string]string{"name": tt.file})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}

	_, loaded := s.engine.Table()
	assert.False(t, loaded, "failed loads must not install a table")
}

func TestLoad_FormErrorRendersPage(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := postForm(t, s, "/api/load", url.Values{"name": {"../etc.csv"}})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "FILE008")
	assert.Contains(t, rec.Body.String(), "<!doctype html>")
}

func TestEditCell(t *testing.T) {
	s, _ := newTestServer(t, nil)
	before := load(t, s)

	resp := decodeTable(t, doJSON(t, s, http.MethodPost, "/api/edit", map[string]any{
		"row": 1, "column": "Primeiro Fornecedor", "value": "Novo Fornecedor", "loadId": before.LoadID,
	}))

	assert.Equal(t, "Novo Fornecedor", resp.Rows[1].Cells["Primeiro Fornecedor"])
	assert.Equal(t, before.Rows[0].Cells, resp.Rows[0].Cells)
	assert.Equal(t, before.Rows[2].Cells, resp.Rows[2].Cells)
	assert.Equal(t, before.LoadID, resp.LoadID)
	assert.Equal(t, before.Revision+1, resp.Revision)
}

func TestEditCell_Errors(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/edit", map[string]any{"row": 0, "column": "Material", "value": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TBL001", decodeError(t, rec).Code)

	load(t, s)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{name: "negative row", body: map[string]any{"row": -1, "column": "Material"}, status: http.StatusBadRequest, code: "ROW001"},
		{name: "row past end", body: map[string]any{"row": 3, "column": "Material"}, status: http.StatusBadRequest, code: "ROW001"},
		{name: "unknown column", body: map[string]any{"row": 0, "column": "Preço"}, status: http.StatusBadRequest, code: "VAL001"},
		{name: "missing row", body: map[string]any{"column": "Material"}, status: http.StatusBadRequest, code: "VAL004"},
		{name: "missing column", body: map[string]any{"row": 0}, status: http.StatusBadRequest, code: "VAL004"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/edit", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
	assert.Equal(t, uint64(0), s.engine.Version().Revision)
}

func TestMutations_RejectStaleVersion(t *testing.T) {
	s, _ := newTestServer(t, nil)
	first := load(t, s)
	second := load(t, s)
	require.NotEqual(t, first.LoadID, second.LoadID)

	rec := doJSON(t, s, http.MethodPost, "/api/delete", map[string]any{"rows": []int{0}, "loadId": first.LoadID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TBL003", decodeError(t, rec).Code)
	assert.Equal(t, 3, s.engine.RowCount())

	// A revision rendered before the last mutation is also stale.
	rev := second.Revision
	decodeTable(t, doJSON(t, s, http.MethodPost, "/api/delete", map[string]any{"rows": []int{2}, "loadId": second.LoadID, "revision": rev}))
	rec = doJSON(t, s, http.MethodPost, "/api/edit", map[string]any{
		"row": 0, "column": "Material", "value": "x", "loadId": second.LoadID, "revision": rev,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 2, s.engine.RowCount())
}

func TestAddRows(t *testing.T) {
	s, _ := newTestServer(t, nil)
	load(t, s)

	row := map[string]string{
		"Material":                     "M-200",
		"Soma de Saldo":                "10",
		"Último UM pedido":             "KG",
		"Data de remessa mais recente": "2024-05-01",
		"Primeiro Fornecedor":          "Omega",
	}
	resp := decodeTable(t, doJSON(t, s, http.MethodPost, "/api/rows", map[string]any{"rows": []map[string]string{row}}))
	require.Equal(t, 4, resp.Total)
	assert.Equal(t, row, resp.Rows[3].Cells)

	delete(row, "Soma de Saldo")
	rec := doJSON(t, s, http.MethodPost, "/api/rows", map[string]any{"rows": []map[string]string{row}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL002", decodeError(t, rec).Code)

	rec = doJSON(t, s, http.MethodPost, "/api/rows", map[string]any{"rows": []map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 4, s.engine.RowCount())
}

func TestAddRows_Form(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp := load(t, s)

	form := url.Values{"loadId": {resp.LoadID}}
	for _, col := range resp.Columns {
		form.Set("col:"+col, "")
	}
	form.Set("col:Material", "M-300")

	rec := postForm(t, s, "/api/rows", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	v, ok := s.engine.Table()
	require.True(t, ok)
	require.Equal(t, 4, v.RowCount())
	got, _ := v.Cell(3, "Material")
	assert.Equal(t, dataset.Value("M-300"), got)
	got, _ = v.Cell(3, "Soma de Saldo")
	assert.True(t, got.IsEmpty())
}

func TestDeleteRows_Form(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp := load(t, s)

	rec := postForm(t, s, "/api/delete", url.Values{
		"loadId":   {resp.LoadID},
		"revision": {"0"},
		"rows":     {"0", "2"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	v, _ := s.engine.Table()
	require.Equal(t, 1, v.RowCount())
	got, _ := v.Cell(0, "Material")
	assert.Equal(t, dataset.Value("M-101"), got)

	rec = postForm(t, s, "/api/delete", url.Values{"loadId": {resp.LoadID}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveAndExport(t *testing.T) {
	s, dir := newTestServer(t, nil)
	resp := load(t, s)
	decodeTable(t, doJSON(t, s, http.MethodPost, "/api/edit", map[string]any{"row": 2, "column": "Primeiro Fornecedor", "value": "Gama"}))

	for _, path := range []string{"/api/save", "/api/export"} {
		name := strings.TrimPrefix(path, "/api/") + ".csv"
		rec := doJSON(t, s, http.MethodPost, path, map[string]string{"name": name, "loadId": resp.LoadID})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var done fileResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
		assert.Equal(t, name, done.File.Name)

		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, strings.Replace(fixtureCSV, "Gamma", "Gama", 1), string(data))
	}

	info := httptest.NewRecorder()
	s.Router().ServeHTTP(info, httptest.NewRequest(http.MethodGet, "/api/info", nil))
	var ir infoResponse
	require.NoError(t, json.Unmarshal(info.Body.Bytes(), &ir))
	require.NotNil(t, ir.File)
	assert.Equal(t, "export.csv", ir.File.Name)
	assert.Equal(t, 3, ir.Rows)

	rec := doJSON(t, s, http.MethodPost, "/api/save", map[string]string{"name": "../escape.csv"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestSave_ReadOnlyFile(t *testing.T) {
	s, dir := newTestServer(t, nil)
	load(t, s)
	require.NoError(t, os.Chmod(filepath.Join(dir, fixtureName), 0o444))

	rec := doJSON(t, s, http.MethodPost, "/api/save", map[string]string{"name": fixtureName})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FILE010", decodeError(t, rec).Code)
}

func TestTable_ViewQuery(t *testing.T) {
	s, _ := newTestServer(t, nil)
	load(t, s)

	get := func(query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/table?"+query, nil))
		return rec
	}

	resp := decodeTable(t, get(url.Values{"filter[Material]": {"eq:m-101"}}.Encode()))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, 1, resp.Rows[0].Index)
	assert.Equal(t, 3, resp.Total)

	resp = decodeTable(t, get(url.Values{"sort": {"Soma de Saldo"}, "dir": {"desc"}}.Encode()))
	var order []string
	for _, r := range resp.Rows {
		order = append(order, r.Cells["Material"])
	}
	assert.Equal(t, []string{"M-100", "M-102", "M-101"}, order)

	rec := get(url.Values{"sort": {"Material"}, "dir": {"sideways"}}.Encode())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL003", decodeError(t, rec).Code)

	rec = get(url.Values{"filter[Preço]": {"gt:1"}}.Encode())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL001", decodeError(t, rec).Code)
}

func TestAggregate(t *testing.T) {
	s, _ := newTestServer(t, nil)
	load(t, s)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/aggregate?column="+url.QueryEscape("Soma de Saldo"), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var agg aggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agg))
	assert.Equal(t, 3, agg.Count)
	require.NotNil(t, agg.Sum)
	assert.InDelta(t, 1750.5, *agg.Sum, 1e-9)
	assert.InDelta(t, 0, *agg.Min, 1e-9)
	assert.InDelta(t, 1500.5, *agg.Max, 1e-9)
}

func TestIndex_HTMXReturnsTableOnly(t *testing.T) {
	s, _ := newTestServer(t, nil)
	load(t, s)

	req := httptest.NewRequest(http.MethodGet, "/?"+url.Values{"filter_column": {"Material"}, "filter_value": {"M-102"}}.Encode(), nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "<html")
	assert.Contains(t, body, "Gamma")
	assert.NotContains(t, body, "Acme Ltda")
}

func TestIndex_EscapesCells(t *testing.T) {
	s, _ := newTestServer(t, nil)
	load(t, s)
	decodeTable(t, doJSON(t, s, http.MethodPost, "/api/edit", map[string]any{"row": 0, "column": "Material", "value": "<script>x</script>"}))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestAPIKeyAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret-key"}
	})

	tests := []struct {
		name   string
		key    string
		status int
	}{
		{name: "missing", key: "", status: http.StatusUnauthorized},
		{name: "wrong", key: "nope", status: http.StatusForbidden},
		{name: "valid", key: "secret-key", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 2
	})

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/info", nil))
		codes[i] = rec.Code
		if i == 2 {
			assert.Equal(t, "RATE001", decodeError(t, rec).Code)
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestListFiles(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Files []core.FileEntry `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, fixtureName, resp.Files[0].Name)
}

func TestRun_DrainsInFlightRequests(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) { c.Server.ShutdownTimeout = 5 * time.Second })
	started := make(chan struct{})
	release := make(chan struct{})
	s.Router().Get("/slow", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(t.Context())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx, ln) }()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/slow")
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-started
	cancel()
	select {
	case err := <-runErr:
		t.Fatalf("Run returned before the request finished: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	assert.Equal(t, http.StatusOK, <-status)
	assert.NoError(t, <-runErr)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrStaleTable, http.StatusConflict},
		{dataset.ErrNoData, http.StatusConflict},
		{dataset.ErrNoSchema, http.StatusConflict},
		{dataset.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{dataset.ErrOutOfRange, http.StatusBadRequest},
		{dataset.ErrParseFailure, http.StatusUnprocessableEntity},
		{dataset.ErrIOFailure, http.StatusInternalServerError},
		{fmt.Errorf("%w: %w", dataset.ErrIOFailure, fs.ErrPermission), http.StatusForbidden},
		{core.ErrRateLimited, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
