package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datamaster/internal/core"
	"github.com/JonMunkholm/datamaster/internal/csvcodec"
	"github.com/JonMunkholm/datamaster/internal/table"
)

// QueryRequest is the body of POST /api/tables/{name}/query.
type QueryRequest struct {
	Statement string `json:"statement"`
}

// QueryResponse is a statement's result. Fields and Rows describe the
// selected rows for SELECT and the whole table after a change otherwise.
type QueryResponse struct {
	Verb     string      `json:"verb"`
	Fields   []string    `json:"fields"`
	Rows     []table.Row `json:"rows"`
	Indices  []int       `json:"indices"`
	Affected int         `json:"affected"`
}

// FilterRequest is the body of POST /api/tables/{name}/filter.
type FilterRequest struct {
	Where string `json:"where"`
}

// ImportRequest is the body of POST /api/import/{name}.
type ImportRequest struct {
	SQL     string `json:"sql"`
	Replace bool   `json:"replace"`
}

// ============================================================================
// Workspace
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"tables": s.service.Count(),
		"loads":  s.service.Limiter().Status(),
		"import": s.service.ImportEnabled(),
	})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.List())
}

func (s *Server) handleTableInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Info(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Drop(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	undone, err := s.service.Undo(r.Context(), name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	info, err := s.service.Info(name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"undone": undone,
		"table":  info,
	})
}

// ============================================================================
// Loading
// ============================================================================

// handleLoad stores a CSV or TSV body. Query parameters: tsv, nocr,
// headers (default true) and replace. A text/tab-separated-values content
// type implies tsv.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	tsvDefault := strings.HasPrefix(r.Header.Get("Content-Type"), "text/tab-separated-values")
	opts := core.LoadOptions{
		TSV:     parseBoolParam(r, "tsv", tsvDefault),
		NoCR:    parseBoolParam(r, "nocr", false),
		Headers: parseBoolParam(r, "headers", true),
		Replace: parseBoolParam(r, "replace", false),
	}

	info, err := s.service.Load(r.Context(), chi.URLParam(r, "name"), r.Body, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, info)
}

// handleLoadRecords stores a JSON array of objects. The optional fields
// parameter fixes the column order.
func (s *Server) handleLoadRecords(w http.ResponseWriter, r *http.Request) {
	var records []map[string]any
	if err := s.decodeJSON(w, r, &records); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: %w", core.ErrInvalidRecords, err)
		}
		respondError(w, r, err)
		return
	}

	var fields []string
	if f := r.URL.Query().Get("fields"); f != "" {
		for _, name := range strings.Split(f, ",") {
			fields = append(fields, strings.TrimSpace(name))
		}
	}

	info, err := s.service.LoadRecords(r.Context(), chi.URLParam(r, "name"), records, fields, parseBoolParam(r, "replace", false))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, info)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.service.ImportEnabled() {
		respondError(w, r, core.ErrImportUnavailable)
		return
	}

	var req ImportRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	info, err := s.service.Import(r.Context(), chi.URLParam(r, "name"), req.SQL, req.Replace)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, info)
}

// ============================================================================
// Queries
// ============================================================================

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.Query(r.Context(), chi.URLParam(r, "name"), req.Statement)
	if err != nil {
		respondError(w, r, err)
		return
	}

	indices := res.Indices
	if indices == nil {
		indices = []int{}
	}
	writeJSON(w, r, http.StatusOK, QueryResponse{
		Verb:     res.Verb,
		Fields:   res.Table.Fields,
		Rows:     res.Table.Rows,
		Indices:  indices,
		Affected: res.Affected,
	})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	indices, err := s.service.Filter(r.Context(), chi.URLParam(r, "name"), req.Where)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if indices == nil {
		indices = []int{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"indices": indices,
		"count":   len(indices),
	})
}

// handleExport sends the table as an attachment. Query parameters: tsv,
// nocr, skip_fields, remove_newlines, start_row and start_col.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	opts := csvcodec.EncodeOptions{
		TSV:            parseBoolParam(r, "tsv", false),
		SkipFields:     parseBoolParam(r, "skip_fields", false),
		RemoveNewLines: parseBoolParam(r, "remove_newlines", false),
		StartRow:       parseIntParam(r, "start_row", 0),
		StartCol:       parseIntParam(r, "start_col", 0),
	}
	if parseBoolParam(r, "nocr", false) {
		opts.NewLine = "\n"
	}

	text, err := s.service.Export(r.Context(), name, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	contentType, ext := "text/csv; charset=utf-8", "csv"
	if opts.TSV {
		contentType, ext = "text/tab-separated-values; charset=utf-8", "tsv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+ext))
	_, _ = w.Write([]byte(text))
}

// ============================================================================
// Helpers
// ============================================================================

// decodeJSON reads a JSON body no larger than the upload limit into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Workspace.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// parseBoolParam returns def when key is absent or not a boolean. A bare
// "?key" counts as true.
func parseBoolParam(r *http.Request, key string, def bool) bool {
	values, ok := r.URL.Query()[key]
	if !ok || len(values) == 0 {
		return def
	}
	if values[0] == "" {
		return true
	}
	b, err := strconv.ParseBool(values[0])
	if err != nil {
		return def
	}
	return b
}

// parseIntParam returns def when key is absent or not an integer.
func parseIntParam(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
