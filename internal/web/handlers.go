package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sparklabs/sparksearch/internal/core"
	"github.com/sparklabs/sparksearch/internal/filter"
	"github.com/sparklabs/sparksearch/internal/logging"
)

// handleHealth reports liveness. It does not touch the store so it stays
// cheap enough for frequent health checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loginRequest is the JSON body for POST /api/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin verifies credentials and issues a session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.service.Login(req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	setSessionCookie(w, sess)

	logging.FromContext(r.Context()).Info("login", "session", sess.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "login successful",
		"expires_at": sess.ExpiresAt.Format(time.RFC3339),
	})
}

// handleLogout discards the session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	s.service.Logout(sess.ID)
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleUpload accepts a multipart file upload and ingests it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	// MaxBytesReader caps the whole request body. A little headroom covers
	// the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, core.ErrFileTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	summary, err := s.service.HandleUpload(r.Context(), sess, header.Filename, data)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleColumns lists filterable columns with stats for numeric ones.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	cols, err := s.service.Columns(r.Context(), sess)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"columns": cols})
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	Selections []filter.Selection `json:"selections"`
}

// searchResponse carries the matching rows plus any per-column warnings.
type searchResponse struct {
	Count    int              `json:"count"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	Warnings []filter.Warning `json:"warnings,omitempty"`
}

// handleSearch applies the submitted filter selections and returns matches.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.service.Search(r.Context(), sess, req.Selections)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(result))
}

// toSearchResponse flattens a result table into JSON-friendly rows.
func toSearchResponse(result *core.SearchResult) searchResponse {
	resp := searchResponse{
		Count:    result.Count,
		Columns:  result.Table.Columns,
		Rows:     make([]map[string]any, 0, len(result.Table.Rows)),
		Warnings: result.Warnings,
	}
	for _, row := range result.Table.Rows {
		out := make(map[string]any, len(resp.Columns))
		for _, col := range resp.Columns {
			out[col] = row[col]
		}
		resp.Rows = append(resp.Rows, out)
	}
	return resp
}

// handleExport streams the most recent search result in the requested format.
// Formats: csv (default), json, xlsx (alias excel).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	format, err := core.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tbl := sess.LastResult
	if tbl == nil {
		writeError(w, http.StatusNotFound, "no search results to export, run a search first")
		return
	}

	mime, ext := format.ContentType()
	name := exportFileName(sess.FileName, ext)
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	if err := core.Export(w, tbl, format); err != nil {
		// Too late for a clean error response once bytes are out.
		logging.FromContext(r.Context()).Error("export", "error", err)
	}
}

// exportFileName derives a download name from the uploaded file name.
func exportFileName(uploaded, ext string) string {
	base := "search_results"
	if uploaded != "" {
		if i := strings.LastIndex(uploaded, "."); i > 0 {
			uploaded = uploaded[:i]
		}
		base = uploaded + "_results"
	}
	return base + "." + ext
}

// decodeJSON decodes a JSON request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
