package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
)

// maxBodyBytes bounds POST /files; payloads travel base64 encoded inline.
const maxBodyBytes = 64 << 20

type createFileRequest struct {
	Name     string          `json:"name"`
	Type     models.FileType `json:"type"`
	ParentID parentID        `json:"parentId"`
	IsPublic bool            `json:"isPublic"`
	Data     string          `json:"data"`
}

// parentID accepts both "abc" and 0 on the wire.
type parentID string

func (p *parentID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = parentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = parentID(n.String())
	return nil
}

func token(r *http.Request) string {
	return r.Header.Get(common.TokenHeaderName)
}

func (s *Server) postFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}

	f, err := s.files.Create(r.Context(), token(r), services.CreateRequest{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: string(req.ParentID),
		IsPublic: req.IsPublic,
		Data:     req.Data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "file created", "file_id", f.ID, "type", f.Type)
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.files.Get(r.Context(), token(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// A malformed page reads as the first one.
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 0
	}

	items, err := s.files.List(r.Context(), token(r), q.Get("parentId"), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) setPublic(public bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := s.files.SetPublic(r.Context(), token(r), r.PathValue("id"), public)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

func (s *Server) getFileData(w http.ResponseWriter, r *http.Request) {
	c, err := s.files.Content(r.Context(), token(r), r.PathValue("id"), r.URL.Query().Get("size"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", c.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(c.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.Data)
}

type statsResponse struct {
	Files int64 `json:"files"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.files.Count(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Files: n})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]bool, len(s.opts.Probes))
	for name, probe := range s.opts.Probes {
		out[name] = probe(r.Context())
	}
	writeJSON(w, http.StatusOK, out)
}

// --- responses ---

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponses maps error kinds to the status and message clients see.
// Kinds not listed are internal errors.
var errorResponses = []struct {
	err     error
	status  int
	message string
}{
	{common.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{common.ErrMissingName, http.StatusBadRequest, "Missing name"},
	{common.ErrInvalidName, http.StatusBadRequest, "Invalid name"},
	{common.ErrMissingType, http.StatusBadRequest, "Missing type"},
	{common.ErrMissingData, http.StatusBadRequest, "Missing data"},
	{common.ErrInvalidData, http.StatusBadRequest, "Invalid data"},
	{common.ErrInvalidSize, http.StatusBadRequest, "Invalid size"},
	{common.ErrParentNotFound, http.StatusBadRequest, "Parent not found"},
	{common.ErrParentNotAFolder, http.StatusBadRequest, "Parent is not a folder"},
	{common.ErrFolderHasNoContent, http.StatusBadRequest, "A folder doesn't have content"},
	{common.ErrNotFound, http.StatusNotFound, "Not found"},
}

func statusFor(err error) (int, string) {
	for _, e := range errorResponses {
		if errors.Is(err, e.err) {
			return e.status, e.message
		}
	}
	return http.StatusInternalServerError, "Internal error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
