package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/domain/trace"
	"github.com/sophialabs/mockdeck/internal/infrastructure/usecases"
)

const defaultRequestsLast = 10

type definitionSummary struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Collection  string `json:"collection"`
	Method      string `json:"method"`
	Route       string `json:"route"`
	Query       string `json:"query,omitempty"`
	Active      bool   `json:"active"`
	Sequential  bool   `json:"sequential"`
	Rules       int    `json:"rules"`
	Steps       int    `json:"steps"`
	SourceFile  string `json:"source_file,omitempty"`
}

type definitionDetail struct {
	definitionSummary
	Status      int               `json:"status"`
	ContentType string            `json:"content_type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	DelayMs     int               `json:"delay_ms,omitempty"`
	SourceYAML  string            `json:"source_yaml,omitempty"`
}

func (s *Server) summarize(d *definition.Definition) definitionSummary {
	return definitionSummary{
		ID:          d.ID,
		Description: d.Description,
		Collection:  d.CollectionID,
		Method:      d.Method,
		Route:       d.Route,
		Query:       d.Query,
		Active:      d.Active,
		Sequential:  d.Sequential,
		Rules:       len(d.Rules),
		Steps:       len(d.Steps),
		SourceFile:  s.relativeSource(d.SourceFile),
	}
}

func (s *Server) relativeSource(path string) string {
	if path == "" || s.opts.RootDir == "" {
		return path
	}
	if rel, err := filepath.Rel(s.opts.RootDir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Catalog == nil || s.deps.Catalog.Current() == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"definitions": s.deps.Catalog.Current().Len(),
	})
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		notConfigured(w)
		return
	}
	catalog := s.deps.Catalog.Current()
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "catalog not loaded yet")
		return
	}

	defs := catalog.Search(r.URL.Query().Get("q"))
	out := make([]definitionSummary, 0, len(defs))
	for _, d := range defs {
		out = append(out, s.summarize(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		notConfigured(w)
		return
	}
	id := chi.URLParam(r, "id")
	catalog := s.deps.Catalog.Current()
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "catalog not loaded yet")
		return
	}
	d, ok := catalog.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "definition "+id+" not found")
		return
	}

	detail := definitionDetail{
		definitionSummary: s.summarize(d),
		Status:            d.Status,
		ContentType:       d.ContentType,
		Headers:           d.Headers,
		DelayMs:           d.DelayMs,
	}
	if s.deps.Repo != nil {
		src, err := s.deps.Repo.ReadSourceYAML(r.Context(), d)
		if err != nil {
			s.deps.Logger.Warn("failed to read definition source", "id", id, "error", err)
		} else {
			detail.SourceYAML = string(src)
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	if s.deps.Save == nil {
		notConfigured(w)
		return
	}
	body, ok := s.readAdminBody(w, r)
	if !ok {
		return
	}
	id, err := s.deps.Save.Execute(r.Context(), usecases.SaveRequest{
		Collection: r.URL.Query().Get("collection"),
		YAML:       body,
	})
	if err != nil {
		s.writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	if s.deps.Save == nil {
		notConfigured(w)
		return
	}
	body, ok := s.readAdminBody(w, r)
	if !ok {
		return
	}
	id, err := s.deps.Save.Execute(r.Context(), usecases.SaveRequest{
		ID:   chi.URLParam(r, "id"),
		YAML: body,
	})
	if err != nil {
		s.writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	if s.deps.Delete == nil {
		notConfigured(w)
		return
	}
	if err := s.deps.Delete.Execute(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeUseCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Load == nil {
		notConfigured(w)
		return
	}
	catalog, err := s.deps.Load.Execute(r.Context())
	if err != nil {
		s.deps.Logger.Error("catalog reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "definitions": catalog.Len()})
}

func (s *Server) handleListSequences(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Sequences == nil {
		notConfigured(w)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Sequences.Cursors())
}

func (s *Server) handleResetSequences(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Sequences == nil {
		notConfigured(w)
		return
	}
	s.deps.Sequences.Execute("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleResetSequence(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sequences == nil {
		notConfigured(w)
		return
	}
	id := chi.URLParam(r, "id")
	s.deps.Sequences.Execute(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "id": id})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if s.deps.Trace == nil {
		notConfigured(w)
		return
	}

	n := defaultRequestsLast
	if v := r.URL.Query().Get("last"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "last must be a non-negative integer")
			return
		}
		n = parsed
	}

	var entries []trace.Entry
	if r.URL.Query().Get("unmatched") == "true" {
		entries = s.deps.Trace.Filter(n, func(e trace.Entry) bool { return !e.Matched })
	} else {
		entries = s.deps.Trace.Last(n)
	}
	if entries == nil {
		entries = []trace.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) readAdminBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return nil, false
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "request body must be a YAML definition")
		return nil, false
	}
	return body, true
}

func (s *Server) writeUseCaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, definition.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, definition.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, usecases.ErrInvalidDefinition):
		writeError(w, http.StatusBadRequest, "invalid_definition", err.Error())
	default:
		s.deps.Logger.Error("admin operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func notConfigured(w http.ResponseWriter) {
	writeError(w, http.StatusNotImplemented, "not_configured", "endpoint not available")
}
