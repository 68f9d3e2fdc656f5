package http

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/domain/match"
	"github.com/sophialabs/mockdeck/internal/domain/trace"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
	"github.com/sophialabs/mockdeck/internal/infrastructure/services"
	"github.com/sophialabs/mockdeck/internal/infrastructure/usecases"
)

const (
	// AdminPrefix is the namespace reserved for the admin API.
	AdminPrefix = "/__admin"

	// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
	DefaultMaxBodyBytes = 10 << 20
)

// Deps are the collaborators the server dispatches to. Only Resolve and
// Logger are required; admin routes whose dependency is nil answer 501.
type Deps struct {
	Resolve   *usecases.ResolveRequestUseCase
	Load      *usecases.LoadCatalogUseCase
	Save      *usecases.SaveDefinitionUseCase
	Delete    *usecases.DeleteDefinitionUseCase
	Sequences *usecases.ResetSequencesUseCase
	Catalog   *services.LiveCatalog
	Repo      definition.Repository
	Trace     *trace.RingBuffer
	Metrics   http.Handler
	Limiter   ports.RateLimiter
	Logger    ports.Logger
}

// Options tune the transport.
type Options struct {
	// RoutePrefix is stripped from mock request paths before matching.
	RoutePrefix  string
	MaxBodyBytes int64
	// RootDir is used to show definition source files relative to the catalog.
	RootDir string

	AdminRate  float64
	AdminBurst int
}

// Server is the HTTP entry point: admin routes under /__admin and a
// catch-all that resolves everything else against the catalog.
type Server struct {
	deps   Deps
	opts   Options
	router *chi.Mux
}

// NewServer creates a new Server.
func NewServer(deps Deps, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	opts.RoutePrefix = strings.TrimRight(opts.RoutePrefix, "/")

	s := &Server{deps: deps, opts: opts}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route(AdminPrefix, func(r chi.Router) {
		r.Use(s.adminRateLimit)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found", "unknown admin route "+r.URL.Path)
		})

		r.Get("/health", s.handleHealth)
		r.Get("/definitions", s.handleListDefinitions)
		r.Post("/definitions", s.handleCreateDefinition)
		r.Get("/definitions/{id}", s.handleGetDefinition)
		r.Put("/definitions/{id}", s.handleUpdateDefinition)
		r.Delete("/definitions/{id}", s.handleDeleteDefinition)
		r.Post("/reload", s.handleReload)
		r.Get("/sequences", s.handleListSequences)
		r.Post("/sequences/reset", s.handleResetSequences)
		r.Post("/sequences/{id}/reset", s.handleResetSequence)
		r.Get("/requests", s.handleRequests)
		if s.deps.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
		}
	})

	r.HandleFunc("/*", s.mockHandler)
	r.HandleFunc("/", s.mockHandler)

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) mockHandler(w http.ResponseWriter, r *http.Request) {
	s.deps.Logger.Debug("request received", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery, "remote", r.RemoteAddr)

	incoming, err := s.toIncoming(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}

	resp, err := s.deps.Resolve.Execute(r.Context(), incoming)
	if err != nil {
		if errors.Is(err, services.ErrCatalogNotLoaded) {
			writeError(w, http.StatusServiceUnavailable, "not_ready", "catalog not loaded yet")
			return
		}
		s.deps.Logger.Error("definition store failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store_failure"})
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		s.deps.Logger.Debug("failed to write response body", "error", err)
	}
}

// toIncoming converts r into the domain request. Bodies are read for
// POST, PUT and PATCH only.
func (s *Server) toIncoming(w http.ResponseWriter, r *http.Request) (*match.IncomingRequest, error) {
	var body []byte
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		defer func() { _ = r.Body.Close() }()
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
		if err != nil {
			return nil, err
		}
	}

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[http.CanonicalHeaderKey(k)] = r.Header.Get(k)
	}

	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		if _, seen := cookies[c.Name]; !seen {
			cookies[c.Name] = c.Value
		}
	}

	return &match.IncomingRequest{
		Method:   r.Method,
		Path:     s.stripPrefix(r.URL.Path),
		RawQuery: r.URL.RawQuery,
		Query:    query,
		Headers:  headers,
		Cookies:  cookies,
		Body:     body,
	}, nil
}

func (s *Server) stripPrefix(path string) string {
	if s.opts.RoutePrefix == "" {
		return path
	}
	rest, ok := strings.CutPrefix(path, s.opts.RoutePrefix)
	if !ok || (rest != "" && rest[0] != '/') {
		return path
	}
	if rest == "" {
		return "/"
	}
	return rest
}

func (s *Server) adminRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Limiter != nil && s.opts.AdminRate > 0 {
			if !s.deps.Limiter.Allow(r.Context(), clientIP(r), s.opts.AdminRate, max(s.opts.AdminBurst, 1)) {
				s.deps.Logger.Info("admin request rate-limited", "remote", r.RemoteAddr, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many admin requests")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
