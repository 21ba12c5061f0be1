package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	"github.com/aretw0/sakura"
	"github.com/aretw0/sakura/api"
	"github.com/aretw0/sakura/internal/logging"
	"github.com/aretw0/sakura/internal/metrics"
	"github.com/aretw0/sakura/internal/validator"
	"github.com/aretw0/sakura/pkg/codeblock"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/ports"
	"github.com/aretw0/sakura/pkg/session"
)

// DefaultMaxBodyBytes bounds chunk and content request bodies.
const DefaultMaxBodyBytes = 8 << 20

// Server exposes session workspaces over HTTP.
type Server struct {
	Sessions *session.Manager
	Feed     ports.SnapshotFeed

	spec         *openapi3.T
	logger       *slog.Logger
	cors         bool
	metrics      bool
	maxBodyBytes int64
}

// Option configures the Server.
type Option func(*Server)

// WithFeed enables GET /sessions/{id}/events. The feed must receive the manager's events.
func WithFeed(feed ports.SnapshotFeed) Option {
	return func(s *Server) {
		s.Feed = feed
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORS toggles the permissive CORS headers (default: on).
func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.cors = enabled
	}
}

// WithMetricsRoute toggles GET /metrics (default: on).
func WithMetricsRoute(enabled bool) Option {
	return func(s *Server) {
		s.metrics = enabled
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer creates a Server and validates the embedded API contract.
func NewServer(sessions *session.Manager, opts ...Option) (*Server, error) {
	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		Sessions:     sessions,
		spec:         spec,
		logger:       logging.NewNop(),
		cors:         true,
		metrics:      true,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewHandler creates the HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) (http.Handler, error) {
	s, err := NewServer(sessions, opts...)
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(api.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return spec, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics {
		r.Get("/metrics", metrics.Handler().ServeHTTP)
	}
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(api.Spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/chunks", s.ParseChunk)
			r.Put("/content", s.ParseFullContent)
			r.Post("/reset", s.Reset)
			r.Get("/snapshot", s.GetSnapshot)
			r.Get("/artifact", s.GetArtifact)
			r.Get("/tree", s.GetTree)
			r.Get("/files", s.ListFiles)
			r.Get("/files/*", s.GetFile)
			r.Put("/active", s.SetActiveFile)
			r.Get("/dependencies", s.GetDependencies)
			r.Get("/codeblocks", s.GetCodeBlocks)
			r.Get("/validate", s.ValidateMessage)
			r.Get("/preview", s.GetPreview)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	if s.cors {
		return enableCORS(r)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Sakura API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "sakura-http",
		"version":     strings.TrimSpace(sakura.Version),
		"api_version": apiVersion,
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.Sessions.Create(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.updateSessionGauge(r.Context())

	info, err := s.Sessions.Info(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+id)
	s.writeJSON(w, http.StatusCreated, info)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.Sessions.Info(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.updateSessionGauge(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ParseChunk handles POST /sessions/{id}/chunks. The raw body is the increment.
func (s *Server) ParseChunk(w http.ResponseWriter, r *http.Request) {
	s.parse(w, r, (*sakura.Workspace).ParseChunk)
}

// ParseFullContent handles PUT /sessions/{id}/content. The raw body is the whole message.
func (s *Server) ParseFullContent(w http.ResponseWriter, r *http.Request) {
	s.parse(w, r, (*sakura.Workspace).ParseFullContent)
}

func (s *Server) parse(w http.ResponseWriter, r *http.Request, feed func(*sakura.Workspace, string)) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return
	}

	var art *domain.Artifact
	err = s.Sessions.WithWorkspace(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, ws *sakura.Workspace) error {
		feed(ws, string(body))
		art = ws.Artifact()
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, art)
}

// Reset handles POST /sessions/{id}/reset. scope=parser keeps the file system.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope != "" && scope != "all" && scope != "parser" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("unknown scope %q", scope)})
		return
	}
	err := s.Sessions.WithWorkspace(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, ws *sakura.Workspace) error {
		if scope == "parser" {
			ws.ResetParser()
		} else {
			ws.Reset()
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSnapshot handles GET /sessions/{id}/snapshot.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(ws *sakura.Workspace) (any, error) {
		return ws.Snapshot(), nil
	})
}

// GetArtifact handles GET /sessions/{id}/artifact.
func (s *Server) GetArtifact(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(ws *sakura.Workspace) (any, error) {
		return ws.Artifact(), nil
	})
}

// GetTree handles GET /sessions/{id}/tree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(ws *sakura.Workspace) (any, error) {
		return nonNil(ws.FS().FileTree()), nil
	})
}

// ListFiles handles GET /sessions/{id}/files.
func (s *Server) ListFiles(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(ws *sakura.Workspace) (any, error) {
		return nonNil(ws.FS().AllFiles()), nil
	})
}

type fileBody struct {
	domain.File
	Language string `json:"language"`
}

// GetFile handles GET /sessions/{id}/files/*. raw=true returns the content as text.
func (s *Server) GetFile(w http.ResponseWriter, r *http.Request) {
	ws, err := s.Sessions.Workspace(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	path := chi.URLParam(r, "*")
	f, ok := ws.FS().GetFile(path)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path))
		return
	}
	if raw := r.URL.Query().Get("raw"); raw == "true" || raw == "1" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, f.Content)
		return
	}
	s.writeJSON(w, http.StatusOK, fileBody{File: f, Language: domain.LanguageFor(f.Path)})
}

// SetActiveFile handles PUT /sessions/{id}/active.
func (s *Server) SetActiveFile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SetActiveFile: invalid request body", "err", err)
		return
	}
	err := s.Sessions.WithWorkspace(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, ws *sakura.Workspace) error {
		if body.Path != "" {
			if _, ok := ws.FS().GetFile(body.Path); !ok {
				return fmt.Errorf("%w: %s", domain.ErrFileNotFound, body.Path)
			}
		}
		ws.FS().SetActiveFile(body.Path)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDependencies handles GET /sessions/{id}/dependencies.
func (s *Server) GetDependencies(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(ws *sakura.Workspace) (any, error) {
		return nonNil(ws.FS().Dependencies()), nil
	})
}

// GetCodeBlocks handles GET /sessions/{id}/codeblocks.
func (s *Server) GetCodeBlocks(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(ws *sakura.Workspace) (any, error) {
		return nonNil(codeblock.Extract(ws.Message())), nil
	})
}

// ValidateMessage handles GET /sessions/{id}/validate.
func (s *Server) ValidateMessage(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(ws *sakura.Workspace) (any, error) {
		report, err := validator.Validate(ws.Message(), ws.Grammar())
		if err != nil {
			return nil, err
		}
		report.Issues = nonNil(report.Issues)
		return report, nil
	})
}

const previewPolicy = "sandbox allow-scripts"

// GetPreview handles GET /sessions/{id}/preview.
func (s *Server) GetPreview(w http.ResponseWriter, r *http.Request) {
	ws, err := s.Sessions.Workspace(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	block, ok := codeblock.Previewable(codeblock.Extract(ws.Message()))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "no previewable code block"})
		return
	}
	page, err := codeblock.PreviewHTML(block)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Model output: scripts run in an opaque origin, never this one.
	w.Header().Set("Content-Security-Policy", previewPolicy)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, page)
}

func (s *Server) read(w http.ResponseWriter, r *http.Request, fn func(*sakura.Workspace) (any, error)) {
	ws, err := s.Sessions.Workspace(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := fn(ws)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) updateSessionGauge(ctx context.Context) {
	if ids, err := s.Sessions.List(ctx); err == nil {
		metrics.SetSessionsActive(len(ids))
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrFileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSessionExists):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
