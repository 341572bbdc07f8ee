// Package http exposes the validation engine as a JSON HTTP service.
package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/pkg/openapi"
	"github.com/aretw0/formguard/pkg/ports"
	"github.com/aretw0/formguard/pkg/schema"
	"github.com/go-chi/chi/v5"
)

// MaxBodyBytes bounds the size of a payload accepted by POST /validate.
const MaxBodyBytes = 1 << 20

// Engine defines the subset of formguard.Engine the server needs.
type Engine interface {
	Validate(ctx context.Context, entity string, input any, opts schema.Options) (schema.Result, error)
	Describe(entity string) (schema.Description, error)
	Schema(entity string) (schema.ObjectRule, error)
	Entities() []string
}

// Server serves validation requests for an Engine.
type Server struct {
	Engine  Engine
	Cache   ports.ResultCache
	Logger  *slog.Logger
	Metrics http.Handler

	// Hooks receive verdicts served from Cache, which never reach the Engine
	// and so never fire its own hooks.
	Hooks formguard.Hooks

	// OnCache is called after every cache lookup with the outcome.
	OnCache func(hit bool)
}

// Option configures a Server.
type Option func(*Server)

// WithCache enables result caching for POST /validate.
func WithCache(c ports.ResultCache) Option {
	return func(s *Server) {
		s.Cache = c
	}
}

// WithLogger sets the request logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = l
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithHooks registers callbacks fired for cached verdicts.
func WithHooks(h formguard.Hooks) Option {
	return func(s *Server) {
		s.Hooks = h
	}
}

// WithCacheObserver registers a callback for cache hits and misses.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(s *Server) {
		s.OnCache = fn
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/schemas", s.ListSchemas)
	r.Get("/schemas/{entity}", s.GetSchema)
	r.Get("/schemas/{entity}/openapi", s.GetSchemaOpenAPI)
	r.Get("/openapi.json", s.GetDocument)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	r.Post("/validate/{entity}", s.Validate)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
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
    <title>formguard API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.json',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// ValidationResponse is the body of POST /validate.
type ValidationResponse struct {
	Valid  bool          `json:"valid"`
	Value  any           `json:"value,omitempty"`
	Errors schema.Errors `json:"errors,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// cachedResponse is what the result cache stores per request digest.
type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Validate handles the POST /validate/{entity} request.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if _, err := s.Engine.Schema(entity); err != nil {
		s.fail(w, err)
		return
	}

	opts, err := parseOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	payload, err := decodeBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		s.Logger.Warn("Validate: Invalid request body", "entity", entity, "error", err)
		return
	}

	var key string
	if s.Cache != nil {
		start := time.Now()
		key, err = s.cacheKey(entity, opts, payload)
		if err != nil {
			s.Logger.Warn("Validate: cache key failed", "entity", entity, "error", err)
		} else {
			if hit, ok := s.lookup(r.Context(), key); ok {
				w.Header().Set("X-Cache", "HIT")
				writeRaw(w, hit.Status, hit.Body)
				s.replay(r.Context(), entity, opts, hit, time.Since(start))
				return
			}
			w.Header().Set("X-Cache", "MISS")
		}
	}

	res, err := s.Engine.Validate(r.Context(), entity, payload, opts)
	if err != nil {
		s.fail(w, err)
		return
	}

	status := http.StatusOK
	if !res.Valid() {
		status = http.StatusUnprocessableEntity
	}
	body, err := json.Marshal(ValidationResponse{Valid: res.Valid(), Value: res.Value, Errors: res.Errors})
	if err != nil {
		http.Error(w, "Failed to encode result", http.StatusInternalServerError)
		s.Logger.Error("Validate: encode failed", "entity", entity, "error", err)
		return
	}

	if key != "" {
		s.store(r.Context(), key, cachedResponse{Status: status, Body: body})
	}
	writeRaw(w, status, body)
}

func (s *Server) lookup(ctx context.Context, key string) (cachedResponse, bool) {
	data, err := s.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			s.Logger.Warn("Result cache lookup failed", "error", err)
		}
		s.observe(false)
		return cachedResponse{}, false
	}
	var c cachedResponse
	if err := json.Unmarshal(data, &c); err != nil || c.Status == 0 {
		s.Logger.Warn("Discarding corrupt cache entry", "key", key)
		_ = s.Cache.Delete(ctx, key)
		s.observe(false)
		return cachedResponse{}, false
	}
	s.observe(true)
	return c, true
}

func (s *Server) store(ctx context.Context, key string, c cachedResponse) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, key, data); err != nil {
		s.Logger.Warn("Result cache write failed", "error", err)
	}
}

// replay fires OnValidated for a verdict served from the cache.
func (s *Server) replay(ctx context.Context, entity string, opts schema.Options, c cachedResponse, elapsed time.Duration) {
	if s.Hooks.OnValidated == nil {
		return
	}
	var body ValidationResponse
	if err := json.Unmarshal(c.Body, &body); err != nil {
		s.Logger.Warn("Cached verdict not replayed", "entity", entity, "error", err)
		return
	}
	s.Hooks.OnValidated(ctx, &formguard.ValidationEvent{
		Entity:   entity,
		Options:  opts,
		Valid:    body.Valid,
		Errors:   body.Errors,
		Duration: elapsed,
		Cached:   true,
	})
}

func (s *Server) observe(hit bool) {
	if s.OnCache != nil {
		s.OnCache(hit)
	}
}

// ListSchemas handles the GET /schemas request.
func (s *Server) ListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"entities": s.Engine.Entities()})
}

// GetSchema handles the GET /schemas/{entity} request.
func (s *Server) GetSchema(w http.ResponseWriter, r *http.Request) {
	d, err := s.Engine.Describe(chi.URLParam(r, "entity"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetSchemaOpenAPI handles the GET /schemas/{entity}/openapi request.
func (s *Server) GetSchemaOpenAPI(w http.ResponseWriter, r *http.Request) {
	d, err := s.Engine.Describe(chi.URLParam(r, "entity"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, openapi.Schema(d))
}

// GetDocument handles the GET /openapi.json request.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := openapi.Document(source{s.Engine}, strings.TrimSpace(formguard.Version))
	if err != nil {
		http.Error(w, "Failed to build OpenAPI document", http.StatusInternalServerError)
		s.Logger.Error("OpenAPI document failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":      "formguard-http",
		"version":  strings.TrimSpace(formguard.Version),
		"entities": len(s.Engine.Entities()),
		"cache":    s.Cache != nil,
	})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, formguard.ErrUnknownEntity):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		s.Logger.Error("Request failed", "error", err)
	}
}

// source adapts an Engine to openapi.Source.
type source struct{ Engine }

func (s source) Names() []string { return s.Entities() }

func (s source) Get(name string) (schema.ObjectRule, error) { return s.Schema(name) }

// -- Helpers --

func parseOptions(r *http.Request) (schema.Options, error) {
	var opts schema.Options
	q := r.URL.Query()
	for name, dst := range map[string]*bool{
		"strict": &opts.StrictUnknownKeys,
		"halt":   &opts.HaltOnFirstRefinementFailure,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid %s parameter %q", name, raw)
		}
		*dst = v
	}
	return opts, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request) (any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty request body")
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("request body must contain a single JSON value")
	}
	return payload, nil
}

// cacheKey digests the schema fingerprint, the entity, the options and the
// payload re-encoded with sorted keys, so equivalent bodies share an entry and
// a changed rule never serves an old verdict.
func (s *Server) cacheKey(entity string, opts schema.Options, payload any) (string, error) {
	fp, err := s.fingerprint(entity)
	if err != nil {
		return "", err
	}
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%t\x00%t\x00", fp, entity, opts.StrictUnknownKeys, opts.HaltOnFirstRefinementFailure)
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// fingerprint digests the build version and the entity's description.
func (s *Server) fingerprint(entity string) (string, error) {
	d, err := s.Engine.Describe(entity)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", entity, err)
	}
	h := sha256.New()
	io.WriteString(h, strings.TrimSpace(formguard.Version))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
