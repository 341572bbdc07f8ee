package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/internal/testutils"
	fghttp "github.com/aretw0/formguard/pkg/adapters/http"
	"github.com/aretw0/formguard/pkg/adapters/memory"
	"github.com/aretw0/formguard/pkg/catalog"
	"github.com/aretw0/formguard/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, opts ...fghttp.Option) http.Handler {
	t.Helper()
	eng := testutils.NewEngine(t)
	opts = append([]fghttp.Option{fghttp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return fghttp.NewHandler(eng, opts...)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndInfo(t *testing.T) {
	h := newHandler(t)

	w := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = do(h, http.MethodGet, "/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	info := decode(t, w)
	assert.Equal(t, "formguard-http", info["app"])
	assert.Equal(t, strings.TrimSpace(formguard.Version), info["version"])
	assert.Equal(t, false, info["cache"])
}

func TestSchemas(t *testing.T) {
	h := newHandler(t)

	w := do(h, http.MethodGet, "/schemas", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["entities"], catalog.Default().Len())

	w = do(h, http.MethodGet, "/schemas/"+catalog.AuthLogin, "")
	require.Equal(t, http.StatusOK, w.Code)
	d := decode(t, w)
	assert.Equal(t, "object", d["kind"])

	w = do(h, http.MethodGet, "/schemas/"+catalog.Role+"/openapi", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "object", decode(t, w)["type"])

	w = do(h, http.MethodGet, "/schemas/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["error"], "nope")
}

func TestOpenAPIDocument(t *testing.T) {
	h := newHandler(t)

	w := do(h, http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode(t, w)
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, doc["paths"], "/validate/"+catalog.Contract)
}

func TestValidate(t *testing.T) {
	h := newHandler(t)

	tests := []struct {
		name   string
		target string
		body   string
		status int
		check  func(t *testing.T, out map[string]any)
	}{
		{
			name:   "valid",
			target: "/validate/" + catalog.AuthLogin,
			body:   `{"username":" alice ","password":"pw"}`,
			status: http.StatusOK,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, true, out["valid"])
				value := out["value"].(map[string]any)
				assert.Equal(t, "alice", value["username"])
				assert.Equal(t, false, value["rememberMe"])
			},
		},
		{
			name:   "invalid",
			target: "/validate/" + catalog.AuthChangePassword,
			body:   `{"currentPassword":"old-secret1","newPassword":"abc12345","confirmPassword":"xyz99999"}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, false, out["valid"])
				errs := out["errors"].([]any)
				require.Len(t, errs, 1)
				first := errs[0].(map[string]any)
				assert.Equal(t, "confirmPassword", first["fieldPath"])
				assert.Equal(t, "Passwords don't match!", first["message"])
			},
		},
		{
			name:   "strict rejects unknown keys",
			target: "/validate/" + catalog.AuthLogin + "?strict=true",
			body:   `{"username":"alice","password":"pw","extra":1}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, out map[string]any) {
				first := out["errors"].([]any)[0].(map[string]any)
				assert.Equal(t, "extra", first["fieldPath"])
			},
		},
		{
			name:   "unknown keys stripped by default",
			target: "/validate/" + catalog.AuthLogin,
			body:   `{"username":"alice","password":"pw","extra":1}`,
			status: http.StatusOK,
			check: func(t *testing.T, out map[string]any) {
				assert.NotContains(t, out["value"], "extra")
			},
		},
		{name: "unknown entity", target: "/validate/nope", body: `{}`, status: http.StatusNotFound},
		{name: "bad json", target: "/validate/" + catalog.AuthLogin, body: `{"username":`, status: http.StatusBadRequest},
		{name: "empty body", target: "/validate/" + catalog.AuthLogin, status: http.StatusBadRequest},
		{name: "trailing data", target: "/validate/" + catalog.AuthLogin, body: `{} {}`, status: http.StatusBadRequest},
		{name: "bad option", target: "/validate/" + catalog.AuthLogin + "?halt=maybe", body: `{}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, tt.target, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.check != nil {
				tt.check(t, decode(t, w))
			}
		})
	}
}

func TestValidate_Cache(t *testing.T) {
	var hits, misses int
	h := newHandler(t,
		fghttp.WithCache(memory.NewCache()),
		fghttp.WithCacheObserver(func(hit bool) {
			if hit {
				hits++
			} else {
				misses++
			}
		}),
	)
	target := "/validate/" + catalog.Role

	first := do(h, http.MethodPost, target, `{"name":"Ops","scope":"BANK","permissions":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	// Same payload with different key order and spacing.
	second := do(h, http.MethodPost, target, `{ "permissions": [], "scope": "BANK", "name": "Ops" }`)
	require.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// Options are part of the key.
	third := do(h, http.MethodPost, target+"?strict=1", `{"name":"Ops","scope":"BANK","permissions":[]}`)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))

	assert.Equal(t, 1, hits)
	assert.Equal(t, 2, misses)
}

func engineWithName(t *testing.T, minLen int) *formguard.Engine {
	t.Helper()
	reg := catalog.NewRegistry()
	reg.MustRegister("x", schema.Object(schema.Field("name", schema.String().Min(minLen))))
	return testutils.NewEngine(t, formguard.WithCatalog(reg))
}

func TestValidate_CacheKeyedBySchema(t *testing.T) {
	shared := memory.NewCache()
	logger := fghttp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	lenient := fghttp.NewHandler(engineWithName(t, 1), fghttp.WithCache(shared), logger)
	strict := fghttp.NewHandler(engineWithName(t, 10), fghttp.WithCache(shared), logger)

	w := do(lenient, http.MethodPost, "/validate/x", `{"name":"abc"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = do(strict, http.MethodPost, "/validate/x", `{"name":"abc"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	// An identical schema on another engine still shares the entry.
	w = do(fghttp.NewHandler(engineWithName(t, 1), fghttp.WithCache(shared), logger), http.MethodPost, "/validate/x", `{"name":"abc"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}

func TestValidate_CacheHitFiresHooks(t *testing.T) {
	var events []formguard.ValidationEvent
	h := newHandler(t,
		fghttp.WithCache(memory.NewCache()),
		fghttp.WithHooks(formguard.Hooks{
			OnValidated: func(_ context.Context, e *formguard.ValidationEvent) {
				events = append(events, *e)
			},
		}),
	)
	target := "/validate/" + catalog.Role + "?strict=true"
	body := `{"name":"Ops","scope":"BANK","permissions":[]}`

	require.Equal(t, "MISS", do(h, http.MethodPost, target, body).Header().Get("X-Cache"))
	assert.Empty(t, events, "the engine reports misses through its own hooks")

	require.Equal(t, "HIT", do(h, http.MethodPost, target, body).Header().Get("X-Cache"))
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, catalog.Role, e.Entity)
	assert.True(t, e.Cached)
	assert.True(t, e.Options.StrictUnknownKeys)
	assert.False(t, e.Valid)
	require.NotEmpty(t, e.Errors)
	assert.Equal(t, "permissions", e.Errors[0].Path)
}

func TestMetricsAndCORS(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "formguard_validations_total 1\n")
	})
	h := newHandler(t, fghttp.WithMetrics(metrics))

	w := do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "formguard_validations_total")

	w = do(h, http.MethodOptions, "/validate/"+catalog.AuthLogin, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusNotFound, do(newHandler(t), http.MethodGet, "/metrics", "").Code)
}
