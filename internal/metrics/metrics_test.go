package metrics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/internal/metrics"
	fghttp "github.com/aretw0/formguard/pkg/adapters/http"
	"github.com/aretw0/formguard/pkg/adapters/memory"
	"github.com/aretw0/formguard/pkg/catalog"
	"github.com/aretw0/formguard/pkg/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooks(t *testing.T) {
	m := metrics.New()
	eng, err := formguard.New(formguard.WithHooks(m.Hooks()))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = eng.Validate(ctx, catalog.AuthLogin, map[string]any{"username": "alice", "password": "pw"}, schema.Options{})
	require.NoError(t, err)
	_, err = eng.Validate(ctx, catalog.AuthLogin, map[string]any{}, schema.Options{})
	require.NoError(t, err)
	_, err = eng.Validate(ctx, catalog.AuthLogin, map[string]any{"username": "al", "password": "pw"}, schema.Options{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues(catalog.AuthLogin, "valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Validations.WithLabelValues(catalog.AuthLogin, "invalid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FieldErrors.WithLabelValues(catalog.AuthLogin, schema.CodeRequired)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldErrors.WithLabelValues(catalog.AuthLogin, schema.CodeTooSmall)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestHooks_CachedVerdicts(t *testing.T) {
	m := metrics.New()
	m.Hooks().OnValidated(context.Background(), &formguard.ValidationEvent{
		Entity: catalog.AuthLogin,
		Valid:  false,
		Errors: schema.Errors{{Path: "username", Code: schema.CodeRequired}},
		Cached: true,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues(catalog.AuthLogin, "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldErrors.WithLabelValues(catalog.AuthLogin, schema.CodeRequired)))
	assert.Equal(t, 0, testutil.CollectAndCount(m.Duration), "cache lookups are not evaluations")
}

func TestHooks_CountsCacheHitsServedOverHTTP(t *testing.T) {
	m := metrics.New()
	eng, err := formguard.New(formguard.WithHooks(m.Hooks()))
	require.NoError(t, err)
	h := fghttp.NewHandler(eng,
		fghttp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		fghttp.WithCache(memory.NewCache()),
		fghttp.WithCacheObserver(m.ObserveCache),
		fghttp.WithHooks(m.Hooks()),
	)

	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/validate/"+catalog.AuthLogin, strings.NewReader(`{"username":"al","password":"pw"}`))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Validations.WithLabelValues(catalog.AuthLogin, "invalid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FieldErrors.WithLabelValues(catalog.AuthLogin, schema.CodeTooSmall)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cache.WithLabelValues("hit")))
}

func TestObserveCache(t *testing.T) {
	m := metrics.New()
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	expected := `
# HELP formguard_cache_lookups_total Result cache lookups by outcome
# TYPE formguard_cache_lookups_total counter
formguard_cache_lookups_total{result="hit"} 1
formguard_cache_lookups_total{result="miss"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(m.Cache, strings.NewReader(expected)))
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveCache(true)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `formguard_cache_lookups_total{result="hit"} 1`)
}
