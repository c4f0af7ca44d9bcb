// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func serve(t *testing.T, h *Handler, path string) (int, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	h := NewHandler(Config{Environment: "test"})
	h.started = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return h.started.Add(90 * time.Second) }

	code, body := serve(t, h, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "test", body["environment"])
	assert.Equal(t, 90.0, body["uptime"])
	assert.Equal(t, "2026-01-01T00:01:30Z", body["timestamp"])
}

func TestReadiness(t *testing.T) {
	healthy := NewHandler(Config{StoreName: "mongo", Store: pinger{}, Redis: pinger{}})
	code, body := serve(t, healthy, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	checks := body["checks"].([]any)
	require.Len(t, checks, 2)
	assert.Equal(t, "mongo", checks[0].(map[string]any)["name"])

	degraded := NewHandler(Config{Store: pinger{}, Redis: pinger{err: errors.New("down")}})
	code, body = serve(t, degraded, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])

	unconfigured := NewHandler(Config{Redis: pinger{}})
	code, _ = serve(t, unconfigured, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestShutdownFlipsProbes(t *testing.T) {
	h := NewHandler(Config{Store: pinger{}, Redis: pinger{}})

	code, _ := serve(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code)

	h.SetShutdown(true)
	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		code, body := serve(t, h, path)
		assert.Equal(t, http.StatusServiceUnavailable, code, path)
		assert.Equal(t, "shutting_down", body["status"], path)
	}

	code, _ = serve(t, h, "/health")
	assert.Equal(t, http.StatusOK, code)
}

func TestNotReady(t *testing.T) {
	h := NewHandler(Config{Store: pinger{}, Redis: pinger{}})
	h.SetReady(false)

	code, body := serve(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body["status"])
}
