package parity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/middleware"
	"github.com/admitai/admitai-korea/internal/seo"
	"github.com/admitai/admitai-korea/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const snapshotKey = "seo/sample-parity.json"

type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (m *memBackend) Put(_ context.Context, key string, data []byte, _ string) (*storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.objects[key] = data
	return &storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memBackend) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	if _, err := m.Get(context.Background(), key); err != nil {
		return nil, err
	}
	return &storage.ObjectInfo{Key: key}, nil
}

func (m *memBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{SEO: config.SEOConfig{
		SnapshotKey:            snapshotKey,
		NaverToGoogleThreshold: 0.6,
		BingToGoogleThreshold:  0.15,
	}}
}

// newRouter mounts the parity routes. role, when set, is injected as the
// caller's role ahead of the admin guard.
func newRouter(b *memBackend, role string) *gin.Engine {
	cfg := testConfig()
	h := NewHandlers(cfg, seo.NewStore(b, cfg.SEO.SnapshotKey))

	r := gin.New()
	r.Use(middleware.ErrorHandler(false))
	r.Use(func(c *gin.Context) {
		if role != "" {
			c.Set(middleware.ContextUserID, "u1")
			c.Set(middleware.ContextRole, role)
		}
		c.Next()
	})
	h.Register(r.Group("/api/seo"), middleware.RequireRole("ADMIN"))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type reportEnvelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Details string     `json:"details"`
	Data    seo.Report `json:"data"`
}

func TestGetParity_MissingSnapshot(t *testing.T) {
	r := newRouter(&memBackend{objects: map[string][]byte{}}, "")
	w := do(r, http.MethodGet, "/api/seo/parity", "")
	require.Equal(t, http.StatusOK, w.Code)

	var env reportEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, []string{"7d", "28d"}, env.Data.Windows)
	assert.Empty(t, env.Data.Pages)
	assert.Empty(t, env.Data.ParityThresholds)
	assert.False(t, env.Data.GeneratedAt.IsZero())
}

func TestGetParity_FromSnapshot(t *testing.T) {
	b := &memBackend{objects: map[string][]byte{snapshotKey: []byte(`{
		"generatedAt": "2026-02-01T00:00:00Z",
		"pages": [{"path": "/", "google": {"impressions": 1000, "clicks": 100, "ctr": 0.1},
		           "bing": null, "naver": {"impressions": 400, "clicks": 70, "ctr": 0.17}}],
		"parityThresholds": {"naverToGoogleImpressions": 0.6, "naverToGoogleClicks": 0.6}
	}`)}}
	r := newRouter(b, "")

	w := do(r, http.MethodGet, "/api/seo/parity", "")
	require.Equal(t, http.StatusOK, w.Code)

	var env reportEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data.Pages, 1)
	page := env.Data.Pages[0]
	assert.Equal(t, 0.4, page.NaverToGoogleImpressions)
	assert.Equal(t, 0.7, page.NaverToGoogleClicks)
	assert.True(t, page.BelowThreshold["naverToGoogleImpressions"])
	assert.False(t, page.BelowThreshold["naverToGoogleClicks"])
	assert.Nil(t, page.Bing)
}

func TestIngestParity(t *testing.T) {
	const body = `{"rows": [
		{"path": "/", "engine": "google", "impressions": 100, "clicks": 10, "ctr": 0.1},
		{"path": "/", "engine": "NAVER", "impressions": 50, "clicks": 5, "ctr": 0.1},
		{"path": "/pricing", "engine": "bing", "impressions": 3, "clicks": 0, "ctr": 0}
	]}`

	t.Run("admin writes snapshot", func(t *testing.T) {
		b := &memBackend{objects: map[string][]byte{}}
		r := newRouter(b, "ADMIN")

		w := do(r, http.MethodPost, "/api/seo/parity", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var env struct {
			Data seo.Snapshot `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.Len(t, env.Data.Pages, 2)
		assert.Equal(t, "/", env.Data.Pages[0].Path)
		assert.Equal(t, int64(50), env.Data.Pages[0].Naver.Impressions)
		assert.Equal(t, 0.6, env.Data.ParityThresholds["naverToGoogleClicks"])
		assert.Equal(t, 0.15, env.Data.ParityThresholds["bingToGoogleImpressions"])
		assert.Contains(t, string(b.objects[snapshotKey]), `"path": "/pricing"`)

		get := do(r, http.MethodGet, "/api/seo/parity", "")
		var rep reportEnvelope
		require.NoError(t, json.Unmarshal(get.Body.Bytes(), &rep))
		assert.Len(t, rep.Data.Pages, 2)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		b := &memBackend{objects: map[string][]byte{}}
		w := do(newRouter(b, "STUDENT"), http.MethodPost, "/api/seo/parity", body)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, b.objects)
	})

	t.Run("anonymous unauthorized", func(t *testing.T) {
		w := do(newRouter(&memBackend{objects: map[string][]byte{}}, ""), http.MethodPost, "/api/seo/parity", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty rows", func(t *testing.T) {
		w := do(newRouter(&memBackend{objects: map[string][]byte{}}, "ADMIN"), http.MethodPost, "/api/seo/parity", `{"rows": []}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown engine", func(t *testing.T) {
		w := do(newRouter(&memBackend{objects: map[string][]byte{}}, "ADMIN"), http.MethodPost, "/api/seo/parity",
			`{"rows": [{"path": "/", "engine": "yahoo"}]}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var env reportEnvelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Contains(t, env.Details, "unknown engine")
	})

	t.Run("storage failure", func(t *testing.T) {
		b := &memBackend{objects: map[string][]byte{}, putErr: errors.New("bucket unavailable")}
		w := do(newRouter(b, "ADMIN"), http.MethodPost, "/api/seo/parity", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
