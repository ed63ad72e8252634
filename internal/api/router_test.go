package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admitai/admitai-korea/internal/auth"
	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/admitai/admitai-korea/internal/feedback"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newPingDB(t *testing.T, pingErrs ...error) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, e := range pingErrs {
		if e == nil {
			mock.ExpectPing()
		} else {
			mock.ExpectPing().WillReturnError(e)
		}
	}
	return db
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheckHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", healthCheckHandler(newPingDB(t, nil)))

		w := get(r, "/health")
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeMap(t, w)
		assert.Equal(t, true, body["ok"])
		assert.Greater(t, body["ts"], float64(0))
	})

	t.Run("database down", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", healthCheckHandler(newPingDB(t, sql.ErrConnDone)))

		w := get(r, "/health")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, false, decodeMap(t, w)["ok"])
	})
}

func TestReadinessHandler(t *testing.T) {
	cases := []struct {
		name       string
		dbErr      error
		storageErr error
		ai         feedback.Status
		wantCode   int
		want       map[string]interface{}
	}{
		{
			name:     "all ready",
			ai:       feedback.Status{Configured: true},
			wantCode: http.StatusOK,
			want:     map[string]interface{}{"db": true, "storage": true, "llm": true},
		},
		{
			name:     "database down",
			dbErr:    sql.ErrConnDone,
			ai:       feedback.Status{Configured: true},
			wantCode: http.StatusServiceUnavailable,
			want:     map[string]interface{}{"db": false, "storage": true, "llm": true},
		},
		{
			name:       "storage down",
			storageErr: errors.New("bucket unreachable"),
			ai:         feedback.Status{Configured: true},
			wantCode:   http.StatusServiceUnavailable,
			want:       map[string]interface{}{"db": true, "storage": false, "llm": true},
		},
		{
			name:     "generator not configured",
			wantCode: http.StatusServiceUnavailable,
			want:     map[string]interface{}{"db": true, "storage": true, "llm": false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/ready", readinessHandler(newPingDB(t, tc.dbErr), fakePinger{tc.storageErr}, tc.ai))

			w := get(r, "/ready")
			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.want, decodeMap(t, w))
		})
	}
}

func TestAIStatusHandler(t *testing.T) {
	r := gin.New()
	r.GET("/ai/status", aiStatusHandler(feedback.Status{Configured: true, Model: "heuristic", Message: "ok"}))

	w := get(r, "/ai/status")
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Success bool            `json:"success"`
		Data    feedback.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "heuristic", env.Data.Model)
	assert.True(t, env.Data.Configured)
}

func TestVersionHandler(t *testing.T) {
	r := gin.New()
	r.GET("/version", versionHandler())

	w := get(r, "/version")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Version, decodeMap(t, w)["version"])
}

func TestRobotsHandler(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.PublicURL = "https://example.kr/"

	r := gin.New()
	r.GET("/robots.txt", robotsHandler(cfg))

	w := get(r, "/robots.txt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User-agent: *\nAllow: /\nSitemap: https://example.kr/sitemap.xml\n", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
}

func TestSitemapHandler(t *testing.T) {
	r := gin.New()
	r.GET("/sitemap.xml", sitemapHandler(&config.Config{}))

	w := get(r, "/sitemap.xml")
	require.Equal(t, http.StatusOK, w.Code)

	var set sitemapURLSet
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &set))
	assert.Equal(t, "http://www.sitemaps.org/schemas/sitemap/0.9", set.XMLNS)
	require.Len(t, set.URLs, len(publicPages))
	assert.Equal(t, "https://admitai.kr/", set.URLs[0].Loc)
	assert.Equal(t, "https://admitai.kr/data-protection", set.URLs[len(set.URLs)-1].Loc)
}

func routerConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Server.PublicURL = "https://admitai.kr"
	cfg.Storage.DefaultBackend = "local"
	cfg.Storage.Local.BasePath = t.TempDir()
	cfg.Auth.JWTSecret = "router-test-secret-with-enough-length!!"
	cfg.AI.Provider = "heuristic"
	cfg.SEO.SnapshotKey = "seo/parity.json"
	return cfg
}

func TestNewRouter_Routes(t *testing.T) {
	db := newPingDB(t, nil)
	r, bg, err := NewRouter(routerConfig(t), db)
	require.NoError(t, err)
	t.Cleanup(bg.Shutdown)

	t.Run("health", func(t *testing.T) {
		w := get(r, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ai status reports heuristic", func(t *testing.T) {
		w := get(r, "/ai/status")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"model":"heuristic"`)
	})

	t.Run("empty parity report is public", func(t *testing.T) {
		w := get(r, "/api/seo/parity")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeMap(t, w)["success"])
	})

	t.Run("users require a session", func(t *testing.T) {
		w := get(r, "/api/users/me")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, false, decodeMap(t, w)["success"])
	})

	t.Run("verify requires a session", func(t *testing.T) {
		w := get(r, "/api/auth/verify")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("parity ingest requires a session", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/seo/parity", strings.NewReader(`{"rows":[]}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := get(r, "/api/does-not-exist")
		require.Equal(t, http.StatusNotFound, w.Code)
		body := decodeMap(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Endpoint not found", body["message"])
	})

	t.Run("security headers", func(t *testing.T) {
		w := get(r, "/version")
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})
}

func TestNewRouter_RateLimitedAPI(t *testing.T) {
	cfg := routerConfig(t)
	cfg.Security.RateLimiting = config.RateLimitingConfig{Enabled: true, Requests: 2, Burst: 2}

	r, bg, err := NewRouter(cfg, newPingDB(t))
	require.NoError(t, err)
	t.Cleanup(bg.Shutdown)
	require.Len(t, bg.rateLimiters, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(r, "/api/seo/parity").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// System endpoints sit outside the /api budget.
	assert.Equal(t, http.StatusOK, get(r, "/version").Code)
}

func TestNewRouter_RateLimitKeyedBySession(t *testing.T) {
	cfg := routerConfig(t)
	cfg.Security.RateLimiting = config.RateLimitingConfig{Enabled: true, Requests: 1, Burst: 1}

	r, bg, err := NewRouter(cfg, newPingDB(t))
	require.NoError(t, err)
	t.Cleanup(bg.Shutdown)

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, 0, false)
	require.NoError(t, err)
	token, err := tokens.Generate("user-1", "minji@example.kr", models.RoleStudent)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, get(r, "/api/seo/parity").Code)
	require.Equal(t, http.StatusTooManyRequests, get(r, "/api/seo/parity").Code)

	// Same address, but the session has a budget of its own.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/seo/parity", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouter_InvalidStorage(t *testing.T) {
	cfg := routerConfig(t)
	cfg.Storage.DefaultBackend = "floppy"

	r, bg, err := NewRouter(cfg, newPingDB(t))
	require.Error(t, err)
	assert.Nil(t, r)
	assert.Nil(t, bg)
	assert.Contains(t, err.Error(), "storage backend")
}

func TestNewRouter_MissingJWTSecret(t *testing.T) {
	cfg := routerConfig(t)
	cfg.Auth.JWTSecret = ""

	_, _, err := NewRouter(cfg, newPingDB(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security configuration error")
}

func TestBackgroundServices_ShutdownIsIdempotent(t *testing.T) {
	r, bg, err := NewRouter(routerConfig(t), newPingDB(t))
	require.NoError(t, err)
	require.NotNil(t, r)

	bg.Shutdown()
	bg.Shutdown()

	var nilBG *BackgroundServices
	nilBG.Shutdown()
}
