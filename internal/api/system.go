package api

import (
	"context"
	"database/sql"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/feedback"
)

// Version is stamped at build time with
// -ldflags "-X github.com/admitai/admitai-korea/internal/api.Version=...".
var Version = "0.1.0"

// probeTimeout bounds each dependency check made by /health and /ready.
const probeTimeout = 3 * time.Second

// publicPages are the marketing pages listed in the sitemap.
var publicPages = []string{
	"/",
	"/methodology",
	"/about",
	"/pricing",
	"/schools",
	"/contact",
	"/privacy",
	"/terms",
	"/cookies",
	"/data-protection",
}

// storagePinger is the slice of *seo.Store used by the readiness probe.
type storagePinger interface {
	Ping(ctx context.Context) error
}

// @Summary      Health check
// @Description  Returns ok while the database answers a ping.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ok: true, ts: epoch milliseconds"
// @Failure      503  {object}  map[string]interface{}  "ok: false"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ok":    false,
				"ts":    time.Now().UnixMilli(),
				"error": "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok": true,
			"ts": time.Now().UnixMilli(),
		})
	}
}

// @Summary      Readiness check
// @Description  Reports database, snapshot storage and feedback generator readiness. 200 only when all are ready.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "db, storage, llm: true"
// @Failure      503  {object}  map[string]interface{}  "at least one dependency is false"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
func readinessHandler(db *sql.DB, store storagePinger, ai feedback.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		deps := gin.H{
			"db":      db.PingContext(ctx) == nil,
			"storage": store.Ping(ctx) == nil,
			"llm":     ai.Configured,
		}

		status := http.StatusOK
		for _, ready := range deps {
			if !ready.(bool) {
				status = http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(status, deps)
	}
}

// @Summary      API version
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// @Summary      Feedback generator status
// @Description  Reports whether AI story feedback is configured and which model answers.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data: {configured, model, message}"
// @Router       /ai/status [get]
func aiStatusHandler(status feedback.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    status,
		})
	}
}

// @Summary      robots.txt
// @Tags         System
// @Produce      plain
// @Success      200  {string}  string
// @Router       /robots.txt [get]
func robotsHandler(cfg *config.Config) gin.HandlerFunc {
	body := "User-agent: *\nAllow: /\nSitemap: " + cfg.Server.GetPublicURL() + "/sitemap.xml\n"
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
	}
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// buildSitemap renders the sitemap for base, which has no trailing slash.
func buildSitemap(base string) ([]byte, error) {
	set := sitemapURLSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, page := range publicPages {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + page})
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// @Summary      Sitemap
// @Tags         System
// @Produce      xml
// @Success      200  {string}  string
// @Router       /sitemap.xml [get]
func sitemapHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := buildSitemap(cfg.Server.GetPublicURL())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
	}
}
