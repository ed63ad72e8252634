// Package parity serves the search-engine parity report under /api/seo.
package parity

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/seo"
)

// Handlers handles the parity report endpoints
type Handlers struct {
	cfg   *config.Config
	store *seo.Store
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Config, store *seo.Store) *Handlers {
	return &Handlers{cfg: cfg, store: store}
}

// Register mounts the parity routes. admin guards the write endpoint.
func (h *Handlers) Register(rg *gin.RouterGroup, admin ...gin.HandlerFunc) {
	rg.GET("/parity", h.GetParityHandler())
	rg.POST("/parity", append(admin, h.IngestParityHandler())...)
}

// IngestParityRequest is the body of POST /api/seo/parity
type IngestParityRequest struct {
	Rows []seo.Row `json:"rows" binding:"required,min=1,dive"`
}

// @Summary      Get parity report
// @Description  Per-page Google, Bing and Naver metrics with ratios and threshold flags. A missing snapshot yields an empty report.
// @Tags         SEO
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "data: seo.Report"
// @Router       /api/seo/parity [get]
// GetParityHandler returns the current parity report
// GET /api/seo/parity
func (h *Handlers) GetParityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": h.store.Report(c.Request.Context())})
	}
}

// @Summary      Ingest parity rows
// @Description  Group per-engine rows by path and replace the stored snapshot.
// @Tags         SEO
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  IngestParityRequest  true  "Rows"
// @Success      200  {object}  map[string]interface{}  "data: seo.Snapshot"
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Failure      403  {object}  map[string]interface{}  "Insufficient permissions"
// @Router       /api/seo/parity [post]
// IngestParityHandler writes a new parity snapshot
// POST /api/seo/parity
func (h *Handlers) IngestParityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IngestParityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body: rows are required"))
			return
		}

		snap, err := h.store.Ingest(c.Request.Context(), req.Rows, seo.DefaultThresholds(h.cfg.SEO))
		if errors.Is(err, seo.ErrInvalidRows) {
			_ = c.Error(apierr.Validation(err.Error()))
			return
		}
		if err != nil {
			_ = c.Error(apierr.Internal("Failed to write parity snapshot", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": snap})
	}
}
