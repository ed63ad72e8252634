// Package storytelling serves the story block and story draft endpoints under
// /api/storytelling.
package storytelling

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/feedback"
	"github.com/admitai/admitai-korea/internal/locale"
	"github.com/admitai/admitai-korea/internal/middleware"
)

// Handlers handles story block and draft endpoints
type Handlers struct {
	cfg       *config.Config
	storyRepo *repositories.StoryRepository
	generator feedback.Generator
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Config, db *sqlx.DB, generator feedback.Generator) *Handlers {
	return &Handlers{
		cfg:       cfg,
		storyRepo: repositories.NewStoryRepository(db),
		generator: generator,
	}
}

// Register mounts every storytelling route on rg.
func (h *Handlers) Register(rg *gin.RouterGroup) {
	blocks := rg.Group("/story-blocks")
	{
		blocks.GET("", h.ListBlocksHandler())
		blocks.POST("", h.CreateBlockHandler())
		blocks.PUT("/reorder", h.ReorderBlocksHandler())
		blocks.PATCH("/:id", h.UpdateBlockHandler())
		blocks.DELETE("/:id", h.DeleteBlockHandler())
		blocks.POST("/:id/feedback", h.BlockFeedbackHandler())
	}

	drafts := rg.Group("/story-drafts")
	{
		drafts.GET("", h.ListDraftsHandler())
		drafts.POST("", h.CreateDraftHandler())
		drafts.POST("/compose", h.ComposeDraftHandler())
		drafts.PATCH("/:id", h.UpdateDraftHandler())
		drafts.DELETE("/:id", h.DeleteDraftHandler())
		drafts.POST("/:id/cultural-fit", h.CulturalFitHandler())
	}
}

// resolveUser picks the target user from an explicit id or the caller and
// reports a response-ready error when neither is usable.
func resolveUser(c *gin.Context, requested string) (string, bool) {
	userID, allowed := middleware.OwnerOrCaller(c, strings.TrimSpace(requested))
	if userID == "" {
		_ = c.Error(apierr.BadRequest("Missing userId"))
		return "", false
	}
	if !allowed {
		_ = c.Error(apierr.Forbidden(""))
		return "", false
	}
	return userID, true
}

// generate runs the feedback generator and maps its failures onto API errors.
func (h *Handlers) generate(c *gin.Context, kind feedback.Kind, text string) (string, bool) {
	out, err := h.generator.Generate(c.Request.Context(), feedback.Request{
		Kind:     kind,
		Text:     text,
		Language: locale.Resolve(c.Query("language"), c.GetHeader("Accept-Language")),
	})
	if errors.Is(err, feedback.ErrEmptyText) {
		_ = c.Error(apierr.BadRequest("Nothing to review"))
		return "", false
	}
	if err != nil {
		_ = c.Error(apierr.Upstream("Failed to generate feedback", err))
		return "", false
	}
	return out, true
}

// storeError reports a repository failure. A malformed id in the request is
// the caller's mistake and answers 400.
func storeError(c *gin.Context, message string, err error) {
	if repositories.IsInvalidID(err) {
		_ = c.Error(apierr.BadRequest("Invalid id"))
		return
	}
	_ = c.Error(apierr.Internal(message, err))
}

func okJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func deleted(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}
