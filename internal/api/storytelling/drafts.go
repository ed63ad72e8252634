package storytelling

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/feedback"
	"github.com/admitai/admitai-korea/internal/middleware"
)

const duplicateTitle = "Draft title already exists for this user"

// CreateDraftRequest is the body of POST /story-drafts
type CreateDraftRequest struct {
	UserID   string   `json:"userId"`
	Title    string   `json:"title"`
	BlockIDs []string `json:"blockIds"`
	FullText string   `json:"fullText"`
}

// UpdateDraftRequest is the body of PATCH /story-drafts/:id, the autosave
// target of the draft editor.
type UpdateDraftRequest struct {
	Title    *string   `json:"title"`
	BlockIDs *[]string `json:"blockIds"`
	FullText *string   `json:"fullText"`
}

func (r UpdateDraftRequest) patch() repositories.DraftPatch {
	var p repositories.DraftPatch
	if r.Title != nil && strings.TrimSpace(*r.Title) != "" {
		p.Title = r.Title
	}
	if r.BlockIDs != nil {
		ids := models.IDList(*r.BlockIDs)
		p.BlockIDs = &ids
	}
	if r.FullText != nil && *r.FullText != "" {
		p.FullText = r.FullText
	}
	return p
}

// ComposeDraftRequest is the body of POST /story-drafts/compose
type ComposeDraftRequest struct {
	UserID   string   `json:"userId"`
	Title    string   `json:"title"`
	BlockIDs []string `json:"blockIds"`
}

// @Summary      List story drafts
// @Tags         Storytelling
// @Produce      json
// @Param        userId  query  string  true  "Owner user ID (defaults to the signed-in user)"
// @Success      200  {object}  map[string]interface{}  "data: []models.StoryDraft"
// @Failure      400  {object}  map[string]interface{}  "Missing userId"
// @Router       /api/storytelling/story-drafts [get]
// ListDraftsHandler lists story drafts, most recently updated first
// GET /api/storytelling/story-drafts?userId=
func (h *Handlers) ListDraftsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := resolveUser(c, c.Query("userId"))
		if !ok {
			return
		}

		drafts, err := h.storyRepo.ListDrafts(c.Request.Context(), userID)
		if err != nil {
			storeError(c, "Failed to fetch story drafts", err)
			return
		}
		okJSON(c, http.StatusOK, drafts)
	}
}

// @Summary      Create story draft
// @Tags         Storytelling
// @Accept       json
// @Produce      json
// @Param        body  body  CreateDraftRequest  true  "Draft"
// @Success      201  {object}  map[string]interface{}  "data: models.StoryDraft"
// @Failure      400  {object}  map[string]interface{}  "Missing required fields"
// @Failure      409  {object}  map[string]interface{}  "Draft title already exists for this user"
// @Router       /api/storytelling/story-drafts [post]
// CreateDraftHandler creates a story draft
// POST /api/storytelling/story-drafts
func (h *Handlers) CreateDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateDraftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		if strings.TrimSpace(req.Title) == "" || req.BlockIDs == nil || req.FullText == "" {
			_ = c.Error(apierr.BadRequest("Missing required fields"))
			return
		}
		userID, ok := resolveUser(c, req.UserID)
		if !ok {
			return
		}

		h.createDraft(c, &models.StoryDraft{
			UserID:   userID,
			Title:    req.Title,
			BlockIDs: models.IDList(req.BlockIDs),
			FullText: req.FullText,
		})
	}
}

// @Summary      Compose story draft
// @Description  Create a draft whose text is the selected blocks' responses, in the given order, separated by blank lines.
// @Tags         Storytelling
// @Accept       json
// @Produce      json
// @Param        body  body  ComposeDraftRequest  true  "Title and block selection"
// @Success      201  {object}  map[string]interface{}  "data: models.StoryDraft"
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Failure      409  {object}  map[string]interface{}  "Draft title already exists for this user"
// @Router       /api/storytelling/story-drafts/compose [post]
// ComposeDraftHandler builds a draft from blocks
// POST /api/storytelling/story-drafts/compose
func (h *Handlers) ComposeDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ComposeDraftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		if strings.TrimSpace(req.Title) == "" || len(req.BlockIDs) == 0 {
			_ = c.Error(apierr.BadRequest("Missing required fields"))
			return
		}
		userID, ok := resolveUser(c, req.UserID)
		if !ok {
			return
		}

		blocks, err := h.storyRepo.GetBlocksByIDs(c.Request.Context(), userID, req.BlockIDs)
		if err != nil {
			storeError(c, "Failed to fetch story blocks", err)
			return
		}
		if len(blocks) != len(req.BlockIDs) {
			_ = c.Error(apierr.BadRequest("Block does not belong to user"))
			return
		}

		parts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			parts = append(parts, strings.TrimSpace(b.Response))
		}
		h.createDraft(c, &models.StoryDraft{
			UserID:   userID,
			Title:    req.Title,
			BlockIDs: models.IDList(req.BlockIDs),
			FullText: strings.Join(parts, "\n\n"),
		})
	}
}

func (h *Handlers) createDraft(c *gin.Context, draft *models.StoryDraft) {
	err := h.storyRepo.CreateDraft(c.Request.Context(), draft)
	if errors.Is(err, repositories.ErrDuplicate) {
		_ = c.Error(apierr.Conflict(duplicateTitle))
		return
	}
	if err != nil {
		storeError(c, "Failed to create story draft", err)
		return
	}
	okJSON(c, http.StatusCreated, draft)
}

// @Summary      Update story draft
// @Tags         Storytelling
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "Draft ID"
// @Param        body  body  UpdateDraftRequest  true  "Fields to change"
// @Success      200  {object}  map[string]interface{}  "data: models.StoryDraft"
// @Failure      400  {object}  map[string]interface{}  "Nothing to update"
// @Failure      404  {object}  map[string]interface{}  "Story draft not found"
// @Failure      409  {object}  map[string]interface{}  "Draft title already exists for this user"
// @Router       /api/storytelling/story-drafts/{id} [patch]
// UpdateDraftHandler updates a story draft
// PATCH /api/storytelling/story-drafts/:id
func (h *Handlers) UpdateDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateDraftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		patch := req.patch()
		if patch.IsEmpty() {
			_ = c.Error(apierr.BadRequest("Nothing to update"))
			return
		}

		if _, ok := h.loadDraft(c); !ok {
			return
		}
		draft, err := h.storyRepo.UpdateDraft(c.Request.Context(), c.Param("id"), patch)
		if errors.Is(err, repositories.ErrDuplicate) {
			_ = c.Error(apierr.Conflict(duplicateTitle))
			return
		}
		if err != nil {
			storeError(c, "Failed to update story draft", err)
			return
		}
		if draft == nil {
			_ = c.Error(apierr.NotFound("Story draft not found"))
			return
		}
		okJSON(c, http.StatusOK, draft)
	}
}

// @Summary      Delete story draft
// @Tags         Storytelling
// @Produce      json
// @Param        id  path  string  true  "Draft ID"
// @Success      200  {object}  map[string]interface{}  "success: true"
// @Failure      404  {object}  map[string]interface{}  "Story draft not found"
// @Router       /api/storytelling/story-drafts/{id} [delete]
// DeleteDraftHandler deletes a story draft
// DELETE /api/storytelling/story-drafts/:id
func (h *Handlers) DeleteDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := h.loadDraft(c); !ok {
			return
		}
		found, err := h.storyRepo.DeleteDraft(c.Request.Context(), c.Param("id"))
		if err != nil {
			storeError(c, "Failed to delete story draft", err)
			return
		}
		if !found {
			_ = c.Error(apierr.NotFound("Story draft not found"))
			return
		}
		deleted(c)
	}
}

// @Summary      Generate cultural-fit feedback
// @Description  Review the draft's full text and store the result as culturalFitFeedback.
// @Tags         Storytelling
// @Produce      json
// @Param        id  path  string  true  "Draft ID"
// @Success      200  {object}  map[string]interface{}  "data: models.StoryDraft"
// @Failure      404  {object}  map[string]interface{}  "Story draft not found"
// @Failure      502  {object}  map[string]interface{}  "Failed to generate feedback"
// @Router       /api/storytelling/story-drafts/{id}/cultural-fit [post]
// CulturalFitHandler generates cultural-fit feedback for a draft
// POST /api/storytelling/story-drafts/:id/cultural-fit
func (h *Handlers) CulturalFitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		draft, ok := h.loadDraft(c)
		if !ok {
			return
		}
		text, ok := h.generate(c, feedback.KindCulturalFit, draft.FullText)
		if !ok {
			return
		}

		updated, err := h.storyRepo.SetCulturalFitFeedback(c.Request.Context(), draft.ID, text)
		if err != nil {
			storeError(c, "Failed to save feedback", err)
			return
		}
		if updated == nil {
			_ = c.Error(apierr.NotFound("Story draft not found"))
			return
		}
		okJSON(c, http.StatusOK, updated)
	}
}

func (h *Handlers) loadDraft(c *gin.Context) (*models.StoryDraft, bool) {
	draft, err := h.storyRepo.GetDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, "Failed to fetch story draft", err)
		return nil, false
	}
	if draft == nil {
		_ = c.Error(apierr.NotFound("Story draft not found"))
		return nil, false
	}
	if !middleware.CanActFor(c, draft.UserID) {
		_ = c.Error(apierr.Forbidden(""))
		return nil, false
	}
	return draft, true
}
