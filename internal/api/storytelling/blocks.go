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
	"github.com/admitai/admitai-korea/internal/telemetry"
)

// CreateBlockRequest is the body of POST /story-blocks
type CreateBlockRequest struct {
	UserID   string `json:"userId"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Order    *int   `json:"order"`
}

// UpdateBlockRequest is the body of PATCH /story-blocks/:id. Empty strings
// are treated as absent.
type UpdateBlockRequest struct {
	Prompt   *string `json:"prompt"`
	Response *string `json:"response"`
	Order    *int    `json:"order"`
}

func (r UpdateBlockRequest) patch() repositories.BlockPatch {
	var p repositories.BlockPatch
	if r.Prompt != nil && *r.Prompt != "" {
		p.Prompt = r.Prompt
	}
	if r.Response != nil && *r.Response != "" {
		p.Response = r.Response
	}
	p.Order = r.Order
	return p
}

// ReorderBlocksRequest is the body of PUT /story-blocks/reorder
type ReorderBlocksRequest struct {
	UserID   string   `json:"userId"`
	BlockIDs []string `json:"blockIds"`
}

// @Summary      List story blocks
// @Description  List a user's story blocks ordered by their order field.
// @Tags         Storytelling
// @Produce      json
// @Param        userId  query  string  true  "Owner user ID (defaults to the signed-in user)"
// @Success      200  {object}  map[string]interface{}  "data: []models.StoryBlock"
// @Failure      400  {object}  map[string]interface{}  "Missing userId"
// @Failure      403  {object}  map[string]interface{}  "Insufficient permissions"
// @Router       /api/storytelling/story-blocks [get]
// ListBlocksHandler lists story blocks
// GET /api/storytelling/story-blocks?userId=
func (h *Handlers) ListBlocksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := resolveUser(c, c.Query("userId"))
		if !ok {
			return
		}

		blocks, err := h.storyRepo.ListBlocks(c.Request.Context(), userID)
		if err != nil {
			storeError(c, "Failed to fetch story blocks", err)
			return
		}
		okJSON(c, http.StatusOK, blocks)
	}
}

// @Summary      Create story block
// @Description  Create a story block. Without an order the block is appended after the user's last block.
// @Tags         Storytelling
// @Accept       json
// @Produce      json
// @Param        body  body  CreateBlockRequest  true  "Block"
// @Success      201  {object}  map[string]interface{}  "data: models.StoryBlock"
// @Failure      400  {object}  map[string]interface{}  "Missing required fields"
// @Router       /api/storytelling/story-blocks [post]
// CreateBlockHandler creates a story block
// POST /api/storytelling/story-blocks
func (h *Handlers) CreateBlockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBlockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		userID, ok := resolveUser(c, req.UserID)
		if !ok {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" || strings.TrimSpace(req.Response) == "" {
			_ = c.Error(apierr.BadRequest("Missing required fields"))
			return
		}

		block := &models.StoryBlock{UserID: userID, Prompt: req.Prompt, Response: req.Response}
		if err := h.storyRepo.CreateBlock(c.Request.Context(), block, req.Order); err != nil {
			storeError(c, "Failed to create story block", err)
			return
		}
		telemetry.StoryBlocksCreatedTotal.Inc()
		okJSON(c, http.StatusCreated, block)
	}
}

// @Summary      Update story block
// @Tags         Storytelling
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "Block ID"
// @Param        body  body  UpdateBlockRequest  true  "Fields to change"
// @Success      200  {object}  map[string]interface{}  "data: models.StoryBlock"
// @Failure      400  {object}  map[string]interface{}  "Nothing to update"
// @Failure      404  {object}  map[string]interface{}  "Story block not found"
// @Router       /api/storytelling/story-blocks/{id} [patch]
// UpdateBlockHandler updates a story block
// PATCH /api/storytelling/story-blocks/:id
func (h *Handlers) UpdateBlockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateBlockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		patch := req.patch()
		if patch.IsEmpty() {
			_ = c.Error(apierr.BadRequest("Nothing to update"))
			return
		}

		if _, ok := h.loadBlock(c); !ok {
			return
		}
		block, err := h.storyRepo.UpdateBlock(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			storeError(c, "Failed to update story block", err)
			return
		}
		if block == nil {
			_ = c.Error(apierr.NotFound("Story block not found"))
			return
		}
		okJSON(c, http.StatusOK, block)
	}
}

// @Summary      Reorder story blocks
// @Description  Rewrite the order of the listed blocks to 1..n in one transaction.
// @Tags         Storytelling
// @Accept       json
// @Produce      json
// @Param        body  body  ReorderBlocksRequest  true  "New order"
// @Success      200  {object}  map[string]interface{}  "data: []models.StoryBlock"
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Router       /api/storytelling/story-blocks/reorder [put]
// ReorderBlocksHandler reorders a user's blocks
// PUT /api/storytelling/story-blocks/reorder
func (h *Handlers) ReorderBlocksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReorderBlocksRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		userID, ok := resolveUser(c, req.UserID)
		if !ok {
			return
		}
		if len(req.BlockIDs) == 0 {
			_ = c.Error(apierr.BadRequest("Missing required fields"))
			return
		}
		seen := make(map[string]bool, len(req.BlockIDs))
		for _, id := range req.BlockIDs {
			if seen[id] {
				_ = c.Error(apierr.BadRequest("Duplicate block id: " + id))
				return
			}
			seen[id] = true
		}

		blocks, err := h.storyRepo.ReorderBlocks(c.Request.Context(), userID, req.BlockIDs)
		if errors.Is(err, repositories.ErrForeignBlock) {
			_ = c.Error(apierr.BadRequest("Block does not belong to user"))
			return
		}
		if err != nil {
			storeError(c, "Failed to reorder story blocks", err)
			return
		}
		okJSON(c, http.StatusOK, blocks)
	}
}

// @Summary      Delete story block
// @Tags         Storytelling
// @Produce      json
// @Param        id  path  string  true  "Block ID"
// @Success      200  {object}  map[string]interface{}  "success: true"
// @Failure      404  {object}  map[string]interface{}  "Story block not found"
// @Router       /api/storytelling/story-blocks/{id} [delete]
// DeleteBlockHandler deletes a story block
// DELETE /api/storytelling/story-blocks/:id
func (h *Handlers) DeleteBlockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := h.loadBlock(c); !ok {
			return
		}
		found, err := h.storyRepo.DeleteBlock(c.Request.Context(), c.Param("id"))
		if err != nil {
			storeError(c, "Failed to delete story block", err)
			return
		}
		if !found {
			_ = c.Error(apierr.NotFound("Story block not found"))
			return
		}
		deleted(c)
	}
}

// @Summary      Generate block feedback
// @Description  Generate written feedback on a block's response and store it on the block.
// @Tags         Storytelling
// @Produce      json
// @Param        id  path  string  true  "Block ID"
// @Success      200  {object}  map[string]interface{}  "data: models.StoryBlock"
// @Failure      404  {object}  map[string]interface{}  "Story block not found"
// @Failure      502  {object}  map[string]interface{}  "Failed to generate feedback"
// @Router       /api/storytelling/story-blocks/{id}/feedback [post]
// BlockFeedbackHandler generates feedback for a block
// POST /api/storytelling/story-blocks/:id/feedback
func (h *Handlers) BlockFeedbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		block, ok := h.loadBlock(c)
		if !ok {
			return
		}
		text, ok := h.generate(c, feedback.KindBlock, block.Response)
		if !ok {
			return
		}

		updated, err := h.storyRepo.SetBlockFeedback(c.Request.Context(), block.ID, text)
		if err != nil {
			storeError(c, "Failed to save feedback", err)
			return
		}
		if updated == nil {
			_ = c.Error(apierr.NotFound("Story block not found"))
			return
		}
		okJSON(c, http.StatusOK, updated)
	}
}

// loadBlock fetches the block named by :id and checks the caller may act on it.
func (h *Handlers) loadBlock(c *gin.Context) (*models.StoryBlock, bool) {
	block, err := h.storyRepo.GetBlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, "Failed to fetch story block", err)
		return nil, false
	}
	if block == nil {
		_ = c.Error(apierr.NotFound("Story block not found"))
		return nil, false
	}
	if !middleware.CanActFor(c, block.UserID) {
		_ = c.Error(apierr.Forbidden(""))
		return nil, false
	}
	return block, true
}
