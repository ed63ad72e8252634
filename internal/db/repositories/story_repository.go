package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrForeignBlock is returned by ReorderBlocks when an id does not belong to the user.
var ErrForeignBlock = errors.New("block does not belong to user")

// StoryRepository handles story block and story draft operations
type StoryRepository struct {
	db *sqlx.DB
}

// NewStoryRepository creates a new StoryRepository
func NewStoryRepository(db *sqlx.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

const blockColumns = `id, user_id, prompt, response, "order", feedback, created_at, updated_at`

const draftColumns = `id, user_id, title, block_ids, full_text, cultural_fit_feedback, created_at, updated_at`

// BlockPatch lists the block fields a PATCH may change.
type BlockPatch struct {
	Prompt   *string
	Response *string
	Order    *int
}

// IsEmpty reports whether the patch changes nothing.
func (p BlockPatch) IsEmpty() bool {
	return p.Prompt == nil && p.Response == nil && p.Order == nil
}

// DraftPatch lists the draft fields a PATCH may change.
type DraftPatch struct {
	Title    *string
	BlockIDs *models.IDList
	FullText *string
}

// IsEmpty reports whether the patch changes nothing.
func (p DraftPatch) IsEmpty() bool {
	return p.Title == nil && p.BlockIDs == nil && p.FullText == nil
}

// Story blocks

// ListBlocks returns a user's blocks ordered by their order field.
func (r *StoryRepository) ListBlocks(ctx context.Context, userID string) ([]models.StoryBlock, error) {
	blocks := []models.StoryBlock{}
	query := `SELECT ` + blockColumns + ` FROM story_blocks WHERE user_id = $1 ORDER BY "order" ASC, created_at ASC`
	if err := r.db.SelectContext(ctx, &blocks, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list story blocks: %w", err)
	}
	return blocks, nil
}

// GetBlock retrieves a block by ID
func (r *StoryRepository) GetBlock(ctx context.Context, id string) (*models.StoryBlock, error) {
	var block models.StoryBlock
	err := r.db.GetContext(ctx, &block, `SELECT `+blockColumns+` FROM story_blocks WHERE id = $1`, id)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// CreateBlock inserts a block. When order is nil the block is appended after
// the user's current last block.
func (r *StoryRepository) CreateBlock(ctx context.Context, block *models.StoryBlock, order *int) error {
	if order != nil {
		block.Order = *order
	} else {
		var next int
		err := r.db.GetContext(ctx, &next,
			`SELECT COALESCE(MAX("order"), 0) + 1 FROM story_blocks WHERE user_id = $1`, block.UserID)
		if err != nil {
			return fmt.Errorf("failed to compute next block order: %w", err)
		}
		block.Order = next
	}

	block.ID = uuid.New().String()
	block.CreatedAt = time.Now()
	block.UpdatedAt = block.CreatedAt

	query := `
		INSERT INTO story_blocks (` + blockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		block.ID, block.UserID, block.Prompt, block.Response, block.Order,
		block.Feedback, block.CreatedAt, block.UpdatedAt)
	return translate(err)
}

// UpdateBlock applies patch and returns the updated block, or nil when the
// block does not exist.
func (r *StoryRepository) UpdateBlock(ctx context.Context, id string, patch BlockPatch) (*models.StoryBlock, error) {
	var b updateBuilder
	if patch.Prompt != nil {
		b.set("prompt", *patch.Prompt)
	}
	if patch.Response != nil {
		b.set("response", *patch.Response)
	}
	if patch.Order != nil {
		b.set(`"order"`, *patch.Order)
	}
	if b.empty() {
		return r.GetBlock(ctx, id)
	}

	query, args := b.build("story_blocks", id, blockColumns)
	var block models.StoryBlock
	err := r.db.GetContext(ctx, &block, query, args...)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &block, nil
}

// SetBlockFeedback stores generated feedback on a block.
func (r *StoryRepository) SetBlockFeedback(ctx context.Context, id, feedback string) (*models.StoryBlock, error) {
	var block models.StoryBlock
	query := `UPDATE story_blocks SET feedback = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + blockColumns
	err := r.db.GetContext(ctx, &block, query, feedback, id)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// DeleteBlock deletes a block and reports whether it existed.
func (r *StoryRepository) DeleteBlock(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM story_blocks WHERE id = $1`, id)
	if IsInvalidID(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReorderBlocks rewrites the order of the given blocks to 1..n in one
// transaction. Every id must belong to userID.
func (r *StoryRepository) ReorderBlocks(ctx context.Context, userID string, ids []string) ([]models.StoryBlock, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE story_blocks SET "order" = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
			i+1, id, userID)
		if IsInvalidID(err) {
			return nil, fmt.Errorf("%w: %s", ErrForeignBlock, id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to reorder block %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrForeignBlock, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reorder: %w", err)
	}
	return r.ListBlocks(ctx, userID)
}

// GetBlocksByIDs returns the user's blocks with the given ids in the order of ids.
// Unknown ids are skipped.
func (r *StoryRepository) GetBlocksByIDs(ctx context.Context, userID string, ids []string) ([]models.StoryBlock, error) {
	if len(ids) == 0 {
		return []models.StoryBlock{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+blockColumns+` FROM story_blocks WHERE user_id = ? AND id IN (?)`, userID, ids)
	if err != nil {
		return nil, err
	}
	var found []models.StoryBlock
	if err := r.db.SelectContext(ctx, &found, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load story blocks: %w", err)
	}

	byID := make(map[string]models.StoryBlock, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	ordered := make([]models.StoryBlock, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered, nil
}

// CountBlocks returns how many blocks a user has.
func (r *StoryRepository) CountBlocks(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM story_blocks WHERE user_id = $1`, userID)
	return n, err
}

// Story drafts

// ListDrafts returns a user's drafts, most recently updated first.
func (r *StoryRepository) ListDrafts(ctx context.Context, userID string) ([]models.StoryDraft, error) {
	drafts := []models.StoryDraft{}
	query := `SELECT ` + draftColumns + ` FROM story_drafts WHERE user_id = $1 ORDER BY updated_at DESC`
	if err := r.db.SelectContext(ctx, &drafts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list story drafts: %w", err)
	}
	return drafts, nil
}

// GetDraft retrieves a draft by ID
func (r *StoryRepository) GetDraft(ctx context.Context, id string) (*models.StoryDraft, error) {
	var draft models.StoryDraft
	err := r.db.GetContext(ctx, &draft, `SELECT `+draftColumns+` FROM story_drafts WHERE id = $1`, id)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// CreateDraft inserts a draft. Titles are unique per user.
func (r *StoryRepository) CreateDraft(ctx context.Context, draft *models.StoryDraft) error {
	draft.ID = uuid.New().String()
	draft.CreatedAt = time.Now()
	draft.UpdatedAt = draft.CreatedAt
	if draft.BlockIDs == nil {
		draft.BlockIDs = models.IDList{}
	}

	query := `
		INSERT INTO story_drafts (` + draftColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		draft.ID, draft.UserID, draft.Title, draft.BlockIDs, draft.FullText,
		draft.CulturalFitFeedback, draft.CreatedAt, draft.UpdatedAt)
	return translate(err)
}

// UpdateDraft applies patch and returns the updated draft, or nil when the
// draft does not exist.
func (r *StoryRepository) UpdateDraft(ctx context.Context, id string, patch DraftPatch) (*models.StoryDraft, error) {
	var b updateBuilder
	if patch.Title != nil {
		b.set("title", *patch.Title)
	}
	if patch.BlockIDs != nil {
		b.set("block_ids", *patch.BlockIDs)
	}
	if patch.FullText != nil {
		b.set("full_text", *patch.FullText)
	}
	if b.empty() {
		return r.GetDraft(ctx, id)
	}

	query, args := b.build("story_drafts", id, draftColumns)
	var draft models.StoryDraft
	err := r.db.GetContext(ctx, &draft, query, args...)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &draft, nil
}

// SetCulturalFitFeedback stores generated cultural-fit feedback on a draft.
func (r *StoryRepository) SetCulturalFitFeedback(ctx context.Context, id, feedback string) (*models.StoryDraft, error) {
	var draft models.StoryDraft
	query := `UPDATE story_drafts SET cultural_fit_feedback = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + draftColumns
	err := r.db.GetContext(ctx, &draft, query, feedback, id)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// DeleteDraft deletes a draft and reports whether it existed.
func (r *StoryRepository) DeleteDraft(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM story_drafts WHERE id = $1`, id)
	if IsInvalidID(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountDrafts returns how many drafts a user has.
func (r *StoryRepository) CountDrafts(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM story_drafts WHERE user_id = $1`, userID)
	return n, err
}
