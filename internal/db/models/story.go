package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StoryBlock is one prompt/response pair of a personal narrative.
type StoryBlock struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Prompt    string    `db:"prompt" json:"prompt"`
	Response  string    `db:"response" json:"response"`
	Order     int       `db:"order" json:"order"`
	Feedback  *string   `db:"feedback" json:"feedback"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// StoryDraft is an essay composed from a selection of blocks.
type StoryDraft struct {
	ID                  string    `db:"id" json:"id"`
	UserID              string    `db:"user_id" json:"userId"`
	Title               string    `db:"title" json:"title"`
	BlockIDs            IDList    `db:"block_ids" json:"blockIds"`
	FullText            string    `db:"full_text" json:"fullText"`
	CulturalFitFeedback *string   `db:"cultural_fit_feedback" json:"culturalFitFeedback"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// IDList is a list of ids persisted as a JSONB array. It always marshals to a
// JSON array, never null.
type IDList []string

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Scan implements sql.Scanner. Rows written by older clients may hold a JSON
// string that itself encodes the array; both forms are accepted.
func (l *IDList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = IDList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into IDList", src)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err == nil {
		*l = ids
		return nil
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err != nil {
		return fmt.Errorf("invalid block id list: %w", err)
	}
	if err := json.Unmarshal([]byte(nested), &ids); err != nil {
		return fmt.Errorf("invalid block id list: %w", err)
	}
	*l = ids
	return nil
}

// MarshalJSON renders nil as an empty array.
func (l IDList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}
