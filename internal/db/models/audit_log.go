package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditLog records a successful authenticated write.
type AuditLog struct {
	ID           string        `db:"id" json:"id"`
	UserID       *string       `db:"user_id" json:"userId,omitempty"`
	Action       string        `db:"action" json:"action"` // e.g. "PATCH /api/timeline/tasks/:taskId"
	ResourceType *string       `db:"resource_type" json:"resourceType,omitempty"`
	ResourceID   *string       `db:"resource_id" json:"resourceId,omitempty"`
	IPAddress    *string       `db:"ip_address" json:"ipAddress,omitempty"`
	Metadata     AuditMetadata `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
}

// AuditMetadata is the free-form JSONB detail of an audit entry.
type AuditMetadata map[string]interface{}

// Value implements driver.Valuer. An empty map is stored as NULL.
func (m AuditMetadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(m))
}

// Scan implements sql.Scanner.
func (m *AuditMetadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AuditMetadata", src)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode audit metadata: %w", err)
	}
	*m = out
	return nil
}
