package models

import "time"

// Organization is an academy or school that owns courses.
type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Course belongs to an organization and is unique by (OrgID, Code).
type Course struct {
	ID          string    `db:"id" json:"id"`
	OrgID       string    `db:"org_id" json:"orgId"`
	Title       string    `db:"title" json:"title"`
	Code        string    `db:"code" json:"code"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
