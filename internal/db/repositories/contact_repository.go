package repositories

import (
	"context"
	"time"

	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ContactRepository stores contact form submissions
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// CreateSubmission inserts a submission and assigns its ID.
func (r *ContactRepository) CreateSubmission(ctx context.Context, s *models.ContactSubmission) error {
	s.ID = uuid.New().String()
	s.CreatedAt = time.Now()

	query := `
		INSERT INTO contact_submissions (
			id, name, email, phone_encrypted, role, school, grade,
			target_universities, message, how_did_you_hear, agree_to_contact, created_at
		) VALUES (
			:id, :name, :email, :phone_encrypted, :role, :school, :grade,
			:target_universities, :message, :how_did_you_hear, :agree_to_contact, :created_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, s)
	return err
}
