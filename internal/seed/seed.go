// Package seed installs the minimal data a fresh deployment needs: one
// organization, an administrator account and a sample course. Every step is
// an upsert keyed on a natural key, so running it again converges on the
// configured values instead of duplicating rows.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/admitai/admitai-korea/internal/auth"
	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/db/models"
)

// Result reports the rows the seed converged on.
type Result struct {
	Organization *models.Organization
	Course       *models.Course
	AdminUserID  string
	// AdminCreated is false when the admin account already existed.
	AdminCreated bool
}

// Run applies the seed in a single transaction. bcryptCost 0 selects the
// bcrypt default.
func Run(ctx context.Context, db *sqlx.DB, cfg config.SeedConfig, bcryptCost int) (*Result, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res := &Result{}

	res.Organization, err = upsertOrganization(ctx, tx, cfg)
	if err != nil {
		return nil, err
	}

	res.AdminUserID, res.AdminCreated, err = upsertAdmin(ctx, tx, cfg, bcryptCost)
	if err != nil {
		return nil, err
	}

	res.Course, err = upsertCourse(ctx, tx, res.Organization.ID, cfg)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed: %w", err)
	}

	slog.Info("seed applied",
		"organization", cfg.OrgSlug,
		"admin", strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		"admin_created", res.AdminCreated,
		"course", cfg.CourseCode)
	return res, nil
}

func validate(cfg config.SeedConfig) error {
	switch {
	case strings.TrimSpace(cfg.OrgSlug) == "":
		return errors.New("seed.org_slug is required")
	case strings.TrimSpace(cfg.AdminEmail) == "":
		return errors.New("seed.admin_email is required")
	case len(cfg.AdminPassword) < auth.MinPasswordLength:
		return fmt.Errorf("seed.admin_password must be at least %d characters", auth.MinPasswordLength)
	case strings.TrimSpace(cfg.CourseCode) == "":
		return errors.New("seed.course_code is required")
	}
	return nil
}

func upsertOrganization(ctx context.Context, tx *sqlx.Tx, cfg config.SeedConfig) (*models.Organization, error) {
	name := cfg.OrgName
	if name == "" {
		name = cfg.OrgSlug
	}

	org := &models.Organization{}
	err := tx.GetContext(ctx, org, `
		INSERT INTO organizations (id, name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING id, name, slug, created_at, updated_at
	`, uuid.New().String(), name, cfg.OrgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert organization: %w", err)
	}
	return org, nil
}

// upsertAdmin creates the admin account or refreshes its profile. The password
// is only set on creation so an operator's later password change survives
// re-seeding.
func upsertAdmin(ctx context.Context, tx *sqlx.Tx, cfg config.SeedConfig, bcryptCost int) (string, bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	var id string
	err := tx.GetContext(ctx, &id, `SELECT id FROM users WHERE email = $1`, email)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE users SET first_name = $1, last_name = $2, role = $3, updated_at = NOW()
			WHERE id = $4
		`, cfg.AdminFirstName, cfg.AdminLastName, models.RoleAdmin, id)
		if err != nil {
			return "", false, fmt.Errorf("failed to update admin user: %w", err)
		}
		return id, false, nil

	case errors.Is(err, sql.ErrNoRows):
		hash, err := auth.HashPassword(cfg.AdminPassword, bcryptCost)
		if err != nil {
			return "", false, err
		}
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, first_name, last_name, role, language)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, email, hash, cfg.AdminFirstName, cfg.AdminLastName, models.RoleAdmin, models.LanguageKO)
		if err != nil {
			return "", false, fmt.Errorf("failed to create admin user: %w", err)
		}
		return id, true, nil

	default:
		return "", false, fmt.Errorf("failed to look up admin user: %w", err)
	}
}

func upsertCourse(ctx context.Context, tx *sqlx.Tx, orgID string, cfg config.SeedConfig) (*models.Course, error) {
	var description *string
	if cfg.CourseDescription != "" {
		description = &cfg.CourseDescription
	}

	course := &models.Course{}
	err := tx.GetContext(ctx, course, `
		INSERT INTO courses (id, org_id, title, code, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id, code) DO UPDATE
			SET title = EXCLUDED.title, description = EXCLUDED.description, updated_at = NOW()
		RETURNING id, org_id, title, code, description, created_at, updated_at
	`, uuid.New().String(), orgID, cfg.CourseTitle, cfg.CourseCode, description)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert course: %w", err)
	}
	return course, nil
}
