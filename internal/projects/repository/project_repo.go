package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adorable-labs/adorable-backend/internal/auth"
	"github.com/adorable-labs/adorable-backend/internal/projects/domain"
)

// ProjectRepository provides persistence operations for projects. Every
// method takes the caller's per-request credential; all statements are
// scoped by its subject id so one user can never read or flip another
// user's rows.
type ProjectRepository struct {
	db *pgxpool.Pool
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// List returns all projects owned by the credential's subject, most
// recently updated first.
func (r *ProjectRepository) List(ctx context.Context, cred auth.Credential) ([]domain.Project, error) {
	const q = `
SELECT id, user_id, display_name, created_at, last_updated, is_current
FROM adorable_projects
WHERE user_id = $1
ORDER BY last_updated DESC;
`
	rows, err := r.db.Query(ctx, q, cred.UserID)
	if err != nil {
		return nil, fmt.Errorf("list projects for user %s: %w", cred.UserID, err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 8)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.CreatedAt, &p.LastUpdated, &p.IsCurrent); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCurrent inserts a fresh project flagged current. The display name is
// initialized to the generated id, matching what the client shows before a
// user renames anything.
func (r *ProjectRepository) CreateCurrent(ctx context.Context, cred auth.Credential) (*domain.Project, error) {
	projectID := uuid.New().String()
	now := time.Now().UTC()

	const q = `
INSERT INTO adorable_projects (id, user_id, display_name, created_at, last_updated, is_current)
VALUES ($1, $2, $3, $4, $4, TRUE)
RETURNING id, user_id, display_name, created_at, last_updated, is_current;
`
	var p domain.Project
	err := r.db.QueryRow(ctx, q, projectID, cred.UserID, projectID, now).
		Scan(&p.ID, &p.UserID, &p.DisplayName, &p.CreatedAt, &p.LastUpdated, &p.IsCurrent)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("create project for user %s: %w", cred.UserID, err)
	}
	return &p, nil
}

// UnsetCurrent clears the is_current flag on one of the caller's projects.
func (r *ProjectRepository) UnsetCurrent(ctx context.Context, cred auth.Credential, projectID string) error {
	const q = `
UPDATE adorable_projects
SET is_current = FALSE, last_updated = now()
WHERE user_id = $1 AND id = $2;
`
	tag, err := r.db.Exec(ctx, q, cred.UserID, projectID)
	if err != nil {
		return fmt.Errorf("unset current project %s for user %s: %w", projectID, cred.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PromoteCurrent makes the named project the caller's single current project
// in one statement: every other current flag for the owner is cleared and
// the target set in the same UPDATE. Unlike the unset-then-insert sequence
// used on project creation, this holds the one-current invariant even under
// concurrent same-owner requests.
func (r *ProjectRepository) PromoteCurrent(ctx context.Context, cred auth.Credential, projectID string) (*domain.Project, error) {
	// The CTE guards against clearing the owner's flags when the target id
	// does not belong to them: if target is empty nothing is updated.
	const q = `
WITH target AS (
    SELECT id FROM adorable_projects WHERE user_id = $1 AND id = $2
)
UPDATE adorable_projects p
SET is_current = (p.id = $2),
    last_updated = CASE WHEN p.id = $2 THEN now() ELSE p.last_updated END
FROM target
WHERE p.user_id = $1 AND (p.is_current OR p.id = $2);
`
	tag, err := r.db.Exec(ctx, q, cred.UserID, projectID)
	if err != nil {
		return nil, fmt.Errorf("promote project %s for user %s: %w", projectID, cred.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}

	const sel = `
SELECT id, user_id, display_name, created_at, last_updated, is_current
FROM adorable_projects
WHERE user_id = $1 AND id = $2;
`
	var p domain.Project
	err = r.db.QueryRow(ctx, sel, cred.UserID, projectID).
		Scan(&p.ID, &p.UserID, &p.DisplayName, &p.CreatedAt, &p.LastUpdated, &p.IsCurrent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
