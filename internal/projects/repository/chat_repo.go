package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adorable-labs/adorable-backend/internal/auth"
	"github.com/adorable-labs/adorable-backend/internal/projects/domain"
)

// ChatRepository is the append-only transcript store. Rows are never
// updated; ordering is by created_at ascending.
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append inserts one transcript row for the project.
func (r *ChatRepository) Append(ctx context.Context, cred auth.Credential, projectID, message string, issuer domain.Issuer) (*domain.ChatMessage, error) {
	now := time.Now().UTC()

	const q = `
INSERT INTO adorable_chat_history (project_id, issuer, message, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id, project_id, issuer, message, created_at;
`
	var m domain.ChatMessage
	err := r.db.QueryRow(ctx, q, projectID, string(issuer), message, now).
		Scan(&m.ID, &m.ProjectID, &m.Issuer, &m.Message, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append chat entry for user %s and project %s: %w", cred.UserID, projectID, err)
	}
	return &m, nil
}

// List returns the project's transcript in insertion order.
func (r *ChatRepository) List(ctx context.Context, cred auth.Credential, projectID string) ([]domain.ChatMessage, error) {
	const q = `
SELECT h.id, h.project_id, h.issuer, h.message, h.created_at
FROM adorable_chat_history h
JOIN adorable_projects p ON p.id = h.project_id
WHERE p.user_id = $1 AND h.project_id = $2
ORDER BY h.created_at ASC;
`
	rows, err := r.db.Query(ctx, q, cred.UserID, projectID)
	if err != nil {
		return nil, fmt.Errorf("list chat history for project %s: %w", projectID, err)
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, 16)
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Issuer, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes exactly one transcript row. Remaining rows keep their
// relative order since ordering is a pure function of created_at.
func (r *ChatRepository) Delete(ctx context.Context, cred auth.Credential, messageID string) error {
	const q = `
DELETE FROM adorable_chat_history h
USING adorable_projects p
WHERE p.id = h.project_id AND p.user_id = $1 AND h.id = $2;
`
	tag, err := r.db.Exec(ctx, q, cred.UserID, messageID)
	if err != nil {
		return fmt.Errorf("delete chat entry %s: %w", messageID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
