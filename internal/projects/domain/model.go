package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Issuer identifies who produced a chat message.
type Issuer string

const (
	IssuerUser  Issuer = "user"
	IssuerAgent Issuer = "adorable"
)

// Project represents a single generation project owned by a user.
// It is intentionally storage-agnostic and used across repository and HTTP layers.
type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	IsCurrent   bool      `json:"is_current"`
}

// ChatMessage is one immutable transcript entry for a project. Rows are
// ordered by CreatedAt ascending and never updated after insertion.
type ChatMessage struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Issuer    Issuer    `json:"issuer"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
