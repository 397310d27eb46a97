package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schema string

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrPostStateChanged = errors.New("post is no longer scheduled")
	ErrNotCancellable   = errors.New("post can no longer be cancelled")
	ErrNotDraft         = errors.New("only drafts can be scheduled")
	ErrPostPublished    = errors.New("published posts cannot be removed")
	ErrAccountNotFound  = errors.New("social account not found")
)

// EnsureSchema creates the tables used by the service when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
