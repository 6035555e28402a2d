package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatguard/internal/moderation/models"
	id "chatguard/pkg/domain"
	txcontext "chatguard/pkg/platform/tx"
)

// PostgresDirectory reads and writes account status in the shared users table.
// Reads always go to the primary connection pool; there is no cache, so a
// suspension is visible to the very next Status call.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Status(ctx context.Context, userID id.UserID) (models.UserStatus, error) {
	var status string
	err := txcontext.Executor(ctx, d.db).QueryRowContext(ctx,
		`SELECT status FROM users WHERE id = $1`, uuid.UUID(userID),
	).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserStatusActive, nil
		}
		return "", fmt.Errorf("get user status: %w", err)
	}
	s := models.UserStatus(status)
	if !s.IsValid() {
		return "", fmt.Errorf("get user status: unknown status %q", status)
	}
	return s, nil
}

// Suspend upserts the user as SUSPENDED. An existing suspension keeps its
// original timestamp and reason.
func (d *PostgresDirectory) Suspend(ctx context.Context, userID id.UserID, reason string, at time.Time) error {
	query := `
		INSERT INTO users (id, status, suspended_at, suspension_reason, updated_at)
		VALUES ($1, 'SUSPENDED', $2, $3, $2)
		ON CONFLICT (id) DO UPDATE SET
			status = 'SUSPENDED',
			suspended_at = COALESCE(users.suspended_at, EXCLUDED.suspended_at),
			suspension_reason = COALESCE(users.suspension_reason, EXCLUDED.suspension_reason),
			updated_at = EXCLUDED.updated_at
		WHERE users.status <> 'SUSPENDED'
	`
	if _, err := txcontext.Executor(ctx, d.db).ExecContext(ctx, query, uuid.UUID(userID), at, reason); err != nil {
		return fmt.Errorf("suspend user: %w", err)
	}
	return nil
}
