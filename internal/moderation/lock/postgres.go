package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "chatguard/pkg/domain"
	dErrors "chatguard/pkg/domain-errors"
	txcontext "chatguard/pkg/platform/tx"
)

const defaultUserTxTimeout = 5 * time.Second

// Postgres runs fn inside a transaction that holds a per-user advisory lock.
// The lock is released by Postgres on commit or rollback.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB, timeout time.Duration) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if timeout <= 0 {
		timeout = defaultUserTxTimeout
	}
	return &Postgres{db: db, timeout: timeout}, nil
}

func (p *Postgres) WithUserLock(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin user transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID.String()); err != nil {
		return fmt.Errorf("acquire user lock: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user transaction: %w", err)
	}
	return nil
}
