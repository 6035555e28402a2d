package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"chatguard/internal/moderation/models"
	id "chatguard/pkg/domain"
	"chatguard/pkg/platform/sentinel"
	txcontext "chatguard/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresLedger persists violation events in PostgreSQL.
// This store is pure I/O: strike computation and window bounds belong in the escalator.
// When ctx carries a transaction (see pkg/platform/tx) all statements join it.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger.
func NewPostgres(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Append(ctx context.Context, event *models.ViolationEvent) error {
	if event == nil {
		return fmt.Errorf("violation event is required")
	}
	matches, err := json.Marshal(event.Evidence.Matches)
	if err != nil {
		return fmt.Errorf("marshal evidence matches: %w", err)
	}
	categories := make([]string, len(event.Evidence.Categories))
	for i, c := range event.Evidence.Categories {
		categories[i] = string(c)
	}

	query := `
		INSERT INTO violation_events (id, user_id, category, strike_label, strike_number, description, categories, matches, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = txcontext.Executor(ctx, l.db).ExecContext(ctx, query,
		uuid.UUID(event.ID),
		uuid.UUID(event.UserID),
		string(event.Category),
		event.StrikeLabel,
		int(event.StrikeNumber),
		event.Description,
		pq.Array(categories),
		matches,
		event.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("append violation %s: %w", event.ID, sentinel.ErrInvalidState)
		}
		return fmt.Errorf("append violation event: %w", err)
	}
	return nil
}

func (l *PostgresLedger) CountSince(ctx context.Context, userID id.UserID, since time.Time) (int, error) {
	var count int
	err := txcontext.Executor(ctx, l.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM violation_events WHERE user_id = $1 AND created_at >= $2`,
		uuid.UUID(userID), since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count violation events: %w", err)
	}
	return count, nil
}

func (l *PostgresLedger) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.ViolationEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, user_id, category, strike_label, strike_number, description, categories, matches, created_at
		FROM violation_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := txcontext.Executor(ctx, l.db).QueryContext(ctx, query, uuid.UUID(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("list violation events: %w", err)
	}
	defer rows.Close()

	var out []*models.ViolationEvent
	for rows.Next() {
		event, err := scanViolationEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan violation event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violation events: %w", err)
	}
	return out, nil
}

type violationRow interface {
	Scan(dest ...any) error
}

func scanViolationEvent(row violationRow) (*models.ViolationEvent, error) {
	var (
		event      models.ViolationEvent
		eventID    uuid.UUID
		userID     uuid.UUID
		category   string
		strike     int
		categories []string
		matches    []byte
	)
	if err := row.Scan(&eventID, &userID, &category, &event.StrikeLabel, &strike,
		&event.Description, pq.Array(&categories), &matches, &event.CreatedAt); err != nil {
		return nil, err
	}
	event.ID = id.ViolationID(eventID)
	event.UserID = id.UserID(userID)
	event.Category = models.Category(category)
	event.StrikeNumber = models.StrikeNumber(strike)
	for _, c := range categories {
		event.Evidence.Categories = append(event.Evidence.Categories, models.Category(c))
	}
	if len(matches) > 0 {
		if err := json.Unmarshal(matches, &event.Evidence.Matches); err != nil {
			return nil, fmt.Errorf("unmarshal evidence matches: %w", err)
		}
	}
	return &event, nil
}
