package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.EventRepository. Stored
// rows are stamped with a per-repository session id identifying which run of
// the client captured them.
type Repository struct {
	db        *sql.DB
	sessionID string
	logger    log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{
		db:        db,
		sessionID: ulid.Make().String(),
		logger:    cfg.Logger,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// StoreEvents persists events. Events whose (task, sequence) pair is already
// stored and unsequenced events are ignored, reconnects can safely replay.
func (r *Repository) StoreEvents(ctx context.Context, events []model.LogEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	query := `
		INSERT OR IGNORE INTO events (task_id, sequence, kind, line, status, remaining_seconds, message, session_id, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	stored := 0
	for _, ev := range events {
		if !ev.Sequenced() {
			continue
		}
		if ev.TaskID == "" {
			return fmt.Errorf("event without task id: %w", model.ErrNotValid)
		}

		receivedAt := ev.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = time.Now().UTC()
		}

		_, err := stmt.ExecContext(ctx, ev.TaskID, ev.Sequence, ev.Kind, ev.Line, ev.Status, ev.RemainingSeconds, ev.Message, r.sessionID, receivedAt.Unix())
		if err != nil {
			return fmt.Errorf("could not insert event: %w", err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Stored %d events", stored)
	return nil
}

// ListEvents returns stored events for a task with sequence greater than
// fromSequence, oldest first, at most limit (0 means no limit).
func (r *Repository) ListEvents(ctx context.Context, taskID string, fromSequence int64, limit int) ([]model.LogEvent, error) {
	query := `
		SELECT task_id, sequence, kind, line, status, remaining_seconds, message, received_at
		FROM events
		WHERE task_id = ? AND sequence > ?
		ORDER BY sequence ASC
	`
	args := []interface{}{taskID, fromSequence}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query events: %w", err)
	}
	defer rows.Close()

	var events []model.LogEvent
	for rows.Next() {
		var ev model.LogEvent
		var receivedAt int64

		err := rows.Scan(&ev.TaskID, &ev.Sequence, &ev.Kind, &ev.Line, &ev.Status, &ev.RemainingSeconds, &ev.Message, &receivedAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan event: %w", err)
		}
		ev.ReceivedAt = time.Unix(receivedAt, 0).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate events: %w", err)
	}

	return events, nil
}

// LastSequence returns the highest stored sequence for a task, 0 when none.
func (r *Repository) LastSequence(ctx context.Context, taskID string) (int64, error) {
	query := `SELECT COALESCE(MAX(sequence), 0) FROM events WHERE task_id = ?`

	var seq int64
	if err := r.db.QueryRowContext(ctx, query, taskID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("could not query last sequence: %w", err)
	}

	return seq, nil
}

// DeleteEvents removes all stored events for a task.
func (r *Repository) DeleteEvents(ctx context.Context, taskID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("could not delete events: %w", err)
	}

	r.logger.Debugf("Deleted stored events for task %s", taskID)
	return nil
}
