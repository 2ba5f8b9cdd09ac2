package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/session"

	_ "modernc.org/sqlite"
)

// Export statuses of a transaction row. Rows start pending, become done
// after a successful Sheets append, and failed once the worker gives up.
const (
	ExportPending = "pending"
	ExportDone    = "done"
	ExportFailed  = "failed"
)

// PendingTransaction is a transaction row queued for export.
type PendingTransaction struct {
	ID          int64
	SessionID   string
	Transaction core.Transaction
	Attempts    int
	CreatedAt   time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports database reachability for readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create implements session.Store.
func (r *SQLiteRepository) Create(ctx context.Context) (session.Session, error) {
	now := time.Now().UTC()
	sess := session.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		LastSeen:  now,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, last_seen) VALUES (?, ?, ?)`,
		sess.ID, sess.CreatedAt, sess.LastSeen)
	if err != nil {
		return session.Session{}, fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "Session created", "session_id", sess.ID)
	return sess, nil
}

// Get implements session.Store.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (session.Session, error) {
	var sess session.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, last_seen FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.CreatedAt, &sess.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Touch implements session.Store.
func (r *SQLiteRepository) Touch(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch session rows: %w", err)
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Delete implements session.Store. The session's transactions go with it.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session transactions: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	if n == 0 {
		return session.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete session: %w", err)
	}

	slog.InfoContext(ctx, "Session deleted", "session_id", id)
	return nil
}

// PurgeExpired implements session.Store.
func (r *SQLiteRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	// Timestamps are stored in UTC, so the bound value must match.
	cutoff = cutoff.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE session_id IN
		   (SELECT id FROM sessions WHERE last_seen < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("purge transactions: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_seen < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge session rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purge: %w", err)
	}

	if n > 0 {
		slog.InfoContext(ctx, "Purged expired sessions", "count", n)
	}
	return int(n), nil
}

// AppendTransactions implements session.TransactionStore. The batch is
// written atomically and counts as session activity.
func (r *SQLiteRepository) AppendTransactions(ctx context.Context, sessionID string, txns []core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	// Bumping last_seen doubles as the existence check.
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET last_seen = ? WHERE id = ?`, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("touch session rows: %w", err)
	} else if n == 0 {
		return session.ErrNotFound
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (session_id, date, merchant, amount, category, description)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		if _, err := stmt.ExecContext(ctx,
			sessionID, t.Date, t.Merchant, t.Amount, t.Category, t.Description); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite",
		"session_id", sessionID,
		"count", len(txns))
	return nil
}

// ListTransactions implements session.TransactionStore, returning rows in
// insertion order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, sessionID string) ([]core.Transaction, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT date, merchant, amount, category, description
		 FROM transactions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.Date, &t.Merchant, &t.Amount, &t.Category, &t.Description); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}

// GetPendingExport returns up to limit transaction rows still awaiting a
// Sheets export, oldest first.
func (r *SQLiteRepository) GetPendingExport(ctx context.Context, limit int) ([]PendingTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, date, merchant, amount, category, description, sync_attempts, created_at
		 FROM transactions WHERE sync_status = ? ORDER BY id LIMIT ?`,
		ExportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending export: %w", err)
	}
	defer rows.Close()

	var pending []PendingTransaction
	for rows.Next() {
		var p PendingTransaction
		if err := rows.Scan(&p.ID, &p.SessionID,
			&p.Transaction.Date, &p.Transaction.Merchant, &p.Transaction.Amount,
			&p.Transaction.Category, &p.Transaction.Description,
			&p.Attempts, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending export: %w", err)
	}
	return pending, nil
}

// MarkExported marks a transaction row as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET sync_status = ?, synced_at = ?, last_sync_error = NULL
		 WHERE id = ?`,
		ExportDone, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}

	slog.InfoContext(ctx, "Transaction marked as exported", "id", id)
	return nil
}

// MarkExportError records a failed attempt but leaves the row pending for
// a retry.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64, msg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET sync_attempts = sync_attempts + 1, last_sync_error = ?
		 WHERE id = ?`,
		msg, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}

	slog.WarnContext(ctx, "Transaction export attempt failed", "id", id, "error", msg)
	return nil
}

// MarkExportFailed takes a row out of the pending queue for good.
func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id int64, msg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET sync_status = ?, sync_attempts = sync_attempts + 1, last_sync_error = ?
		 WHERE id = ?`,
		ExportFailed, msg, id)
	if err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}

	slog.WarnContext(ctx, "Transaction export abandoned", "id", id, "error", msg)
	return nil
}

// CountPendingExport reports the export queue depth.
func (r *SQLiteRepository) CountPendingExport(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE sync_status = ?`, ExportPending).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending export: %w", err)
	}
	return count, nil
}
