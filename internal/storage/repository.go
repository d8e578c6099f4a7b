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

	"keuangan/internal/core"
	"keuangan/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps the ledger in a single table. A row's positional ID
// is its rank by seq, so deletes shift later rows the way a sheet does.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer; keeps positional deletes serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStorage, op, err)
}

const insertRow = `INSERT INTO ledger_rows
	(row_key, date, amount, category, description, owner_id, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// Append inserts all rows in one transaction.
func (r *SQLiteRepository) Append(ctx context.Context, txs ...core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	stamped, err := ledger.Stamp(txs, r.now())
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRow)
	if err != nil {
		return storageErr("prepare insert", err)
	}
	defer stmt.Close()

	for _, t := range stamped {
		c := ledger.EncodeStrings(t)
		if _, err := stmt.ExecContext(ctx,
			c[ledger.ColKey], c[ledger.ColDate], c[ledger.ColAmount], c[ledger.ColCategory],
			c[ledger.ColDescription], c[ledger.ColOwner], c[ledger.ColTimestamp],
		); err != nil {
			return storageErr("insert row", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}

	slog.DebugContext(ctx, "Ledger rows saved to SQLite", "count", len(stamped))
	return nil
}

// ListAll returns every row ordered by seq.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, amount, category, description, owner_id, recorded_at, row_key
		FROM ledger_rows ORDER BY seq`)
	if err != nil {
		return nil, storageErr("list rows", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		cells := make([]string, ledger.NumColumns)
		if err := rows.Scan(
			&cells[ledger.ColDate], &cells[ledger.ColAmount], &cells[ledger.ColCategory],
			&cells[ledger.ColDescription], &cells[ledger.ColOwner], &cells[ledger.ColTimestamp],
			&cells[ledger.ColKey],
		); err != nil {
			return nil, storageErr("scan row", err)
		}
		out = append(out, ledger.DecodeStrings(len(out)+1, cells))
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate rows", err)
	}
	return out, nil
}

// DeleteByID removes the id-th row by seq order.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int) (bool, error) {
	if id < 1 {
		return false, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storageErr("begin", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM ledger_rows ORDER BY seq LIMIT 1 OFFSET ?`, id-1).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("locate row", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_rows WHERE seq = ?`, seq); err != nil {
		return false, storageErr("delete row", err)
	}
	if err := tx.Commit(); err != nil {
		return false, storageErr("commit", err)
	}
	return true, nil
}

// DeleteByKey removes the row carrying key.
func (r *SQLiteRepository) DeleteByKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM ledger_rows WHERE seq = (SELECT seq FROM ledger_rows WHERE row_key = ? ORDER BY seq LIMIT 1)`, key)
	if err != nil {
		return false, storageErr("delete row", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("rows affected", err)
	}
	return n > 0, nil
}

// Count returns the number of data rows.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_rows`).Scan(&n); err != nil {
		return 0, storageErr("count rows", err)
	}
	return n, nil
}
