package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"complaints/internal/core"
	ports "complaints/internal/sheets"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by ReadSnapshot before the first import.
var ErrNoSnapshot = fmt.Errorf("%w: no snapshot imported", core.ErrNoData)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ports.SnapshotReader = (*SQLiteRepository)(nil)
	_ ports.SnapshotWriter = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
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

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReplaceSnapshot stores snap as the only snapshot, atomically.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, snap *core.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM complaints`); err != nil {
		return fmt.Errorf("clear complaints: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, source, loaded_at, present_columns, record_count) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Source, snap.LoadedAt.UTC().Format(time.RFC3339Nano), encodeColumns(snap.Present), len(snap.Records))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO complaints
		(snapshot_id, row_num, state, product, issue, sub_issue, submitted_via, company_response, timely, month_year, complaint_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range snap.Records {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, snap.ID, i, c.State, c.Product, c.Issue, c.SubIssue,
			c.SubmittedVia, c.CompanyResponse, c.Timely, c.MonthYear, c.Count); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved to SQLite",
		"snapshot_id", snap.ID,
		"source", snap.Source,
		"records", len(snap.Records))
	return nil
}

// ReadSnapshot loads the stored snapshot.
func (r *SQLiteRepository) ReadSnapshot(ctx context.Context) (*core.Snapshot, error) {
	var (
		snap     core.Snapshot
		loadedAt string
		present  string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, loaded_at, present_columns FROM snapshots ORDER BY loaded_at DESC LIMIT 1`).
		Scan(&snap.ID, &snap.Source, &loadedAt, &present)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	snap.LoadedAt, err = time.Parse(time.RFC3339Nano, loadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse loaded_at %q: %w", loadedAt, err)
	}
	snap.Present = decodeColumns(present)

	rows, err := r.db.QueryContext(ctx, `SELECT state, product, issue, sub_issue, submitted_via,
		company_response, timely, month_year, complaint_count
		FROM complaints WHERE snapshot_id = ? ORDER BY row_num`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c core.Complaint
		if err := rows.Scan(&c.State, &c.Product, &c.Issue, &c.SubIssue, &c.SubmittedVia,
			&c.CompanyResponse, &c.Timely, &c.MonthYear, &c.Count); err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		snap.Records = append(snap.Records, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaints: %w", err)
	}
	return &snap, nil
}

func encodeColumns(present map[core.Column]bool) string {
	cols := make([]string, 0, len(present))
	for c, ok := range present {
		if ok {
			cols = append(cols, string(c))
		}
	}
	sort.Strings(cols)
	return strings.Join(cols, ",")
}

func decodeColumns(s string) map[core.Column]bool {
	out := map[core.Column]bool{}
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out[core.Column(c)] = true
		}
	}
	return out
}
