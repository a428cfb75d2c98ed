// Package sqlstore persists dirty analysis results to a relational database.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
)

// Dialect selects the SQL driver and migration set.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

var insertSQL = map[Dialect]string{
	Postgres: `INSERT INTO query_findings (run_id, file, line, query, findings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
	SQLite: `INSERT INTO query_findings (run_id, file, line, query, findings, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
}

func driverName(d Dialect) (string, error) {
	switch d {
	case Postgres:
		return "pgx", nil
	case SQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", d)
	}
}

// Store writes query_findings rows.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to dsn and verifies the connection. For SQLite, dsn is a
// file path.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	driver, err := driverName(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return New(db, dialect), nil
}

// New wraps an existing connection.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Dialect returns the store's dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Save inserts one row per result in a single transaction. Any failed
// insert rolls back the whole run.
func (s *Store) Save(ctx context.Context, runID string, at time.Time, results []analyzer.AnalysisResult) (err error) {
	if len(results) == 0 {
		return nil
	}

	query, ok := insertSQL[s.dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", s.dialect)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range results {
		r := &results[i]
		findings, err := json.Marshal(r.Findings)
		if err != nil {
			return fmt.Errorf("encode findings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query,
			runID, r.Statement.Source, r.Statement.Line, r.Statement.Text, string(findings), at.UTC(),
		); err != nil {
			return fmt.Errorf("insert %s:%d: %w", r.Statement.Source, r.Statement.Line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CountRun returns the number of rows stored for runID.
func (s *Store) CountRun(ctx context.Context, runID string) (int, error) {
	query := "SELECT COUNT(*) FROM query_findings WHERE run_id = $1"
	if s.dialect == SQLite {
		query = "SELECT COUNT(*) FROM query_findings WHERE run_id = ?"
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count run: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
