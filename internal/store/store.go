// Package store routes finished runs to the configured result sink.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
	"github.com/ppiankov/sqlscorer/internal/config"
	"github.com/ppiankov/sqlscorer/internal/store/mongostore"
	"github.com/ppiankov/sqlscorer/internal/store/sqlstore"
)

// Run is one analysis run ready to be persisted.
type Run struct {
	ID        string
	StartedAt time.Time
	Report    analyzer.Report
}

// Sink persists runs. Implementations must not alter the report.
type Sink interface {
	Store(ctx context.Context, run Run) error
	Close() error
}

// Migrator is implemented by sinks with a schema to apply.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// PersistenceError wraps a backend write failure.
type PersistenceError struct {
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist to %s: %v", e.Backend, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Discard drops every run.
type Discard struct{}

// Store does nothing.
func (Discard) Store(context.Context, Run) error { return nil }

// Close does nothing.
func (Discard) Close() error { return nil }

type backend interface {
	Save(ctx context.Context, runID string, at time.Time, results []analyzer.AnalysisResult) error
	Migrate(ctx context.Context) error
	Close() error
}

// backendSink adapts a concrete store to Sink.
type backendSink struct {
	name string
	b    backend
}

func (s *backendSink) Store(ctx context.Context, run Run) error {
	if err := s.b.Save(ctx, run.ID, run.StartedAt, run.Report.Results); err != nil {
		return &PersistenceError{Backend: s.name, Err: err}
	}
	slog.Debug("stored run", "backend", s.name, "run_id", run.ID, "results", len(run.Report.Results))
	return nil
}

func (s *backendSink) Migrate(ctx context.Context) error {
	if err := s.b.Migrate(ctx); err != nil {
		return &PersistenceError{Backend: s.name, Err: err}
	}
	return nil
}

func (s *backendSink) Close() error { return s.b.Close() }

// Open selects and connects the backend named by cfg.Backend. Relational
// backends are migrated before the sink is returned.
func Open(ctx context.Context, cfg config.Config) (Sink, error) {
	var (
		b   backend
		err error
	)

	switch cfg.Backend {
	case config.BackendNone:
		return Discard{}, nil
	case config.BackendPostgres:
		b, err = sqlstore.Open(ctx, sqlstore.Postgres, cfg.PostgresURL())
	case config.BackendSQLite:
		b, err = sqlstore.Open(ctx, sqlstore.SQLite, cfg.SQLite.Path)
	case config.BackendMongo:
		b, err = mongostore.Open(ctx, cfg.Mongo.URI, cfg.Mongo.DBName)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, &PersistenceError{Backend: cfg.Backend, Err: err}
	}

	sink := &backendSink{name: cfg.Backend, b: b}
	if err := sink.Migrate(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return sink, nil
}
