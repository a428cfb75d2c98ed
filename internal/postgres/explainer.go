// Package postgres obtains execution plans from a live PostgreSQL instance.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/sqlscorer/internal/plan"
)

const (
	tracerName    = "github.com/ppiankov/sqlscorer/internal/postgres"
	explainSpan   = "sqlscorer.explain"
	explainPrefix = "EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) "
)

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Explainer runs EXPLAIN ANALYZE for SELECT statements. Every round trip
// happens inside a transaction that is always rolled back.
type Explainer struct {
	pool    *pgxpool.Pool
	db      txBeginner
	timeout time.Duration
	tracer  trace.Tracer
}

// NewExplainer connects to PostgreSQL, retrying transient failures.
func NewExplainer(ctx context.Context, cfg Config) (*Explainer, error) {
	return connectWithRetry(ctx, cfg)
}

func newExplainerOnce(ctx context.Context, cfg Config) (*Explainer, error) {
	if cfg.URL == "" {
		return nil, errors.New("connect: postgres URL is required")
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Explainer{
		pool:    pool,
		db:      pool,
		timeout: cfg.PlanTimeout,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Close releases the connection pool.
func (e *Explainer) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// ServerVersion returns the PostgreSQL server version string.
func (e *Explainer) ServerVersion(ctx context.Context) (string, error) {
	var version string
	err := e.pool.QueryRow(ctx, "SHOW server_version").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("server version: %w", err)
	}
	return version, nil
}

// Plan returns the root plan node for text.
func (e *Explainer) Plan(ctx context.Context, text string) (*plan.Node, error) {
	ctx, span := e.tracer.Start(ctx, explainSpan, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", text),
		attribute.String("db.operation", "EXPLAIN"),
	)

	node, err := e.explain(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("sqlscorer.plan.root", node.NodeType))
	span.SetStatus(codes.Ok, "")
	return node, nil
}

func (e *Explainer) explain(ctx context.Context, text string) (*plan.Node, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if e.timeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", e.timeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("set statement timeout: %w", err)
		}
	}

	var raw string
	if err := tx.QueryRow(ctx, explainPrefix+text).Scan(&raw); err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}

	return plan.Unwrap([]byte(raw))
}
