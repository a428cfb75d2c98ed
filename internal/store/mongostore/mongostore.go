// Package mongostore persists dirty analysis results to MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
)

// Collection holds one document per dirty statement.
const Collection = "query_findings"

const serverSelectionTimeout = 5 * time.Second

type document struct {
	RunID     string    `bson:"run_id"`
	File      string    `bson:"file"`
	Line      int       `bson:"line"`
	Query     string    `bson:"query"`
	Findings  []string  `bson:"findings"`
	PlanError string    `bson:"plan_error,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store writes documents to the query_findings collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to uri and pings the primary.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(dbName).Collection(Collection),
	}, nil
}

// New wraps an existing collection. The caller owns the client.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Migrate ensures the run_id index exists.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "run_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create run_id index: %w", err)
	}
	return nil
}

// Save inserts one document per result.
func (s *Store) Save(ctx context.Context, runID string, at time.Time, results []analyzer.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(results))
	for i := range results {
		docs = append(docs, toDocument(runID, at, &results[i]))
	}

	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

func toDocument(runID string, at time.Time, r *analyzer.AnalysisResult) document {
	findings := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		findings[i] = string(f)
	}
	return document{
		RunID:     runID,
		File:      r.Statement.Source,
		Line:      r.Statement.Line,
		Query:     r.Statement.Text,
		Findings:  findings,
		PlanError: r.PlanError,
		CreatedAt: at.UTC(),
	}
}

// Close disconnects the client opened by Open.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), serverSelectionTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
