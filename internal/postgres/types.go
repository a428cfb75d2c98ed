package postgres

import "time"

// Config holds PostgreSQL connection settings for the plan provider.
type Config struct {
	URL string
	// PlanTimeout bounds each EXPLAIN round trip via statement_timeout.
	// Zero leaves the server default in place.
	PlanTimeout time.Duration
}
