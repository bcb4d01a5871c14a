// Package storage provides the persistence interfaces for the schema
// registry and the move registry, and the sentinel errors their backends
// report.
package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors a Storage implementation reports; callers use errors.Is.
var (
	ErrNotFound = errors.New("not found")
)

// SchemaRecord is one row of the schema registry, in the shape the
// evaluator and the control plane both need.
type SchemaRecord struct {
	ID         string
	Namespace  string
	SchemaAvro string
	CreatedAt  time.Time
}

// MetricRow is one row of the move registry's append-only audit log.
type MetricRow struct {
	ID        int64
	SchemaFK  string
	OldBucket string
	NewBucket string
	Namespace string
	Summary   string
	CreatedAt time.Time
}

// MetricTotal is one row of the "metric" view: object counts grouped by
// destination bucket.
type MetricTotal struct {
	NewBucket string
	Total     int64
}

// Storage is the persistence port backing both the schema registry and the
// move registry. Each method opens and releases its own connection from the
// pool; callers never hold a session across a retry boundary.
type Storage interface {
	// Initialize runs the idempotent migration script that creates the
	// schema_registry and move_registry tables (and the metric view).
	Initialize(ctx context.Context) error

	// InsertSchema stores the caller-generated id against namespace and the
	// raw schema document.
	InsertSchema(ctx context.Context, id, namespace, schemaAvro string) error

	// GetByNamespace returns every schema registered for namespace, in
	// registration order. Returns an empty slice, not an error, when none
	// are registered.
	GetByNamespace(ctx context.Context, namespace string) ([]SchemaRecord, error)

	// DeleteByNamespace removes every schema registered for namespace.
	// Deleting an unknown namespace is not an error.
	DeleteByNamespace(ctx context.Context, namespace string) error

	// DeleteAll truncates the schema registry.
	DeleteAll(ctx context.Context) error

	// GetAll returns every registered schema, in registration order.
	GetAll(ctx context.Context) ([]SchemaRecord, error)

	// InsertMetric appends one move-registry row. Append-only: a duplicate
	// row from a redelivered message is tolerated, not rejected.
	InsertMetric(ctx context.Context, schemaFK, oldBucket, newBucket, namespace, summaryJSON string) error

	// GetMetrics returns the move registry's per-bucket object totals.
	GetMetrics(ctx context.Context) ([]MetricTotal, error)

	// Close releases the underlying connection pool.
	Close() error
}
