// Package registry provides the SchemaRegistry and MoveRegistry services:
// the control plane's view of registered schemas and the worker's
// append-only audit trail of blob routing decisions.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dataplatform/validation-pipeline/internal/avroschema"
	"github.com/dataplatform/validation-pipeline/internal/cache"
	"github.com/dataplatform/validation-pipeline/internal/metrics"
	"github.com/dataplatform/validation-pipeline/internal/storage"
)

// SchemaRegistry is the control-plane service wrapping storage.Storage for
// schema registration and lookup. A namespace's schema list is cached: the
// worker calls GetByNamespace once per job, and registrations are rare
// relative to evaluation traffic.
type SchemaRegistry struct {
	store   storage.Storage
	cache   *cache.Cache
	stats   *metrics.Metrics
	backend string
}

// NewSchemaRegistry wraps store with a namespace-keyed cache of TTL ttl and
// at most capacity entries.
func NewSchemaRegistry(store storage.Storage, capacity int, ttl time.Duration) *SchemaRegistry {
	return &SchemaRegistry{store: store, cache: cache.New(capacity, ttl)}
}

// SetMetrics attaches m to the registry, labelling storage operations with
// backend (e.g. "postgres", "mysql", "memory"). Optional: an unset registry
// simply skips recording.
func (r *SchemaRegistry) SetMetrics(m *metrics.Metrics, backend string) {
	r.stats = m
	r.backend = backend
}

func (r *SchemaRegistry) recordStorageOp(operation string, start time.Time, err error) {
	if r.stats != nil {
		r.stats.RecordStorageOperation(r.backend, operation, time.Since(start), err)
	}
}

// Initialize runs the backend's migration script.
func (r *SchemaRegistry) Initialize(ctx context.Context) error {
	return r.store.Initialize(ctx)
}

// Insert validates schemaAvro as Avro, assigns it a fresh id, and persists
// it under namespace. If schemaAvro is not valid Avro it returns an error
// that wraps ErrInvalidSchema and carries the parse error's text.
func (r *SchemaRegistry) Insert(ctx context.Context, namespace, schemaAvro string) (string, error) {
	if _, err := avroschema.ParseAvro(schemaAvro); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	id := uuid.NewString()
	start := time.Now()
	err := r.store.InsertSchema(ctx, id, namespace, schemaAvro)
	r.recordStorageOp("insert_schema", start, err)
	if err != nil {
		return "", err
	}
	r.cache.Delete(namespace)
	return id, nil
}

// GetByNamespace returns every schema registered for namespace, serving
// from cache when possible.
func (r *SchemaRegistry) GetByNamespace(ctx context.Context, namespace string) ([]storage.SchemaRecord, error) {
	if cached, ok := r.cache.Get(namespace); ok {
		if r.stats != nil {
			r.stats.RecordCacheAccess("schema_registry", true)
		}
		return cached.([]storage.SchemaRecord), nil
	}
	if r.stats != nil {
		r.stats.RecordCacheAccess("schema_registry", false)
	}

	start := time.Now()
	rows, err := r.store.GetByNamespace(ctx, namespace)
	r.recordStorageOp("get_by_namespace", start, err)
	if err != nil {
		return nil, err
	}
	r.cache.Set(namespace, rows)
	return rows, nil
}

// GetAll returns every registered schema, bypassing the cache — it's a
// control-plane listing operation, not on the worker's hot path.
func (r *SchemaRegistry) GetAll(ctx context.Context) ([]storage.SchemaRecord, error) {
	start := time.Now()
	rows, err := r.store.GetAll(ctx)
	r.recordStorageOp("get_all", start, err)
	return rows, err
}

// DeleteByNamespace removes every schema registered for namespace.
func (r *SchemaRegistry) DeleteByNamespace(ctx context.Context, namespace string) error {
	start := time.Now()
	err := r.store.DeleteByNamespace(ctx, namespace)
	r.recordStorageOp("delete_by_namespace", start, err)
	if err != nil {
		return err
	}
	r.cache.Delete(namespace)
	return nil
}

// DeleteAll truncates the schema registry.
func (r *SchemaRegistry) DeleteAll(ctx context.Context) error {
	start := time.Now()
	err := r.store.DeleteAll(ctx)
	r.recordStorageOp("delete_all", start, err)
	if err != nil {
		return err
	}
	r.cache.Clear()
	return nil
}

// MoveRegistry is the append-only audit trail of blob routing decisions,
// and the aggregated per-bucket totals operators read from.
type MoveRegistry struct {
	store   storage.Storage
	stats   *metrics.Metrics
	backend string
}

// NewMoveRegistry wraps store for move-registry operations.
func NewMoveRegistry(store storage.Storage) *MoveRegistry {
	return &MoveRegistry{store: store}
}

// SetMetrics attaches m to the registry, labelling storage operations with
// backend. Optional: an unset registry simply skips recording.
func (r *MoveRegistry) SetMetrics(m *metrics.Metrics, backend string) {
	r.stats = m
	r.backend = backend
}

// InsertMetric appends one routing-decision row.
func (r *MoveRegistry) InsertMetric(ctx context.Context, schemaFK, oldBucket, newBucket, namespace, summaryJSON string) error {
	start := time.Now()
	err := r.store.InsertMetric(ctx, schemaFK, oldBucket, newBucket, namespace, summaryJSON)
	if r.stats != nil {
		r.stats.RecordStorageOperation(r.backend, "insert_metric", time.Since(start), err)
	}
	return err
}

// GetMetrics returns the per-bucket object totals operators read from.
func (r *MoveRegistry) GetMetrics(ctx context.Context) ([]storage.MetricTotal, error) {
	start := time.Now()
	rows, err := r.store.GetMetrics(ctx)
	if r.stats != nil {
		r.stats.RecordStorageOperation(r.backend, "get_metrics", time.Since(start), err)
	}
	return rows, err
}
