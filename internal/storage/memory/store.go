// Package memory provides an in-memory storage.Storage used by tests and
// single-process demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dataplatform/validation-pipeline/internal/storage"
)

// Store implements storage.Storage with in-memory slices guarded by a
// single RWMutex. Ordering (P5, append-only) is maintained by appending in
// call order and sorting by (createdAt, id) on read, matching the SQL
// backends' ORDER BY clause.
type Store struct {
	mu sync.RWMutex

	schemas     []storage.SchemaRecord
	moveEntries []storage.MetricRow
	nextMoveID  int64
}

// NewStore returns an empty in-memory Store.
func NewStore() *Store {
	return &Store{nextMoveID: 1}
}

func init() {
	storage.Register(storage.BackendMemory, func(_ any) (storage.Storage, error) {
		return NewStore(), nil
	})
}

func (s *Store) Initialize(_ context.Context) error {
	return nil
}

func (s *Store) InsertSchema(_ context.Context, id, namespace, schemaAvro string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas = append(s.schemas, storage.SchemaRecord{
		ID:         id,
		Namespace:  namespace,
		SchemaAvro: schemaAvro,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (s *Store) GetByNamespace(_ context.Context, namespace string) ([]storage.SchemaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.SchemaRecord, 0)
	for _, r := range s.schemas {
		if r.Namespace == namespace {
			out = append(out, r)
		}
	}
	sortSchemaRecords(out)
	return out, nil
}

func (s *Store) GetAll(_ context.Context) ([]storage.SchemaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.SchemaRecord, len(s.schemas))
	copy(out, s.schemas)
	sortSchemaRecords(out)
	return out, nil
}

func sortSchemaRecords(recs []storage.SchemaRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}

func (s *Store) DeleteByNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.schemas[:0]
	for _, r := range s.schemas {
		if r.Namespace != namespace {
			kept = append(kept, r)
		}
	}
	s.schemas = kept
	return nil
}

func (s *Store) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas = nil
	return nil
}

func (s *Store) InsertMetric(_ context.Context, schemaFK, oldBucket, newBucket, namespace, summaryJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveEntries = append(s.moveEntries, storage.MetricRow{
		ID:        s.nextMoveID,
		SchemaFK:  schemaFK,
		OldBucket: oldBucket,
		NewBucket: newBucket,
		Namespace: namespace,
		Summary:   summaryJSON,
		CreatedAt: time.Now(),
	})
	s.nextMoveID++
	return nil
}

func (s *Store) GetMetrics(_ context.Context) ([]storage.MetricTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int64)
	for _, m := range s.moveEntries {
		totals[m.NewBucket]++
	}
	out := make([]storage.MetricTotal, 0, len(totals))
	for bucket, total := range totals {
		out = append(out, storage.MetricTotal{NewBucket: bucket, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NewBucket < out[j].NewBucket })
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
