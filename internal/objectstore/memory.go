package objectstore

import (
	"context"
	"iter"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/dataplatform/validation-pipeline/internal/pipelineerr"
)

// MemoryStore is an in-memory Store used by tests and the BDD suite. Objects
// are kept in a per-bucket map; IterByPrefix sorts the matching names so its
// listing order is stable and deterministic.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[bucket]
	return ok, nil
}

func (s *MemoryStore) CreateBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string][]byte)
	}
	return nil
}

func (s *MemoryStore) RemoveBucketIfExists(_ context.Context, bucket string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		return false, nil
	}
	delete(s.buckets, bucket)
	return true, nil
}

func (s *MemoryStore) PutObject(_ context.Context, bucket, name string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return pipelineerr.New(pipelineerr.KindBucketOperationError, "bucket does not exist: "+bucket)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	objs[name] = cp
	return nil
}

func (s *MemoryStore) ReadObject(_ context.Context, bucket, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, pipelineerr.New(pipelineerr.KindBucketOperationError, "bucket does not exist: "+bucket)
	}
	data, ok := objs[name]
	if !ok {
		return nil, pipelineerr.New(pipelineerr.KindObjectNotFound, "object not found: "+name)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemoryStore) DeleteObject(_ context.Context, bucket, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return nil
	}
	delete(objs, name)
	return nil
}

func (s *MemoryStore) IterByPrefix(_ context.Context, bucket, prefix string) iter.Seq2[Object, error] {
	return func(yield func(Object, error) bool) {
		s.mu.RLock()
		objs, ok := s.buckets[bucket]
		if !ok {
			s.mu.RUnlock()
			return
		}
		names := make([]string, 0, len(objs))
		for name := range objs {
			if strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		snapshot := make(map[string][]byte, len(names))
		for _, name := range names {
			snapshot[name] = objs[name]
		}
		s.mu.RUnlock()

		for _, name := range names {
			if !yield(Object{Name: path.Base(name), Data: snapshot[name]}, nil) {
				return
			}
		}
	}
}

// Objects returns the current set of object names in bucket, sorted, for
// test assertions.
func (s *MemoryStore) Objects(bucket string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objs := s.buckets[bucket]
	names := make([]string, 0, len(objs))
	for name := range objs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
