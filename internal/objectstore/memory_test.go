package objectstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataplatform/validation-pipeline/internal/objectstore"
)

func TestMemoryStore_PutReadDelete(t *testing.T) {
	ctx := context.Background()
	s := objectstore.NewMemoryStore()
	require.NoError(t, s.CreateBucket(ctx, "staging"))

	require.NoError(t, s.PutObject(ctx, "staging", "rfb/json/f1.json", []byte(`{}`), "application/json"))

	data, err := s.ReadObject(ctx, "staging", "rfb/json/f1.json")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	require.NoError(t, s.DeleteObject(ctx, "staging", "rfb/json/f1.json"))
	require.NoError(t, s.DeleteObject(ctx, "staging", "rfb/json/f1.json")) // idempotent

	_, err = s.ReadObject(ctx, "staging", "rfb/json/f1.json")
	assert.Error(t, err)
}

func TestMemoryStore_IterByPrefixOrdered(t *testing.T) {
	ctx := context.Background()
	s := objectstore.NewMemoryStore()
	require.NoError(t, s.CreateBucket(ctx, "staging"))

	require.NoError(t, s.PutObject(ctx, "staging", "rfb/json/c.json", []byte("3"), ""))
	require.NoError(t, s.PutObject(ctx, "staging", "rfb/json/a.json", []byte("1"), ""))
	require.NoError(t, s.PutObject(ctx, "staging", "rfb/json/b.json", []byte("2"), ""))
	require.NoError(t, s.PutObject(ctx, "staging", "other/x.json", []byte("4"), ""))

	var names []string
	for obj, err := range s.IterByPrefix(ctx, "staging", "rfb/json/") {
		require.NoError(t, err)
		names = append(names, obj.Name)
	}
	assert.Equal(t, []string{"a.json", "b.json", "c.json"}, names)
}

func TestMemoryStore_RemoveBucketIfExists(t *testing.T) {
	ctx := context.Background()
	s := objectstore.NewMemoryStore()

	removed, err := s.RemoveBucketIfExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, s.CreateBucket(ctx, "present"))
	removed, err = s.RemoveBucketIfExists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, removed)
}
