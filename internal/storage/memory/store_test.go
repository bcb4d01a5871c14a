package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataplatform/validation-pipeline/internal/storage/memory"
)

func TestStore_InsertAndGetByNamespace(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	require.NoError(t, s.InsertSchema(ctx, "id-1", "rfb.json", `{"type":"record"}`))
	require.NoError(t, s.InsertSchema(ctx, "id-2", "other.json", `{"type":"record"}`))

	rows, err := s.GetByNamespace(ctx, "rfb.json")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "id-1", rows[0].ID)
}

func TestStore_GetByNamespace_Empty(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	rows, err := s.GetByNamespace(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// TestStore_AppendOnly exercises P5: after N successful inserts for a
// namespace, GetByNamespace returns exactly N rows.
func TestStore_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	const n = 7
	for i := 0; i < n; i++ {
		require.NoError(t, s.InsertSchema(ctx, "id", "rfb.json", `{}`))
	}

	rows, err := s.GetByNamespace(ctx, "rfb.json")
	require.NoError(t, err)
	assert.Len(t, rows, n)
}

func TestStore_DeleteByNamespace(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	require.NoError(t, s.InsertSchema(ctx, "id-1", "rfb.json", `{}`))
	require.NoError(t, s.InsertSchema(ctx, "id-2", "other.json", `{}`))

	require.NoError(t, s.DeleteByNamespace(ctx, "rfb.json"))

	rows, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "other.json", rows[0].Namespace)
}

func TestStore_MetricTotals(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.InsertMetric(ctx, "id-1", "gold", "validated", "rfb.json", "[]"))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, s.InsertMetric(ctx, "id-1", "gold", "quarantine", "rfb.json", `[{"field":"x"}]`))
	}

	totals, err := s.GetMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	byBucket := make(map[string]int64)
	for _, total := range totals {
		byBucket[total.NewBucket] = total.Total
	}
	assert.Equal(t, int64(3), byBucket["validated"])
	assert.Equal(t, int64(2), byBucket["quarantine"])
}
