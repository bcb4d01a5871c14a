package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataplatform/validation-pipeline/internal/registry"
	"github.com/dataplatform/validation-pipeline/internal/storage/memory"
)

const sampleSchema = `{"type":"record","name":"R","fields":[{"name":"x","type":"string"}]}`

func TestSchemaRegistry_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewSchemaRegistry(memory.NewStore(), 64, time.Minute)

	id, err := reg.Insert(ctx, "rfb.json", sampleSchema)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	rows, err := reg.GetByNamespace(ctx, "rfb.json")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
}

func TestSchemaRegistry_InsertInvalidSchema(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewSchemaRegistry(memory.NewStore(), 64, time.Minute)

	_, err := reg.Insert(ctx, "rfb.json", `not json at all`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrInvalidSchema))
}

func TestSchemaRegistry_DeleteByNamespace_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewSchemaRegistry(memory.NewStore(), 64, time.Minute)

	_, err := reg.Insert(ctx, "rfb.json", sampleSchema)
	require.NoError(t, err)

	rows, err := reg.GetByNamespace(ctx, "rfb.json")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, reg.DeleteByNamespace(ctx, "rfb.json"))

	rows, err = reg.GetByNamespace(ctx, "rfb.json")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// TestSchemaRegistry_AppendOnly exercises P5: after N successful inserts
// for a namespace, GetByNamespace returns exactly N rows.
func TestSchemaRegistry_AppendOnly(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewSchemaRegistry(memory.NewStore(), 64, time.Minute)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := reg.Insert(ctx, "rfb.json", sampleSchema)
		require.NoError(t, err)
	}

	rows, err := reg.GetByNamespace(ctx, "rfb.json")
	require.NoError(t, err)
	assert.Len(t, rows, n)
}

func TestMoveRegistry_InsertAndGetMetrics(t *testing.T) {
	ctx := context.Background()
	mr := registry.NewMoveRegistry(memory.NewStore())

	require.NoError(t, mr.InsertMetric(ctx, "id-1", "gold", "validated", "rfb.json", "[]"))
	require.NoError(t, mr.InsertMetric(ctx, "id-1", "gold", "quarantine", "rfb.json", `[{"field":"x"}]`))

	totals, err := mr.GetMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)
}
