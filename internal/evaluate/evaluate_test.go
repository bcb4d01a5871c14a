package evaluate_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataplatform/validation-pipeline/internal/evaluate"
	"github.com/dataplatform/validation-pipeline/internal/objectstore"
	"github.com/dataplatform/validation-pipeline/internal/pipelineerr"
	"github.com/dataplatform/validation-pipeline/internal/validate"
)

const testSchemaAvro = `{
  "type": "record", "namespace": "rfb.json", "name": "R",
  "fields": [
    {"name":"name", "type":"string"},
    {"name":"age", "type":"int"},
    {"name":"salary", "type":"double"},
    {"name":"data_criacao", "type":"string"},
    {"name":"data_nascimento", "type":"string"},
    {"name":"hora_registro", "type":"string"},
    {"name":"tags", "type":{"type":"array","items":"string"}},
    {"name":"codigo", "type":["null","int"], "default":null}
  ]
}`

const validRecord = `{"name":"João","age":30,"salary":5000.50,
  "data_criacao":"2025-11-14","data_nascimento":"1995-01-10",
  "hora_registro":"12:22:00","tags":["a","b"],"codigo":123}`

const defectiveRecord = `{"name":"João","age":"30","salary":5000.50,
  "data_criacao":"2025-11-14","data_nascimento":"1995-01-10",
  "hora_registro":"12:22:00","tags":["a","b"],"codigo":123}`

type stubSchemaRegistry struct {
	rows []evaluate.SchemaRow
}

func (s *stubSchemaRegistry) GetByNamespace(_ context.Context, namespace string) ([]evaluate.SchemaRow, error) {
	var out []evaluate.SchemaRow
	for _, r := range s.rows {
		if r.Namespace == namespace {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordedMetric struct {
	schemaFK, oldBucket, newBucket, namespace, summary string
}

type stubMoveRegistry struct {
	inserts []recordedMetric
}

func (s *stubMoveRegistry) InsertMetric(_ context.Context, schemaFK, oldBucket, newBucket, namespace, summaryJSON string) error {
	s.inserts = append(s.inserts, recordedMetric{schemaFK, oldBucket, newBucket, namespace, summaryJSON})
	return nil
}

func newEvaluator(objs *objectstore.MemoryStore, schemas *stubSchemaRegistry, metrics *stubMoveRegistry) *evaluate.Evaluator {
	return &evaluate.Evaluator{
		Objects:          objs,
		Schemas:          schemas,
		Metrics:          metrics,
		Validators:       validate.NewFactory(),
		SourceBucket:     "gold",
		ValidateBucket:   "validated",
		QuarantineBucket: "quarantine",
	}
}

func TestEvaluator_EndToEnd_38Blobs(t *testing.T) {
	ctx := context.Background()
	objs := objectstore.NewMemoryStore()
	require.NoError(t, objs.CreateBucket(ctx, "gold"))
	require.NoError(t, objs.CreateBucket(ctx, "validated"))
	require.NoError(t, objs.CreateBucket(ctx, "quarantine"))

	for i := 0; i < 18; i++ {
		name := fmt.Sprintf("rfb/json/valid-%02d.json", i)
		require.NoError(t, objs.PutObject(ctx, "gold", name, []byte(validRecord), "application/json"))
	}
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("rfb/json/defect-%02d.json", i)
		require.NoError(t, objs.PutObject(ctx, "gold", name, []byte(defectiveRecord), "application/json"))
	}

	schemas := &stubSchemaRegistry{rows: []evaluate.SchemaRow{{ID: "s1", Namespace: "rfb.json", SchemaAvro: testSchemaAvro}}}
	metrics := &stubMoveRegistry{}
	ev := newEvaluator(objs, schemas, metrics)

	require.NoError(t, ev.Run(ctx, "rfb.json"))

	assert.Len(t, objs.Objects("validated"), 18)
	assert.Len(t, objs.Objects("quarantine"), 20)
	assert.Empty(t, objs.Objects("gold"))
	assert.Len(t, metrics.inserts, 38)

	validatedCount, quarantineCount := 0, 0
	for _, m := range metrics.inserts {
		switch m.newBucket {
		case "validated":
			validatedCount++
		case "quarantine":
			quarantineCount++
		}
	}
	assert.Equal(t, 18, validatedCount)
	assert.Equal(t, 20, quarantineCount)
}

func TestEvaluator_SchemaNotFound_FailsWholeJob(t *testing.T) {
	ctx := context.Background()
	objs := objectstore.NewMemoryStore()
	require.NoError(t, objs.CreateBucket(ctx, "gold"))

	schemas := &stubSchemaRegistry{}
	metrics := &stubMoveRegistry{}
	ev := newEvaluator(objs, schemas, metrics)

	err := ev.Run(ctx, "unknown.ns")
	require.Error(t, err)
	assert.True(t, pipelineerr.Is(err, pipelineerr.KindSchemaNotFound))
}

func TestEvaluator_UnsupportedFormat_SkipsBlobButContinuesJob(t *testing.T) {
	ctx := context.Background()
	objs := objectstore.NewMemoryStore()
	require.NoError(t, objs.CreateBucket(ctx, "gold"))
	require.NoError(t, objs.CreateBucket(ctx, "validated"))
	require.NoError(t, objs.CreateBucket(ctx, "quarantine"))

	require.NoError(t, objs.PutObject(ctx, "gold", "rfb/json/a.xml", []byte("<x/>"), ""))
	require.NoError(t, objs.PutObject(ctx, "gold", "rfb/json/b.json", []byte(validRecord), "application/json"))

	schemas := &stubSchemaRegistry{rows: []evaluate.SchemaRow{{ID: "s1", Namespace: "rfb.json", SchemaAvro: testSchemaAvro}}}
	metrics := &stubMoveRegistry{}
	ev := newEvaluator(objs, schemas, metrics)

	require.NoError(t, ev.Run(ctx, "rfb.json"))

	assert.Len(t, objs.Objects("validated"), 1)
	assert.Len(t, objs.Objects("gold"), 1) // the .xml blob is left in place, unsupported
	assert.Len(t, metrics.inserts, 1)
}
