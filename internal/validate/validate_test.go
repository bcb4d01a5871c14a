package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataplatform/validation-pipeline/internal/avroschema"
	"github.com/dataplatform/validation-pipeline/internal/validate"
)

const testSchema = `{
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

func mustDecode(t *testing.T, s string) avroschema.Value {
	t.Helper()
	v, err := avroschema.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func TestValidate_ValidRecord(t *testing.T) {
	schema := mustDecode(t, testSchema)
	record := mustDecode(t, `{"name":"João","age":30,"salary":5000.50,
		"data_criacao":"2025-11-14","data_nascimento":"1995-01-10",
		"hora_registro":"12:22:00","tags":["a","b"],"codigo":123}`)

	findings, err := validate.Validate(record, schema)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestValidate_ExtraField(t *testing.T) {
	schema := mustDecode(t, testSchema)
	record := mustDecode(t, `{"name":"João","age":30,"salary":5000.50,
		"data_criacao":"2025-11-14","data_nascimento":"1995-01-10",
		"hora_registro":"12:22:00","tags":["a","b"],"codigo":123,
		"extra_field":123}`)

	findings, err := validate.Validate(record, schema)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "extra_field", findings[0].Field)
	assert.Equal(t, "extra field not defined in schema", findings[0].Message)
}

func TestValidate_MissingRequired(t *testing.T) {
	schema := mustDecode(t, testSchema)
	record := mustDecode(t, `{"name":"João","age":30,"salary":5000.50,
		"tags":["a","b"],"codigo":123}`)

	findings, err := validate.Validate(record, schema)
	require.NoError(t, err)
	require.Len(t, findings, 3)
	missing := map[string]bool{}
	for _, f := range findings {
		assert.Equal(t, "required field missing", f.Message)
		missing[f.Field] = true
	}
	assert.True(t, missing["data_criacao"])
	assert.True(t, missing["data_nascimento"])
	assert.True(t, missing["hora_registro"])
}

func TestValidate_WrongType(t *testing.T) {
	schema := mustDecode(t, testSchema)
	record := mustDecode(t, `{"name":"João","age":"30","salary":5000.50,
		"data_criacao":"2025-11-14","data_nascimento":"1995-01-10",
		"hora_registro":"12:22:00","tags":["a","b"],"codigo":123}`)

	findings, err := validate.Validate(record, schema)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "age", findings[0].Field)
	assert.Equal(t, "incorrect data type", findings[0].Message)
}

func TestValidate_OptionalNull(t *testing.T) {
	schema := mustDecode(t, testSchema)
	record := mustDecode(t, `{"name":"João","age":30,"salary":5000.50,
		"data_criacao":"2025-11-14","data_nascimento":"1995-01-10",
		"hora_registro":"12:22:00","tags":["a","b"],"codigo":null}`)

	findings, err := validate.Validate(record, schema)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestValidate_BoolNeverMatchesIntOrDouble(t *testing.T) {
	schema := mustDecode(t, `{"type":"record","name":"R",
		"fields":[{"name":"active","type":"int"}]}`)
	record := mustDecode(t, `{"active":true}`)

	findings, err := validate.Validate(record, schema)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "incorrect data type", findings[0].Message)
}

func TestValidate_MalformedSchema(t *testing.T) {
	schema := mustDecode(t, `{"type":"record","name":"R"}`)
	record := mustDecode(t, `{"name":"x"}`)

	findings, err := validate.Validate(record, schema)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "schema", findings[0].Field)
}

func TestFactory_ResolveCachesByExtension(t *testing.T) {
	f := validate.NewFactory()

	c1, err := f.Resolve("batch1.json")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Size())

	c2, err := f.Resolve("batch2.json")
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
	assert.Equal(t, 1, f.Size())
}

func TestFactory_UnsupportedExtension(t *testing.T) {
	f := validate.NewFactory()
	_, err := f.Resolve("record.xml")
	require.Error(t, err)
}

func TestFactory_Clear(t *testing.T) {
	f := validate.NewFactory()
	_, err := f.Resolve("a.json")
	require.NoError(t, err)
	f.Clear()
	assert.Equal(t, 0, f.Size())
}

func TestJsonValidator_Convert(t *testing.T) {
	f := validate.NewFactory()
	c, err := f.Resolve("blob.json")
	require.NoError(t, err)

	records, err := c.Convert([]byte(`{"name":"x"}`))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = c.Convert([]byte(`[{"name":"x"},{"name":"y"}]`))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
