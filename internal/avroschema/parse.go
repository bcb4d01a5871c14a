package avroschema

import (
	"fmt"

	"github.com/hamba/avro/v2"
)

// ParseAvro validates schemaStr as Avro using hamba/avro and returns the
// parsed schema. This is the control-plane's registration-time check (PUT
// /schema → 422 on failure); it is independent of the lightweight structural
// extraction ExtractFields performs at evaluation time, which intentionally
// tolerates shapes hamba/avro would reject, per spec §4.1 step 1 — the
// validator turns a malformed schema into a finding, not a registration
// failure, so a single bad registration never halts the pipeline.
func ParseAvro(schemaStr string) (avro.Schema, error) {
	parsed, err := avro.Parse(schemaStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Avro schema: %w", err)
	}
	return parsed, nil
}
