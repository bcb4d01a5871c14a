// Package validate implements the structural validator: given a decoded
// record and a decoded Avro schema document, it reports the ways the record
// departs from the schema as a list of findings rather than an error. A
// malformed schema is itself reported as a finding; only a non-object record
// is an error.
package validate

import (
	"fmt"

	"github.com/dataplatform/validation-pipeline/internal/avroschema"
)

// Finding describes one way a record departs from its schema: an extra
// field, a missing required field, or a field whose value doesn't match its
// declared type.
type Finding struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Expected string `json:"expected"`
	Received string `json:"received"`
}

// Validate compares record against schemaDoc and returns the findings, in
// the order: extra fields (record's own key order), then schema-declared
// fields in schema order. An empty, non-nil slice means the record is clean.
//
// A malformed schema (missing/non-list "fields", or a field without
// name/type) produces a single finding on the synthetic "schema" field
// rather than an error — one bad registration should never halt the
// pipeline. A record that isn't a JSON object is returned as an error:
// jsonValidator.Convert does not check record shape (a top-level scalar or a
// non-object array element reaches Validate as is), and the evaluate job
// treats that error as a per-blob parse failure.
func Validate(record, schemaDoc avroschema.Value) ([]Finding, error) {
	fields, err := avroschema.ExtractFields(schemaDoc)
	if err != nil {
		return []Finding{{
			Field:    "schema",
			Message:  fmt.Sprintf("invalid or malformed schema: %v", err),
			Expected: "a valid schema",
			Received: avroschema.Truncate(schemaDoc.Repr(), 200),
		}}, nil
	}

	recordObj, ok := record.AsObject()
	if !ok {
		return nil, fmt.Errorf("expected object record, got %s", record.TypeName())
	}

	schemaNames := make(map[string]struct{}, len(fields.Fields))
	for _, f := range fields.Fields {
		schemaNames[f.Name] = struct{}{}
	}

	findings := make([]Finding, 0)

	for _, key := range record.ObjKeys {
		if _, known := schemaNames[key]; known {
			continue
		}
		findings = append(findings, Finding{
			Field:    key,
			Message:  "extra field not defined in schema",
			Expected: "absent",
			Received: avroschema.Truncate(recordObj[key].Repr(), 50),
		})
	}

	for _, f := range fields.Fields {
		value, present := recordObj[f.Name]
		isOptional := f.HasDefault || f.Type.HasNull()

		if (!present || value.Tag == avroschema.TagNull) && !isOptional {
			findings = append(findings, Finding{
				Field:    f.Name,
				Message:  "required field missing",
				Expected: f.Type.String(),
				Received: "None",
			})
			continue
		}
		if !present || value.Tag == avroschema.TagNull {
			continue
		}

		matched := false
		for _, candidate := range f.Type.Candidates() {
			if avroschema.Matches(value, candidate) {
				matched = true
				break
			}
		}
		if !matched {
			findings = append(findings, Finding{
				Field:    f.Name,
				Message:  "incorrect data type",
				Expected: f.Type.String(),
				Received: fmt.Sprintf("%s (type: %s)",
					avroschema.Truncate(value.Repr(), 50), value.TypeName()),
			})
		}
	}

	return findings, nil
}
