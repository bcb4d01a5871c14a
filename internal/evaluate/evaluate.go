// Package evaluate implements the validation job: read staged blobs for a
// namespace, validate each against the namespace's registered schema, and
// route it to the validated or quarantine bucket with a metric row.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dataplatform/validation-pipeline/internal/avroschema"
	"github.com/dataplatform/validation-pipeline/internal/metrics"
	"github.com/dataplatform/validation-pipeline/internal/objectstore"
	"github.com/dataplatform/validation-pipeline/internal/pipelineerr"
	"github.com/dataplatform/validation-pipeline/internal/validate"
)

// SchemaRow is the row shape the evaluator reads from the schema registry.
type SchemaRow struct {
	ID         string
	Namespace  string
	SchemaAvro string
}

// SchemaLookup is the subset of the schema registry the evaluator needs.
type SchemaLookup interface {
	GetByNamespace(ctx context.Context, namespace string) ([]SchemaRow, error)
}

// MetricRecorder is the subset of the move registry the evaluator needs.
type MetricRecorder interface {
	InsertMetric(ctx context.Context, schemaFK, oldBucket, newBucket, namespace, summaryJSON string) error
}

// Evaluator runs validation jobs. Construct one per worker process; it is
// safe for the Objects/Schemas/Metrics ports to be shared across concurrent
// Evaluators, but a single Evaluator processes one job at a time.
type Evaluator struct {
	Objects    objectstore.Store
	Schemas    SchemaLookup
	Metrics    MetricRecorder
	Validators *validate.Factory
	Logger     *slog.Logger

	SourceBucket     string
	ValidateBucket   string
	QuarantineBucket string

	// Stats records Prometheus metrics for this evaluator's jobs and blob
	// routing decisions. Nil is valid: Run and evaluateOne skip recording.
	Stats *metrics.Metrics
}

// Run evaluates every blob staged under namespace's prefix. The schema
// lookup happens once, before the blob loop starts: an earlier revision of
// this job re-checked the schema per blob and could fail mid-iteration
// after already routing some blobs, so existence is now a job-level
// precondition rather than a per-record one.
func (e *Evaluator) Run(ctx context.Context, namespace string) (err error) {
	logger := e.logger()
	prefix := strings.ReplaceAll(namespace, ".", "/")

	defer func() {
		if e.Stats != nil {
			e.Stats.RecordJob(namespace, err == nil)
		}
	}()

	schemas, err := e.Schemas.GetByNamespace(ctx, namespace)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindStorageConnectionError, err)
	}
	if len(schemas) == 0 {
		return pipelineerr.New(pipelineerr.KindSchemaNotFound, fmt.Sprintf("no schema registered for namespace %q", namespace))
	}
	schema := schemas[0]

	schemaDoc, err := avroschema.Decode([]byte(schema.SchemaAvro))
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindParseError, fmt.Errorf("stored schema for namespace %q: %w", namespace, err))
	}

	for obj, iterErr := range e.Objects.IterByPrefix(ctx, e.SourceBucket, prefix) {
		if iterErr != nil {
			return pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, iterErr)
		}

		if evalErr := e.evaluateOne(ctx, namespace, prefix, obj, schema, schemaDoc); evalErr != nil {
			if isRetryable(evalErr) {
				return evalErr
			}
			logger.Error("skipping blob", "namespace", namespace, "file", obj.Name, "error", evalErr)
		}
	}
	return nil
}

// evaluateOne validates and routes a single blob. Conversion and parse
// failures are per-blob: they are returned as non-retryable errors so Run
// logs and continues with the next blob. Object-store failures on the
// routing writes are returned as retryable so Run aborts the whole job.
func (e *Evaluator) evaluateOne(ctx context.Context, namespace, prefix string, obj objectstore.Object, schema SchemaRow, schemaDoc avroschema.Value) error {
	converter, err := e.Validators.Resolve(obj.Name)
	if err != nil {
		return err // KindUnsupportedFormat, non-retryable: skip this blob
	}

	records, err := converter.Convert(obj.Data)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindParseError, err)
	}

	clean := true
	var allFindings []validate.Finding
	for _, record := range records {
		findings, err := validate.Validate(record, schemaDoc)
		if err != nil {
			return pipelineerr.Wrap(pipelineerr.KindParseError, err)
		}
		if len(findings) > 0 {
			clean = false
			allFindings = append(allFindings, findings...)
		}
	}

	destination := e.ValidateBucket
	route := "validate"
	if !clean {
		destination = e.QuarantineBucket
		route = "quarantine"
	}
	key := prefix + "/" + obj.Name

	putErr := e.Objects.PutObject(ctx, destination, key, obj.Data, "application/json")
	e.recordBucketOp(destination, "put", putErr)
	if putErr != nil {
		return pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, putErr)
	}
	delErr := e.Objects.DeleteObject(ctx, e.SourceBucket, key)
	e.recordBucketOp(e.SourceBucket, "delete", delErr)
	if delErr != nil {
		return pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, delErr)
	}

	if allFindings == nil {
		allFindings = []validate.Finding{}
	}
	summary, err := json.Marshal(allFindings)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindInternal, err)
	}
	if err := e.Metrics.InsertMetric(ctx, schema.ID, e.SourceBucket, destination, namespace, string(summary)); err != nil {
		return pipelineerr.Wrap(pipelineerr.KindStorageConnectionError, err)
	}

	if e.Stats != nil {
		e.Stats.RecordBlobEvaluated(namespace, route, len(allFindings))
	}
	return nil
}

// recordBucketOp is a no-op when Stats is unset, keeping the object-store
// path usable without a metrics instance in tests.
func (e *Evaluator) recordBucketOp(bucket, op string, err error) {
	if e.Stats != nil {
		e.Stats.RecordBucketOperation(bucket, op, err)
	}
}

// isRetryable reports whether err should abort the whole job (object-store
// and storage I/O failures) rather than just skip the current blob (parse,
// unsupported-format failures).
func isRetryable(err error) bool {
	kind, ok := pipelineerr.KindOf(err)
	if !ok {
		return true
	}
	switch kind {
	case pipelineerr.KindBucketConnectionError, pipelineerr.KindBucketOperationError,
		pipelineerr.KindStorageConnectionError, pipelineerr.KindInternal:
		return true
	default:
		return false
	}
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
