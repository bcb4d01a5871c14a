//go:build bdd

package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

const validRecord = `{"name":"Joao","age":30,"salary":5000.50,"data_criacao":"2025-11-14","data_nascimento":"1995-01-10","hora_registro":"12:22:00","tags":["a","b"],"codigo":123}`

// defectiveRecord omits the required data_criacao field, guaranteeing at
// least one finding and routing to quarantine.
const defectiveRecord = `{"name":"Joao","age":30,"salary":5000.50,"data_nascimento":"1995-01-10","hora_registro":"12:22:00","tags":["a","b"]}`

// RegisterPipelineSteps registers staging/job/routing step definitions.
func RegisterPipelineSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^(\d+) valid blobs? (?:is|are) staged under namespace "([^"]*)"$`, func(count int, namespace string) error {
		return stageBlobs(tc, namespace, "valid", count, validRecord)
	})

	ctx.Step(`^(\d+) defective blobs? (?:is|are) staged under namespace "([^"]*)"$`, func(count int, namespace string) error {
		return stageBlobs(tc, namespace, "defective", count, defectiveRecord)
	})

	ctx.Step(`^the validation job runs for namespace "([^"]*)"$`, func(namespace string) error {
		return tc.Evaluator.Run(context.Background(), namespace)
	})

	ctx.Step(`^bucket "([^"]*)" has (\d+) objects?$`, func(bucket string, count int) error {
		got := bucketByName(tc, bucket)
		if got != count {
			return fmt.Errorf("bucket %q: expected %d objects, got %d", bucket, count, got)
		}
		return nil
	})

	ctx.Step(`^the metric view reports "([^"]*)" total (\d+)$`, func(bucket string, total int) error {
		metrics, err := tc.Moves.GetMetrics(context.Background())
		if err != nil {
			return fmt.Errorf("get metrics: %w", err)
		}
		for _, m := range metrics {
			if m.NewBucket == bucketByAlias(tc, bucket) && m.Total == int64(total) {
				return nil
			}
		}
		return fmt.Errorf("no metric row matched bucket %q total %d in %+v", bucket, total, metrics)
	})
}

func stageBlobs(tc *TestContext, namespace, kind string, count int, payload string) error {
	prefix := strings.ReplaceAll(namespace, ".", "/")
	for i := 0; i < count; i++ {
		name := kind + "-" + strconv.Itoa(i) + ".json"
		if err := tc.stageBlob(context.Background(), prefix, name, []byte(payload)); err != nil {
			return fmt.Errorf("stage blob %s: %w", name, err)
		}
	}
	return nil
}

func bucketByName(tc *TestContext, alias string) int {
	return tc.countObjects(bucketByAlias(tc, alias))
}

func bucketByAlias(tc *TestContext, alias string) string {
	switch alias {
	case "source", "staging":
		return tc.SourceBucket
	case "validated":
		return tc.ValidateBucket
	case "quarantine":
		return tc.QuarantineBucket
	default:
		return alias
	}
}
