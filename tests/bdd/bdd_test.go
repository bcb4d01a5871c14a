//go:build bdd

// Package bdd runs the validation pipeline's BDD suite against in-process
// memory-backed components. No Docker, no external broker or object store:
//
//	go test -tags bdd -v ./tests/bdd/...
package bdd

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"

	"github.com/dataplatform/validation-pipeline/internal/api"
	"github.com/dataplatform/validation-pipeline/internal/broker"
	"github.com/dataplatform/validation-pipeline/internal/config"
	"github.com/dataplatform/validation-pipeline/internal/evaluate"
	"github.com/dataplatform/validation-pipeline/internal/objectstore"
	"github.com/dataplatform/validation-pipeline/internal/registry"
	"github.com/dataplatform/validation-pipeline/internal/storage/memory"
	"github.com/dataplatform/validation-pipeline/internal/validate"
	"github.com/dataplatform/validation-pipeline/tests/bdd/steps"
)

// schemaLookup adapts registry.SchemaRegistry to evaluate.SchemaLookup, same
// shape as the adapter the worker binary uses.
type schemaLookup struct {
	reg *registry.SchemaRegistry
}

func (s schemaLookup) GetByNamespace(ctx context.Context, namespace string) ([]evaluate.SchemaRow, error) {
	rows, err := s.reg.GetByNamespace(ctx, namespace)
	if err != nil {
		return nil, err
	}
	out := make([]evaluate.SchemaRow, len(rows))
	for i, row := range rows {
		out[i] = evaluate.SchemaRow{ID: row.ID, Namespace: row.Namespace, SchemaAvro: row.SchemaAvro}
	}
	return out, nil
}

func newFixture() (*httptest.Server, *steps.TestContext) {
	cfg := config.DefaultConfig()
	store := memory.NewStore()
	reg := registry.NewSchemaRegistry(store, 64, 0)
	moves := registry.NewMoveRegistry(store)
	brk := broker.NewMemoryBroker()
	objects := objectstore.NewMemoryStore()
	ctx := context.Background()
	objects.CreateBucket(ctx, cfg.App.SourceBucket)
	objects.CreateBucket(ctx, cfg.App.ValidateBucket)
	objects.CreateBucket(ctx, cfg.App.QuarantineBucket)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	evaluator := &evaluate.Evaluator{
		Objects:          objects,
		Schemas:          schemaLookup{reg: reg},
		Metrics:          moves,
		Validators:       validate.NewFactory(),
		Logger:           logger,
		SourceBucket:     cfg.App.SourceBucket,
		ValidateBucket:   cfg.App.ValidateBucket,
		QuarantineBucket: cfg.App.QuarantineBucket,
	}

	server := api.NewServer(cfg, reg, moves, brk, logger)
	ts := httptest.NewServer(server)

	tc := steps.NewTestContext(ts.URL, objects, reg, moves, brk, evaluator)
	return ts, tc
}

func TestFeatures(t *testing.T) {
	opts := godog.Options{
		Format:   "pretty",
		Output:   colors.Colored(os.Stdout),
		Paths:    []string{"features"},
		Tags:     os.Getenv("BDD_TAGS"),
		TestingT: t,
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ts, tc := newFixture()
			ctx.After(func(gctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
				ts.Close()
				return gctx, nil
			})

			steps.RegisterSchemaSteps(ctx, tc)
			steps.RegisterPipelineSteps(ctx, tc)
		},
		Options: &opts,
	}

	if suite.Run() != 0 {
		t.Fatal("BDD tests failed")
	}
}

func init() {
	if _, err := os.Stat("features"); err != nil {
		candidates := []string{"tests/bdd/features", "../../tests/bdd/features"}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				os.Chdir(strings.TrimSuffix(c, "/features"))
				break
			}
		}
	}
}
