// Package main is the entry point for the validation pipeline worker:
// consumes namespace jobs from the broker and runs EvaluateJob against the
// object store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dataplatform/validation-pipeline/internal/bootstrap"
	"github.com/dataplatform/validation-pipeline/internal/broker"
	"github.com/dataplatform/validation-pipeline/internal/config"
	"github.com/dataplatform/validation-pipeline/internal/evaluate"
	"github.com/dataplatform/validation-pipeline/internal/logging"
	"github.com/dataplatform/validation-pipeline/internal/metrics"
	"github.com/dataplatform/validation-pipeline/internal/objectstore"
	"github.com/dataplatform/validation-pipeline/internal/registry"
	"github.com/dataplatform/validation-pipeline/internal/validate"

	_ "github.com/dataplatform/validation-pipeline/internal/storage/memory"
	_ "github.com/dataplatform/validation-pipeline/internal/storage/mysql"
	_ "github.com/dataplatform/validation-pipeline/internal/storage/postgres"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// schemaLookup adapts registry.SchemaRegistry to evaluate.SchemaLookup.
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

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("validation-worker %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closeLogging, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLogging()

	logger.Info("starting validation worker", "version", version, "storage", cfg.Storage.Type)

	store, err := bootstrap.NewStorage(cfg)
	if err != nil {
		logger.Error("failed to create storage backend", "error", err.Error())
		os.Exit(1)
	}

	reg := registry.NewSchemaRegistry(store, cfg.Storage.CacheSize, 0)
	moves := registry.NewMoveRegistry(store)

	stats := metrics.New()
	reg.SetMetrics(stats, cfg.Storage.Type)
	moves.SetMetrics(stats, cfg.Storage.Type)

	objects, err := objectstore.NewMinioStore(objectstore.MinioConfig{
		Endpoint:  cfg.Bucket.Endpoint,
		AccessKey: cfg.Bucket.AccessKey,
		SecretKey: cfg.Bucket.SecretKey,
		Secure:    cfg.Bucket.Secure,
	})
	if err != nil {
		logger.Error("failed to connect to object store", "error", err.Error())
		os.Exit(1)
	}

	amqpBroker, err := broker.DialAMQP(cfg.Broker.URL, broker.Config{
		Exchange:             cfg.Broker.Exchange,
		QueueName:            cfg.Broker.QueueName,
		QueueRetry:           cfg.Broker.QueueRetry,
		QueueDLQ:             cfg.Broker.QueueDLQ,
		QueueTTLMilliseconds: cfg.Broker.QueueTTLMilliseconds,
	})
	if err != nil {
		logger.Error("failed to connect to broker", "error", err.Error())
		os.Exit(1)
	}
	if err := amqpBroker.SetupInfrastructure(context.Background()); err != nil {
		logger.Error("failed to declare broker topology", "error", err.Error())
		os.Exit(1)
	}
	amqpBroker.SetMetrics(stats)

	evaluator := &evaluate.Evaluator{
		Objects:          objects,
		Schemas:          schemaLookup{reg: reg},
		Metrics:          moves,
		Validators:       validate.NewFactory(),
		Logger:           logger,
		SourceBucket:     cfg.App.SourceBucket,
		ValidateBucket:   cfg.App.ValidateBucket,
		QuarantineBucket: cfg.App.QuarantineBucket,
		Stats:            stats,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- amqpBroker.ConsumeBlocking(ctx, onMessage(ctx, evaluator, logger), onDLQTerminal(logger))
	}()

	select {
	case err := <-loopErr:
		if err != nil {
			logger.Error("consume loop error", "error", err.Error())
		}
	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
		<-loopErr
	}

	if err := amqpBroker.Close(); err != nil {
		logger.Error("broker close error", "error", err.Error())
	}
	if err := store.Close(); err != nil {
		logger.Error("storage close error", "error", err.Error())
	}
	logger.Info("shutdown complete")
}

// jobMessage is the wire body the control plane publishes: a JSON object
// naming the namespace to evaluate.
type jobMessage struct {
	Namespace string `json:"namespace"`
}

func onMessage(ctx context.Context, evaluator *evaluate.Evaluator, logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}) func(*broker.Delivery) error {
	return func(d *broker.Delivery) error {
		var msg jobMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			logger.Error("dropping malformed job message", "error", err.Error())
			return d.Ack()
		}

		if err := evaluator.Run(ctx, msg.Namespace); err != nil {
			logger.Error("job failed, retrying", "namespace", msg.Namespace, "error", err.Error())
			if retryErr := d.Retry(ctx); retryErr != nil {
				return retryErr
			}
			return nil
		}
		logger.Info("job completed", "namespace", msg.Namespace)
		return d.Ack()
	}
}

func onDLQTerminal(logger interface {
	Error(msg string, args ...any)
}) func(*broker.Delivery) error {
	return func(d *broker.Delivery) error {
		var msg jobMessage
		namespace := string(d.Body)
		if err := json.Unmarshal(d.Body, &msg); err == nil {
			namespace = msg.Namespace
		}
		logger.Error("job exhausted retries, routing to dead-letter queue", "namespace", namespace)
		return d.Ack()
	}
}
