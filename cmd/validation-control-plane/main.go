// Package main is the entry point for the validation pipeline control plane:
// schema registration/lookup and job submission over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dataplatform/validation-pipeline/internal/api"
	"github.com/dataplatform/validation-pipeline/internal/bootstrap"
	"github.com/dataplatform/validation-pipeline/internal/broker"
	"github.com/dataplatform/validation-pipeline/internal/config"
	"github.com/dataplatform/validation-pipeline/internal/logging"
	"github.com/dataplatform/validation-pipeline/internal/registry"

	_ "github.com/dataplatform/validation-pipeline/internal/storage/memory"
	_ "github.com/dataplatform/validation-pipeline/internal/storage/mysql"
	_ "github.com/dataplatform/validation-pipeline/internal/storage/postgres"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("validation-control-plane %s (commit: %s, built: %s)\n", version, commit, buildDate)
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

	logger.Info("starting validation control plane",
		"version", version,
		"storage", cfg.Storage.Type,
		"address", cfg.Address(),
	)

	store, err := bootstrap.NewStorage(cfg)
	if err != nil {
		logger.Error("failed to create storage backend", "error", err.Error())
		os.Exit(1)
	}

	if cfg.App.Migration {
		if err := store.Initialize(context.Background()); err != nil {
			logger.Error("failed to run storage migrations", "error", err.Error())
			os.Exit(1)
		}
	}

	reg := registry.NewSchemaRegistry(store, cfg.Storage.CacheSize, time.Duration(cfg.Storage.CacheTTLMS)*time.Millisecond)
	moves := registry.NewMoveRegistry(store)

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

	server := api.NewServer(cfg, reg, moves, amqpBroker, logger)
	reg.SetMetrics(server.Metrics(), cfg.Storage.Type)
	moves.SetMetrics(server.Metrics(), cfg.Storage.Type)
	amqpBroker.SetMetrics(server.Metrics())

	watchStop := make(chan struct{})
	defer close(watchStop)
	if *configPath != "" {
		err := config.Watch(*configPath, logger, func(reloaded *config.Config) {
			logger.Info("live config reload is informational only; restart to apply storage/broker changes",
				"address", reloaded.Address())
		}, watchStop)
		if err != nil {
			logger.Warn("config hot-reload disabled", "error", err.Error())
		}
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err.Error())
		}
		if err := amqpBroker.Close(); err != nil {
			logger.Error("broker close error", "error", err.Error())
		}
		if err := store.Close(); err != nil {
			logger.Error("storage close error", "error", err.Error())
		}
	}

	logger.Info("shutdown complete")
}
