// Package bootstrap wires a config.Config into concrete storage/broker/
// object-store instances. Both binaries share it so the backend-selection
// logic lives in one place instead of being duplicated per main.go.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dataplatform/validation-pipeline/internal/config"
	"github.com/dataplatform/validation-pipeline/internal/storage"
	"github.com/dataplatform/validation-pipeline/internal/storage/mysql"
	"github.com/dataplatform/validation-pipeline/internal/storage/postgres"
)

// NewStorage builds the Storage backend named by cfg.Storage.Type.
func NewStorage(cfg *config.Config) (storage.Storage, error) {
	switch storage.Backend(cfg.Storage.Type) {
	case storage.BackendMemory:
		return storage.Create(storage.BackendMemory, nil)

	case storage.BackendPostgres:
		return storage.Create(storage.BackendPostgres, postgresConfig(cfg.Storage.Postgres))

	case storage.BackendMySQL:
		return storage.Create(storage.BackendMySQL, mysqlConfig(cfg.Storage.MySQL))

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

func postgresConfig(pg config.PostgresConfig) postgres.Config {
	out := postgres.Config{
		Host:            pg.Host,
		Port:            pg.Port,
		Database:        pg.Database,
		Username:        pg.Username,
		Password:        pg.Password,
		SSLMode:         pg.SSLMode,
		MaxOpenConns:    pg.MaxOpenConns,
		MaxIdleConns:    pg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(pg.ConnMaxLifetime) * time.Second,
	}
	if out.Host == "" {
		out.Host = "localhost"
	}
	if out.Port == 0 {
		out.Port = 5432
	}
	if out.Database == "" {
		out.Database = "validation_pipeline"
	}
	if out.SSLMode == "" {
		out.SSLMode = "disable"
	}
	if out.MaxOpenConns == 0 {
		out.MaxOpenConns = 25
	}
	if out.MaxIdleConns == 0 {
		out.MaxIdleConns = 5
	}
	if out.ConnMaxLifetime == 0 {
		out.ConnMaxLifetime = 5 * time.Minute
	}
	return out
}

func mysqlConfig(my config.MySQLConfig) mysql.Config {
	out := mysql.Config{
		Host:            my.Host,
		Port:            my.Port,
		Database:        my.Database,
		Username:        my.Username,
		Password:        my.Password,
		MaxOpenConns:    my.MaxOpenConns,
		MaxIdleConns:    my.MaxIdleConns,
		ConnMaxLifetime: time.Duration(my.ConnMaxLifetime) * time.Second,
	}
	if out.Host == "" {
		out.Host = "localhost"
	}
	if out.Port == 0 {
		out.Port = 3306
	}
	if out.Database == "" {
		out.Database = "validation_pipeline"
	}
	if out.MaxOpenConns == 0 {
		out.MaxOpenConns = 25
	}
	if out.MaxIdleConns == 0 {
		out.MaxIdleConns = 5
	}
	if out.ConnMaxLifetime == 0 {
		out.ConnMaxLifetime = 5 * time.Minute
	}
	return out
}
