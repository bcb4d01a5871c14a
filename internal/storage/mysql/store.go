// Package mysql implements storage.Storage on top of MySQL.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dataplatform/validation-pipeline/internal/storage"
)

// Config holds the MySQL connection configuration.
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DefaultConfig returns sane defaults for local development.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            3306,
		Database:        "validation_pipeline",
		Username:        "root",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DSN returns the go-sql-driver/mysql connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Store implements storage.Storage on a pooled *sql.DB.
type Store struct {
	db *sql.DB
}

// Open dials MySQL and configures the connection pool per cfg.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return &Store{db: db}, nil
}

func init() {
	storage.Register(storage.BackendMySQL, func(config any) (storage.Storage, error) {
		cfg, ok := config.(Config)
		if !ok {
			return nil, fmt.Errorf("mysql: expected mysql.Config, got %T", config)
		}
		return Open(cfg)
	})
}

func (s *Store) Initialize(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertSchema(ctx context.Context, id, namespace, schemaAvro string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schema_registry (id, namespace, schema_avro) VALUES (?, ?, ?)`,
		id, namespace, schemaAvro)
	if err != nil {
		return fmt.Errorf("insert schema: %w", err)
	}
	return nil
}

func (s *Store) GetByNamespace(ctx context.Context, namespace string) ([]storage.SchemaRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, namespace, schema_avro, created_at FROM schema_registry
		 WHERE namespace = ? ORDER BY created_at ASC, id ASC`, namespace)
	if err != nil {
		return nil, fmt.Errorf("query schema_registry: %w", err)
	}
	defer rows.Close()
	return scanSchemaRows(rows)
}

func (s *Store) GetAll(ctx context.Context) ([]storage.SchemaRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, namespace, schema_avro, created_at FROM schema_registry
		 ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query schema_registry: %w", err)
	}
	defer rows.Close()
	return scanSchemaRows(rows)
}

func scanSchemaRows(rows *sql.Rows) ([]storage.SchemaRecord, error) {
	out := make([]storage.SchemaRecord, 0)
	for rows.Next() {
		var r storage.SchemaRecord
		if err := rows.Scan(&r.ID, &r.Namespace, &r.SchemaAvro, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan schema_registry row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteByNamespace(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM schema_registry WHERE namespace = ?`, namespace)
	if err != nil {
		return fmt.Errorf("delete schema_registry by namespace: %w", err)
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM schema_registry`)
	if err != nil {
		return fmt.Errorf("delete all schema_registry: %w", err)
	}
	return nil
}

func (s *Store) InsertMetric(ctx context.Context, schemaFK, oldBucket, newBucket, namespace, summaryJSON string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO move_registry (schema_fk, old_bucket, new_bucket, namespace, summary)
		 VALUES (?, ?, ?, ?, ?)`,
		schemaFK, oldBucket, newBucket, namespace, summaryJSON)
	if err != nil {
		return fmt.Errorf("insert move_registry: %w", err)
	}
	return nil
}

func (s *Store) GetMetrics(ctx context.Context) ([]storage.MetricTotal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT new_bucket, total FROM metric ORDER BY new_bucket`)
	if err != nil {
		return nil, fmt.Errorf("query metric view: %w", err)
	}
	defer rows.Close()

	out := make([]storage.MetricTotal, 0)
	for rows.Next() {
		var m storage.MetricTotal
		if err := rows.Scan(&m.NewBucket, &m.Total); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
