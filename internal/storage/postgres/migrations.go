package postgres

// migrations is the ordered, idempotent schema migration script: every
// statement uses IF NOT EXISTS / OR REPLACE so re-running it on an already
// initialized database is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schema_registry (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		schema_avro TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_schema_registry_namespace ON schema_registry(namespace)`,

	`CREATE TABLE IF NOT EXISTS move_registry (
		id BIGSERIAL PRIMARY KEY,
		schema_fk TEXT NOT NULL,
		old_bucket TEXT NOT NULL,
		new_bucket TEXT NOT NULL,
		namespace TEXT NOT NULL,
		summary TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,

	`CREATE OR REPLACE VIEW metric AS
		SELECT new_bucket, COUNT(*) AS total FROM move_registry GROUP BY new_bucket`,
}
