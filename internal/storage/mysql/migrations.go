package mysql

// migrations is the ordered, idempotent schema migration script.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schema_registry (
		id VARCHAR(255) PRIMARY KEY,
		namespace VARCHAR(255) NOT NULL,
		schema_avro LONGTEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_schema_registry_namespace (namespace)
	)`,

	`CREATE TABLE IF NOT EXISTS move_registry (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		schema_fk VARCHAR(255) NOT NULL,
		old_bucket VARCHAR(255) NOT NULL,
		new_bucket VARCHAR(255) NOT NULL,
		namespace VARCHAR(255) NOT NULL,
		summary LONGTEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE OR REPLACE VIEW metric AS
		SELECT new_bucket, COUNT(*) AS total FROM move_registry GROUP BY new_bucket`,
}
