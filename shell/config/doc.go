// Package config loads the library service configuration and opens database connections.
//
// Configuration is read in three layers: built-in defaults, an optional YAML file, and
// LIBRARY_* environment variables. The result is validated before use.
//
//	database:
//	  driver: "sqlite"          # sqlite, pgx, sql, sqlx
//	  sqlite_path: "library.db"
//	  dsn: "postgres://..."     # for pgx, sql, sqlx
//	  isolation_level: "read_committed"
//	logging:
//	  level: "info"             # debug, info, warn, error
//	  format: "text"            # json, text
//	retry:
//	  max_attempts: 6
//	  base_delay: "10ms"
//
// The connection factories cover every backend the loan engine supports: pgxpool, database/sql
// with lib/pq, sqlx, and database/sql with modernc.org/sqlite.
package config
