// Package backendwrapper creates loan engines on the backend selected by the ADAPTER_TYPE
// environment variable, so the same tests run against every supported connection type.
//
// Supported values:
//   - "" or "sqlite": a fresh SQLite file in t.TempDir() per test (no external service needed)
//   - "pgx.pool": PostgreSQL via pgxpool
//   - "sql.db": PostgreSQL via database/sql and lib/pq
//   - "sqlx.db": PostgreSQL via sqlx and lib/pq
//
// PostgreSQL runs use LIBRARY_TEST_DSN, defaulting to a local test database.
package backendwrapper
