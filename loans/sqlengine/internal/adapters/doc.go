// Package adapters provide database adapter implementations for the SQL loan engine.
//
// The adapters hide the differences between pgxpool.Pool, sql.DB and sqlx.DB behind the
// DBAdapter and DBTx interfaces. Every statement takes positional arguments, the engine
// never interpolates values into SQL text.
package adapters
