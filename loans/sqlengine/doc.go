// Package sqlengine provides the SQL implementation of the loan engine and the catalog repository.
//
// The engine runs Borrow and Return as single transactions against PostgreSQL or SQLite.
// Race detection relies exclusively on conditional updates: every write that depends on a
// value read earlier in the transaction re-checks that value in its WHERE clause, and zero
// affected rows aborts the transaction with loans.ErrRaceLost. No explicit row locks are taken.
//
// Supported connection types:
//   - *pgxpool.Pool (NewEngineFromPGXPool)
//   - *sql.DB with lib/pq (NewEngineFromSQLDB)
//   - *sqlx.DB with either driver (NewEngineFromSQLX)
//   - *sql.DB with modernc.org/sqlite (NewEngineFromSQLite)
//
// Example usage:
//
//	engine, err := sqlengine.NewEngineFromPGXPool(pool, sqlengine.WithLogger(slog.Default()))
//	if err != nil {
//		return err
//	}
//	if err := engine.Migrate(ctx); err != nil {
//		return err
//	}
//	err = engine.Borrow(ctx, 1, "Dune", "Frank Herbert")
package sqlengine
