package adapters

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// sqlStateSerializationFailure is the PostgreSQL SQLSTATE for serialization_failure.
// Deadlocks (40P01) are deliberately not included.
const sqlStateSerializationFailure = "40001"

// SerializationFailure returns the PostgreSQL error carried by err when the backend aborted the
// transaction because of a concurrent update under Repeatable Read or Serializable.
// It returns nil for every other error.
func SerializationFailure(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateSerializationFailure {
		return pgErr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == sqlStateSerializationFailure {
		return pqErr
	}

	return nil
}
