package loans

import (
	"fmt"
	"strings"
)

// IsolationLevel is the transaction isolation a loan engine requests for Borrow and Return.
type IsolationLevel int

const (
	// ReadCommitted is the default. The conditional updates re-check their predicates at
	// write time, so a stale read leads to RaceLost instead of a broken invariant.
	ReadCommitted IsolationLevel = iota

	// RepeatableRead makes the backend abort on concurrent updates of the same rows.
	// Such aborts surface as ErrRaceLost.
	RepeatableRead

	// Serializable is the strictest level. Serialization failures surface as ErrRaceLost,
	// deadlocks as ErrTransactionFailed.
	Serializable
)

// String returns the lower-case, underscore separated name used in configuration files.
func (l IsolationLevel) String() string {
	switch l {
	case ReadCommitted:
		return "read_committed"
	case RepeatableRead:
		return "repeatable_read"
	case Serializable:
		return "serializable"
	default:
		return fmt.Sprintf("isolation_level(%d)", int(l))
	}
}

// ParseIsolationLevel parses the configuration name of an isolation level.
// An empty string yields ReadCommitted.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "read_committed", "read committed":
		return ReadCommitted, nil
	case "repeatable_read", "repeatable read":
		return RepeatableRead, nil
	case "serializable":
		return Serializable, nil
	default:
		return ReadCommitted, fmt.Errorf("%w: unknown isolation level %q", ErrInvalidInput, s)
	}
}
