// Package helper provides test doubles for the loan engine's observability interfaces
// and shared fixtures for engine and shell tests.
package helper
