// Package shell is the interaction layer around the loan engine.
//
// It turns user requests into Borrow and Return calls, resubmits operations that lost a race
// with exponential backoff, and reports outcomes with retry metadata. The CLI and the HTTP API
// both go through the Library defined here.
package shell
