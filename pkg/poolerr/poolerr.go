// Package poolerr holds the sentinel error values shared across the pool
// tool, modeled on the teacher's pkg/model string-constant error type: a
// fixed, comparable set of errors that call sites wrap with fmt.Errorf for
// context instead of defining ad-hoc error structs per package.
package poolerr

// Error is a sentinel error value. Comparing with errors.Is (or == after
// unwrapping one level of fmt.Errorf's %w) identifies which of the taxonomy
// in spec.md §7 a given failure belongs to.
type Error string

func (e Error) Error() string {
	return string(e)
}

// Parse-time errors (spec.md §4.2, §7 ParseError).
const (
	ErrMalformed          Error = "range malformed"
	ErrFamilyMismatch     Error = "start and end address families differ"
	ErrStartAfterEnd      Error = "start address is after end address"
	ErrPrefixOutOfBounds  Error = "allocation prefix out of bounds"
	ErrPrefixSpanTooLarge Error = "allocation prefix span exceeds 64 bits"
)

// CLI usage error (spec.md §7 UsageError, exit 64).
const ErrUsage Error = "usage error"

// Redis transport errors (spec.md §7 TransientRedis / FatalRedis).
const (
	// ErrTryAgain signals a server-directed MOVED/ASK redirect mid-batch;
	// the pipeline driver rewinds to the last acknowledged address and
	// retries against the redirect target. Never surfaced to the operator.
	ErrTryAgain Error = "redis cluster redirect: try again"
	// ErrFatalRedis signals the cluster state reached a terminal
	// non-success condition; the run aborts with exit 1.
	ErrFatalRedis Error = "redis cluster in a terminal failure state"
)

// ErrReplyShape marks a reply stream whose overall shape is unusable: a
// batch that came back with the wrong number of replies, or a malformed
// CLUSTER SLOTS reply. It is returned as an error and ends the operation.
// A malformed reply for a single address does not use it: pkg/leaseops
// skips that address and leaves it out of the aggregate count.
const ErrReplyShape Error = "unexpected redis reply shape"
