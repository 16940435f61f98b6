package report

import "errors"

var (
	// ErrInvalidFilter indicates a malformed or self-contradictory filter.
	// It is rejected before any aggregation starts.
	ErrInvalidFilter = errors.New("report: invalid filter")
	// ErrUnresolvedAccount indicates an aggregate references an account the
	// catalog cannot resolve. Fatal for the invocation: dropping the row
	// would corrupt subtotal arithmetic.
	ErrUnresolvedAccount = errors.New("report: unresolved account")
	// ErrUnresolvedGroup indicates an account references an account group
	// missing from the catalog.
	ErrUnresolvedGroup = errors.New("report: unresolved account group")
	// ErrAmountOverflow indicates decimal accumulation left the supported
	// range, or a derived total failed its consistency check.
	ErrAmountOverflow = errors.New("report: amount overflow")
)
