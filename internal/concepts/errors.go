package concepts

import "errors"

var (
	// ErrInputUnreadable indicates the scan input could not be read. It is
	// the only condition that aborts a scan.
	ErrInputUnreadable = errors.New("input unreadable")

	// ErrInvalidTier indicates a tier outside {1, 2}
	ErrInvalidTier = errors.New("invalid tier")

	// ErrInvalidCallPattern indicates a call table entry that cannot be used
	ErrInvalidCallPattern = errors.New("invalid call pattern")

	// ErrUnknownCategory indicates a category name that is not registered
	ErrUnknownCategory = errors.New("unknown category")
)
