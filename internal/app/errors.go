package app

import "errors"

var (
	// ErrConfiguration reports invalid App options.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrWindowNotFound is returned by SetupWindow when no window matches.
	ErrWindowNotFound = errors.New("window not found")

	// ErrStopped is returned by window operations after Stop.
	ErrStopped = errors.New("app stopped")
)
