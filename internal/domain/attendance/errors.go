package attendance

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrAlreadyActive is returned by Start while a session is running.
	ErrAlreadyActive = errors.New("attendance session already active")

	// ErrNotActive is returned by Observe and Stop outside a session.
	ErrNotActive = errors.New("no active attendance session")

	// ErrInvalidRegistration is returned by Start for a registered count
	// below one. Ratio classification divides by it, so it is rejected at
	// start time rather than on the first observe.
	ErrInvalidRegistration = errors.New("registered count must be at least 1")
)
