package app

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrRegistrationExceedsLimit rejects a session whose registered count
	// exceeds the occupancy limit while proximity alerting is enabled.
	ErrRegistrationExceedsLimit = errors.New("registered count exceeds occupancy limit")

	// ErrRegistrationExceedsCapacity rejects a session whose registered
	// count exceeds the lab capacity ceiling.
	ErrRegistrationExceedsCapacity = errors.New("registered count exceeds lab capacity")
)
