package tpoll

import "trpc.group/trpc-go/tpoll/internal/sys"

// Sentinel errors returned by Registry and Poll operations. They are the
// same values internal/sys returns, re-exported here so callers can use
// errors.Is against the public package without reaching into internal/sys.
var (
	// ErrEmptyInterest is returned by Register/Reregister when interest is
	// the empty set.
	ErrEmptyInterest = sys.ErrEmptyInterest

	// ErrAlreadyRegistered is returned by Register when the Source is
	// already registered with this Registry.
	ErrAlreadyRegistered = sys.ErrAlreadyRegistered

	// ErrNotRegistered is returned by Reregister/Deregister when the
	// Source has no current registration with this Registry.
	ErrNotRegistered = sys.ErrNotRegistered
)
