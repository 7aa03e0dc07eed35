package sys

import "errors"

// Sentinel errors shared by every Selector implementation. tpoll's public
// errors.go re-exports these by value so that errors.Is comparisons work
// across the package boundary without internal/sys importing the public
// package.
var (
	// ErrEmptyInterest is returned by Register/Reregister when interest is
	// the empty set.
	ErrEmptyInterest = errors.New("tpoll: interest set must not be empty")

	// ErrAlreadyRegistered is returned by Register when fd is already
	// associated with this selector.
	ErrAlreadyRegistered = errors.New("tpoll: fd already registered with this selector")

	// ErrNotRegistered is returned by Reregister/Deregister when fd has no
	// current association with this selector.
	ErrNotRegistered = errors.New("tpoll: fd is not registered with this selector")
)
