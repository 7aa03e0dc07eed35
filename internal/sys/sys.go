// Package sys provides the per-platform Selector back-ends that wrap one
// kernel readiness facility (epoll, kqueue, or IOCP+AFD) behind a single
// interface. It is generalized from tnet's internal/poller package: instead
// of invoking stored per-descriptor callbacks, Select fills a caller-owned
// slice of portable Event structs, matching the readiness-polling contract
// the tpoll package exposes to callers.
package sys

import (
	"sync/atomic"
	"time"
)

// Interest mirrors the bit layout of the public tpoll.Interest type. Kept
// as a distinct type so this package never has to import the public
// surface (which would create an import cycle, since tpoll.Registry holds
// a Selector).
type Interest uint8

// Interest categories. Platforms lacking a category silently accept but
// never deliver it, per spec.
const (
	Readable Interest = 1 << iota
	Writable
	Priority
	Aio
	Lio
)

// IsEmpty reports whether no category is set.
func (i Interest) IsEmpty() bool { return i == 0 }

// Event is the decoded, portable view of one kernel event. It is a plain
// value type so that an Events buffer (a fixed-capacity []Event) never
// allocates past construction.
type Event struct {
	Token        uint64
	Readable     bool
	Writable     bool
	Error        bool
	ReadClosed   bool
	WriteClosed  bool
	Priority     bool
}

// Waker is the per-backend wake primitive bound to one Selector. Wake may
// coalesce multiple calls into a single delivered event; Close releases
// the underlying kernel object.
type Waker interface {
	Wake() error
	Close() error
}

// Selector presents one unified readiness facility over the platform's
// kernel back-end. One Selector is owned by exactly one Poll; a Registry
// holds a non-owning reference to it.
type Selector interface {
	// ID returns the process-unique, monotonically increasing selector id
	// assigned at Create, used to detect cross-selector registration
	// mistakes (spec invariant 1).
	ID() uint64

	// Register adds fd to the kernel object with edge-triggered semantics
	// and an association to token. Fails if fd is already present or
	// interest is empty.
	Register(fd int, token uint64, interest Interest) error

	// Reregister atomically changes token and/or interest for fd. Fails
	// if fd is not currently registered.
	Reregister(fd int, token uint64, interest Interest) error

	// Deregister removes the association for fd; no further events for
	// fd may be delivered, even ones already queued internally.
	Deregister(fd int) error

	// Select fills dst with up to len(dst) events, waiting at most
	// timeout (nil = indefinite). It retries transparently on EINTR and
	// returns the number of events written into dst.
	Select(dst []Event, timeout *time.Duration) (int, error)

	// NewWaker creates a Waker bound to this selector carrying token.
	NewWaker(token uint64) (Waker, error)

	// Close releases the selector's kernel object.
	Close() error
}

var nextSelectorID uint64

// allocID returns a fresh, process-wide monotonically increasing selector
// id. Selector ids start at 1 so the zero value can mean "unbound."
func allocID() uint64 {
	return atomic.AddUint64(&nextSelectorID, 1)
}

// MaxPollTimeout is the largest timeout handed to the kernel wait call in
// one invocation. Longer caller timeouts are served by looping, clamped
// here to sidestep the documented 32-bit Linux (<2.6.37) kernel bug that
// turns an overlong epoll_wait timeout into an immediate, non-blocking
// return. 30 minutes comfortably avoids the overflow window while still
// being long enough that looping is rare in practice.
const MaxPollTimeout = 30 * time.Minute

// ClampTimeout clamps d to MaxPollTimeout, reporting whether it clamped.
func ClampTimeout(d time.Duration) (time.Duration, bool) {
	if d > MaxPollTimeout {
		return MaxPollTimeout, true
	}
	return d, false
}
