package tpoll

import "trpc.group/trpc-go/tpoll/internal/sys"

// Registry is a cloneable, thread-safe handle used to register, reregister
// and deregister Sources against one Poll's Selector. A Registry may be
// cloned and handed to other goroutines so they can register sources
// concurrently with the goroutine blocked in Poll.Poll (spec invariant on
// multi-thread registration).
//
// Registry holds a non-owning reference to its Poll's Selector: it must
// never outlive the Poll that created it, and closing the Poll while a
// clone is still reachable from another goroutine is a caller bug, not
// something Registry can detect or protect against.
type Registry struct {
	sel sys.Selector
}

// Register adds source to the registry under token and the given
// interest, delegating to the Source's own Register method so that
// heterogeneous source types can each manage their own fd/handle.
func (r *Registry) Register(source Source, token Token, interest Interest) error {
	return source.Register(r, token, interest)
}

// Reregister changes an existing registration's token and/or interest.
func (r *Registry) Reregister(source Source, token Token, interest Interest) error {
	return source.Reregister(r, token, interest)
}

// Deregister removes source's registration.
func (r *Registry) Deregister(source Source) error {
	return source.Deregister(r)
}

// Clone returns a new Registry handle referring to the same underlying
// Selector. The clone and the original may be used from different
// goroutines concurrently, including concurrently with a Poll blocked in
// Poll.Poll on the same Selector.
func (r *Registry) Clone() *Registry {
	return &Registry{sel: r.sel}
}

// registerFD, reregisterFD and deregisterFD are the low-level operations
// FD uses to implement Source; they translate the public Interest and
// Token types into the internal/sys representation.
func (r *Registry) registerFD(fd int, token Token, interest Interest) error {
	return r.sel.Register(fd, uint64(token), interest.sys())
}

func (r *Registry) reregisterFD(fd int, token Token, interest Interest) error {
	return r.sel.Reregister(fd, uint64(token), interest.sys())
}

func (r *Registry) deregisterFD(fd int) error {
	return r.sel.Deregister(fd)
}

// selectorID returns the id of the Selector backing this Registry, used
// by FD to detect a Source being moved to register with a different
// Poll's Selector than the one it was last bound to (spec invariant 1).
func (r *Registry) selectorID() uint64 {
	return r.sel.ID()
}
