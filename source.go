package tpoll

// Source is the capability a type must implement to be registered with a
// Poll's Registry. Any file-descriptor- or handle-backed I/O object (TCP/
// UDP/Unix sockets, pipes, eventfds, ...) implements Source by embedding
// an FD and delegating to it, or by doing the equivalent itself.
//
// Implementations must not retain the Registry across calls; Register,
// Reregister and Deregister are one-shot operations performed by whatever
// code currently holds the Source.
type Source interface {
	// Register associates the Source with reg under token and interest.
	// Returns ErrAlreadyRegistered if the Source is already registered
	// with reg's Selector.
	Register(reg *Registry, token Token, interest Interest) error

	// Reregister changes the token and/or interest of an existing
	// registration. Returns ErrNotRegistered if the Source has no current
	// registration with reg's Selector.
	Reregister(reg *Registry, token Token, interest Interest) error

	// Deregister removes the Source's registration from reg. Returns
	// ErrNotRegistered if it had none.
	Deregister(reg *Registry) error
}
