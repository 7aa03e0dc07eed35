package net

// Options configures a listener or stream's socket-level behavior at
// creation time. The zero value uses the OS defaults for every option.
type Options struct {
	// ReusePort enables SO_REUSEPORT so multiple listeners can share one
	// address, letting the kernel load-balance accepted connections
	// across them.
	ReusePort bool

	// ReuseAddr enables SO_REUSEADDR.
	ReuseAddr bool

	// KeepAliveSecs, if positive, enables TCP keep-alive with the given
	// idle and probe interval in seconds.
	KeepAliveSecs int

	// NoDelay disables Nagle's algorithm (TCP_NODELAY) when true.
	NoDelay bool

	// Backlog is the listen(2) backlog for a TCPListener. Zero uses a
	// reasonable default.
	Backlog int
}

const defaultBacklog = 1024

func (o Options) backlog() int {
	if o.Backlog > 0 {
		return o.Backlog
	}
	return defaultBacklog
}
