package tpoll

import "trpc.group/trpc-go/tpoll/internal/sys"

// Event is the portable, decoded view of one readiness transition observed
// for a registered Source. Its Token is whatever value the caller passed
// to Register/Reregister for that source; tpoll never interprets it.
//
// A single Event may report more than one predicate at once (e.g. readable
// and read-closed together, meaning "there is buffered data, then EOF").
// Callers should check IsError and the closed predicates in addition to
// IsReadable/IsWritable, not instead of them.
type Event struct {
	token       Token
	readable    bool
	writable    bool
	error       bool
	readClosed  bool
	writeClosed bool
	priority    bool
}

// Token returns the opaque identifier this event's registration was made
// with.
func (e Event) Token() Token { return e.token }

// IsReadable reports whether the source has data available to read, a
// pending connection to accept, or (combined with IsReadClosed) reached
// EOF on the read side.
func (e Event) IsReadable() bool { return e.readable }

// IsWritable reports whether the source can accept a write without
// blocking, or that a pending connect has completed.
func (e Event) IsWritable() bool { return e.writable }

// IsError reports whether the source has a pending error condition; the
// caller should retrieve and clear it (e.g. via SO_ERROR) before treating
// the source as usable again.
func (e Event) IsError() bool { return e.error }

// IsReadClosed reports whether the peer has shut down its write side (or
// the local read side has otherwise been closed), so that a caller can
// stop expecting new readable events once the buffered data is drained.
func (e Event) IsReadClosed() bool { return e.readClosed }

// IsWriteClosed reports whether the write side of the source has closed,
// so that a caller can stop attempting writes.
func (e Event) IsWriteClosed() bool { return e.writeClosed }

// IsPriority reports whether the event carries out-of-band/priority data
// (e.g. TCP urgent data), distinct from ordinary readable data.
func (e Event) IsPriority() bool { return e.priority }

// fromSys converts one internal/sys.Event into the public view, wrapping
// the opaque token back into a Token.
func fromSys(e sys.Event) Event {
	return Event{
		token:       Token(e.Token),
		readable:    e.Readable,
		writable:    e.Writable,
		error:       e.Error,
		readClosed:  e.ReadClosed,
		writeClosed: e.WriteClosed,
		priority:    e.Priority,
	}
}
