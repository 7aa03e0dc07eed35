package tpoll

import "trpc.group/trpc-go/tpoll/internal/sys"

// Waker lets any goroutine cancel a concurrent, blocked Poll.Poll call
// from outside, without that goroutine needing a Source of its own. A
// Waker is scoped to one Registry's Selector and carries a fixed Token
// delivered as a readable Event on the next (or already in-flight) Poll
// call.
//
// Repeated Wake calls between two observed wake-ups coalesce into a
// single delivered event; Wake never queues more than one pending
// wake-up per Waker.
type Waker struct {
	w     sys.Waker
	token Token
}

// NewWaker creates a Waker bound to reg's Selector, delivering token on
// wake. The Waker must be closed before the Poll it is bound to is
// closed.
func NewWaker(reg *Registry, token Token) (*Waker, error) {
	w, err := reg.sel.NewWaker(uint64(token))
	if err != nil {
		return nil, err
	}
	return &Waker{w: w, token: token}, nil
}

// Wake causes the next (or currently blocked) Poll.Poll call on the bound
// Selector to return an Event with this Waker's Token, from any goroutine,
// including one with no other registration on that Poll.
func (w *Waker) Wake() error {
	return w.w.Wake()
}

// Close releases the Waker's underlying kernel object. After Close, Wake
// must not be called again.
func (w *Waker) Close() error {
	return w.w.Close()
}

// Token returns the token this Waker delivers on wake.
func (w *Waker) Token() Token { return w.token }
