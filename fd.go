package tpoll

import "sync/atomic"

// FD is the Source mixin network and other fd-backed source types embed to
// get Register/Reregister/Deregister for free. It tracks which Selector
// (by id) the underlying descriptor is currently bound to so that
// registering the same Source with a second, unrelated Poll is rejected
// rather than silently corrupting either Selector's bookkeeping (spec
// invariant 1: a Source belongs to at most one Selector at a time).
type FD struct {
	fd     int
	selID  uint64 // 0 == unbound
	closed uint32
}

// NewFD wraps an already-open, non-blocking file descriptor for use as a
// Source. Callers are responsible for having set O_NONBLOCK; tpoll never
// touches descriptor flags itself.
func NewFD(fd int) *FD {
	return &FD{fd: fd}
}

// Fd returns the underlying raw descriptor.
func (f *FD) Fd() int { return f.fd }

// Register implements Source.
func (f *FD) Register(reg *Registry, token Token, interest Interest) error {
	if f.selID != 0 && f.selID != reg.selectorID() {
		return ErrAlreadyRegistered
	}
	if err := reg.registerFD(f.fd, token, interest); err != nil {
		return err
	}
	f.selID = reg.selectorID()
	return nil
}

// Reregister implements Source.
func (f *FD) Reregister(reg *Registry, token Token, interest Interest) error {
	if f.selID == 0 || f.selID != reg.selectorID() {
		return ErrNotRegistered
	}
	return reg.reregisterFD(f.fd, token, interest)
}

// Deregister implements Source.
func (f *FD) Deregister(reg *Registry) error {
	if f.selID == 0 || f.selID != reg.selectorID() {
		return ErrNotRegistered
	}
	err := reg.deregisterFD(f.fd)
	f.selID = 0
	return err
}

// MarkClosed records that the underlying descriptor has been closed by
// the owning source, so a second Close is a harmless no-op rather than
// operating on a reused fd number.
func (f *FD) MarkClosed() bool {
	return atomic.CompareAndSwapUint32(&f.closed, 0, 1)
}
