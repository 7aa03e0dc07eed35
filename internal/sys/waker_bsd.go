//go:build freebsd || dragonfly || darwin
// +build freebsd dragonfly darwin

package sys

import (
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"trpc.group/trpc-go/tpoll/metrics"
)

var nextUserIdent uint64

// userEventWaker is an EVFILT_USER registration, grounded on tnet's
// poller_kqueue.go fd-0 user filter set up in newPoller and triggered via
// NOTE_TRIGGER in notify().
type userEventWaker struct {
	sel   *kqueueSelector
	ident uint64
	token uint64
}

func newUserEventWaker(sel *kqueueSelector, token uint64) (Waker, error) {
	ident := atomic.AddUint64(&nextUserIdent, 1)
	evt := unix.Kevent_t{
		Ident:  ident,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
		Udata:  tokenToUdata(token),
	}
	if _, err := unix.Kevent(sel.fd, []unix.Kevent_t{evt}, nil, nil); err != nil {
		return nil, os.NewSyscallError("kevent add EVFILT_USER", err)
	}
	return &userEventWaker{sel: sel, ident: ident, token: token}, nil
}

// Wake triggers the user filter. Coalescing is left to the kernel: kqueue
// only ever reports one pending EVFILT_USER event per ident regardless of
// how many times NOTE_TRIGGER fired before the next kevent() call.
func (w *userEventWaker) Wake() error {
	metrics.Add(metrics.WakerWakeCalls, 1)
	evt := unix.Kevent_t{
		Ident:  w.ident,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}
	for {
		_, err := unix.Kevent(w.sel.fd, []unix.Kevent_t{evt}, nil, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("kevent trigger", err)
		}
		return nil
	}
}

func (w *userEventWaker) Close() error {
	evt := unix.Kevent_t{
		Ident:  w.ident,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_DELETE,
	}
	_, err := unix.Kevent(w.sel.fd, []unix.Kevent_t{evt}, nil, nil)
	if err != nil && err != unix.ENOENT {
		return os.NewSyscallError("kevent delete EVFILT_USER", err)
	}
	return nil
}
