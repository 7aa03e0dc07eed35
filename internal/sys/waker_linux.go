//go:build linux
// +build linux

package sys

import (
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"trpc.group/trpc-go/tpoll/metrics"
)

// eventfdWaker is an eventfd registered edge-triggered + level-read so
// that every Wake call after the previous one was drained triggers a new
// readable event, grounded on tnet's poller_epoll.go eventfd waker
// (ep.desc/notify/buf).
type eventfdWaker struct {
	sel      *epollSelector
	fd       int
	token    uint64
	notified int32
}

func newEventfdWaker(sel *epollSelector, token uint64) (Waker, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("eventfd", err)
	}
	w := &eventfdWaker{sel: sel, fd: fd, token: token}
	if err := sel.registerRaw(fd, token, unix.EPOLLIN|unix.EPOLLET); err != nil {
		unix.Close(fd)
		return nil, err
	}
	sel.addWaker(token, w)
	return w, nil
}

// Wake coalesces concurrent calls: only the goroutine that flips notified
// from 0 to 1 actually writes the eventfd; Select's drain (see
// drainIfWaker and drain) resets it to 0 once observed.
func (w *eventfdWaker) Wake() error {
	metrics.Add(metrics.WakerWakeCalls, 1)
	if !atomic.CompareAndSwapInt32(&w.notified, 0, 1) {
		metrics.Add(metrics.WakerCoalesced, 1)
		return nil
	}
	buf := [8]byte{0, 0, 0, 0, 0, 0, 0, 1}
	for {
		_, err := unix.Write(w.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil && err != unix.EAGAIN {
			return os.NewSyscallError("write", err)
		}
		return nil
	}
}

func (w *eventfdWaker) Close() error {
	w.sel.removeWaker(w.token)
	_ = w.sel.deregisterRaw(w.fd)
	return os.NewSyscallError("close", unix.Close(w.fd))
}

// drain reads (and discards) the eventfd counter and clears notified,
// called by the poller when it observes a readable event on the waker fd.
func (w *eventfdWaker) drain() {
	var buf [8]byte
	unix.Read(w.fd, buf[:])
	atomic.StoreInt32(&w.notified, 0)
}
