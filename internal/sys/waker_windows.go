//go:build windows
// +build windows

package sys

import (
	"os"
	"sync/atomic"

	"golang.org/x/sys/windows"

	"trpc.group/trpc-go/tpoll/metrics"
)

// iocpWaker posts a zero-byte completion packet keyed by its token,
// mirroring the eventfd/EVFILT_USER wakers' coalescing contract: repeated
// Wake calls between two drains collapse into one observed wake-up.
type iocpWaker struct {
	sel      *iocpSelector
	token    uint64
	notified int32
}

func newIOCPWaker(sel *iocpSelector, token uint64) (Waker, error) {
	w := &iocpWaker{sel: sel, token: token}
	sel.addWaker(token, w)
	return w, nil
}

// Wake posts a completion packet if one is not already pending for this
// waker, coalescing bursts of Wake calls the same way the Linux and BSD
// back-ends do.
func (w *iocpWaker) Wake() error {
	metrics.Add(metrics.WakerWakeCalls, 1)
	if !atomic.CompareAndSwapInt32(&w.notified, 0, 1) {
		metrics.Add(metrics.WakerCoalesced, 1)
		return nil
	}
	err := windows.PostQueuedCompletionStatus(w.sel.iocp, 0, uintptr(w.token), nil)
	if err != nil {
		atomic.StoreInt32(&w.notified, 0)
		return os.NewSyscallError("PostQueuedCompletionStatus", err)
	}
	return nil
}

// consume is invoked by the selector's Select loop when it dequeues this
// waker's completion packet, resetting the coalescing latch.
func (w *iocpWaker) consume() {
	atomic.StoreInt32(&w.notified, 0)
}

func (w *iocpWaker) Close() error {
	w.sel.removeWaker(w.token)
	return nil
}
