//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 THL A29 Limited, a Tencent company.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

//go:build linux
// +build linux

package sys

import (
	"os"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"trpc.group/trpc-go/tpoll/internal/lock"
	"trpc.group/trpc-go/tpoll/metrics"
)

// rflags is the edge-triggered readable interest mask: EPOLLIN for normal
// readable/acceptable data, EPOLLPRI for out-of-band priority data,
// EPOLLRDHUP/EPOLLHUP/EPOLLERR so half-close and error transitions are
// always observed even when the caller only asked for readable.
const (
	rflags = unix.EPOLLIN | unix.EPOLLPRI | unix.EPOLLRDHUP | unix.EPOLLHUP | unix.EPOLLERR
	wflags = unix.EPOLLOUT | unix.EPOLLHUP | unix.EPOLLERR
	edge   = unix.EPOLLET
)

// epollSelector is the Linux Selector backed by epoll_create1/epoll_ctl/
// epoll_pwait, generalized from tnet's internal/poller/poller_epoll.go.
type epollSelector struct {
	id  uint64
	fd  int
	fds *fdTable

	wakersMu lock.Spin
	wakers   map[uint64]*eventfdWaker

	// raw is reused across Select calls. Select is only ever called by
	// the single-owner Poll holding this Selector's Registry (spec
	// §4.3), so no synchronization is needed around reuse.
	raw []unix.EpollEvent
}

// New creates a fresh epoll-backed Selector.
func New() (Selector, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &epollSelector{
		id:     allocID(),
		fd:     fd,
		fds:    newFDTable(),
		wakers: make(map[uint64]*eventfdWaker),
	}, nil
}

func (s *epollSelector) ID() uint64 { return s.id }

func (s *epollSelector) Register(fd int, token uint64, interest Interest) error {
	if interest.IsEmpty() {
		return ErrEmptyInterest
	}
	if !s.fds.add(fd) {
		return ErrAlreadyRegistered
	}
	evt := unix.EpollEvent{Events: epollMask(interest) | edge}
	packToken(&evt, token)
	if err := unix.EpollCtl(s.fd, unix.EPOLL_CTL_ADD, fd, &evt); err != nil {
		s.fds.remove(fd)
		return os.NewSyscallError("epoll_ctl add", err)
	}
	metrics.Add(metrics.RegisterCalls, 1)
	return nil
}

func (s *epollSelector) Reregister(fd int, token uint64, interest Interest) error {
	if interest.IsEmpty() {
		return ErrEmptyInterest
	}
	if !s.fds.has(fd) {
		return ErrNotRegistered
	}
	evt := unix.EpollEvent{Events: epollMask(interest) | edge}
	packToken(&evt, token)
	if err := unix.EpollCtl(s.fd, unix.EPOLL_CTL_MOD, fd, &evt); err != nil {
		return os.NewSyscallError("epoll_ctl mod", err)
	}
	metrics.Add(metrics.ReregisterCalls, 1)
	return nil
}

func (s *epollSelector) Deregister(fd int) error {
	if !s.fds.remove(fd) {
		return ErrNotRegistered
	}
	if err := unix.EpollCtl(s.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl del", err)
	}
	metrics.Add(metrics.DeregisterCalls, 1)
	return nil
}

// Select blocks in epoll_wait and decodes up to len(dst) ready events. The
// raw kernel-event buffer is allocated once per Selector and reused on
// every call (growing only if a caller ever passes a larger dst than seen
// before), so steady-state polling with a fixed-capacity Events buffer
// does no per-call heap allocation.
func (s *epollSelector) Select(dst []Event, timeout *time.Duration) (int, error) {
	if cap(s.raw) < len(dst) {
		s.raw = make([]unix.EpollEvent, len(dst))
	}
	raw := s.raw[:len(dst)]
	msec := -1
	if timeout != nil {
		clamped, _ := ClampTimeout(*timeout)
		msec = int(clamped.Milliseconds())
	}
	for {
		n, err := unix.EpollWait(s.fd, raw, msec)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, errors.Wrap(os.NewSyscallError("epoll_wait", err), "selector select")
		}
		metrics.Add(metrics.SelectCalls, 1)
		if n == 0 {
			metrics.Add(metrics.SelectTimeouts, 1)
		}
		metrics.Add(metrics.SelectEvents, uint64(n))
		for i := 0; i < n; i++ {
			dst[i] = decodeEpollEvent(raw[i])
			s.drainIfWaker(dst[i].Token)
		}
		return n, nil
	}
}

func (s *epollSelector) NewWaker(token uint64) (Waker, error) {
	return newEventfdWaker(s, token)
}

func (s *epollSelector) Close() error {
	return os.NewSyscallError("close", unix.Close(s.fd))
}

func epollMask(i Interest) uint32 {
	var m uint32
	if i&Readable != 0 || i&Priority != 0 {
		m |= rflags
	}
	if i&Writable != 0 {
		m |= wflags
	}
	return m
}

// decodeEpollEvent translates a raw epoll event into the portable
// predicate set, per the translation table: an event carrying both an
// error and readable/writable bits must still surface readable/writable
// so the caller can drain before treating it as an error.
func decodeEpollEvent(e unix.EpollEvent) Event {
	// EPOLLERR with no readable bit set means the failure was async (e.g.
	// a connect() failure or a reset with nothing left to drain), so the
	// write side is also done; EPOLLERR alongside EPOLLIN means there is
	// still data to read before the error should be treated as terminal.
	writeClosed := e.Events&unix.EPOLLHUP != 0 ||
		(e.Events&unix.EPOLLERR != 0 && e.Events&(unix.EPOLLIN|unix.EPOLLPRI) == 0)
	return Event{
		Token:       unpackToken(e),
		Readable:    e.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
		Writable:    e.Events&unix.EPOLLOUT != 0,
		Error:       e.Events&unix.EPOLLERR != 0,
		ReadClosed:  e.Events&(unix.EPOLLRDHUP|unix.EPOLLHUP) != 0,
		WriteClosed: writeClosed,
		Priority:    e.Events&unix.EPOLLPRI != 0,
	}
}

// registerRaw is used by the eventfd waker to add its own fd with the
// selector's locking/table bookkeeping, distinguished from the public
// Register because a waker token doesn't belong to a caller Source.
func (s *epollSelector) registerRaw(fd int, token uint64, events uint32) error {
	if !s.fds.add(fd) {
		return ErrAlreadyRegistered
	}
	evt := unix.EpollEvent{Events: events}
	packToken(&evt, token)
	if err := unix.EpollCtl(s.fd, unix.EPOLL_CTL_ADD, fd, &evt); err != nil {
		s.fds.remove(fd)
		return os.NewSyscallError("epoll_ctl add", err)
	}
	return nil
}

func (s *epollSelector) deregisterRaw(fd int) error {
	s.fds.remove(fd)
	return os.NewSyscallError("epoll_ctl del", unix.EpollCtl(s.fd, unix.EPOLL_CTL_DEL, fd, nil))
}

func (s *epollSelector) addWaker(token uint64, w *eventfdWaker) {
	s.wakersMu.Lock()
	s.wakers[token] = w
	s.wakersMu.Unlock()
}

func (s *epollSelector) removeWaker(token uint64) {
	s.wakersMu.Lock()
	delete(s.wakers, token)
	s.wakersMu.Unlock()
}

// drainIfWaker drains the eventfd counter for a delivered event whose
// token belongs to a registered Waker, so the level-readable eventfd
// doesn't keep signaling after the caller has observed the wake.
func (s *epollSelector) drainIfWaker(token uint64) {
	s.wakersMu.Lock()
	w := s.wakers[token]
	s.wakersMu.Unlock()
	if w != nil {
		w.drain()
	}
}

// packToken/unpackToken store a Token in the 8-byte epoll_data union
// carried by unix.EpollEvent. The union occupies Fd+Pad (the two int32
// fields directly following Events); any additional field some
// architectures insert before Fd (PadFd) is pure alignment filler, not
// part of the union, so addressing from &evt.Fd is portable across
// every GOARCH golang.org/x/sys/unix supports for linux.
func packToken(evt *unix.EpollEvent, token uint64) {
	*(*uint64)(unsafe.Pointer(&evt.Fd)) = token
}

func unpackToken(evt unix.EpollEvent) uint64 {
	return *(*uint64)(unsafe.Pointer(&evt.Fd))
}
