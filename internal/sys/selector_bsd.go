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

//go:build freebsd || dragonfly || darwin
// +build freebsd dragonfly darwin

package sys

import (
	"os"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"trpc.group/trpc-go/tpoll/metrics"
)

// kqueueSelector is the BSD/Darwin Selector backed by kqueue, generalized
// from tnet's internal/poller/poller_kqueue.go.
type kqueueSelector struct {
	id  uint64
	fd  int
	fds *fdTable

	// raw is reused across Select calls; see the epoll back-end's Select
	// for why this is safe without locking.
	raw []unix.Kevent_t
}

// New creates a fresh kqueue-backed Selector.
func New() (Selector, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("fcntl", err)
	}
	return &kqueueSelector{
		id:  allocID(),
		fd:  fd,
		fds: newFDTable(),
	}, nil
}

func (s *kqueueSelector) ID() uint64 { return s.id }

func (s *kqueueSelector) Register(fd int, token uint64, interest Interest) error {
	if interest.IsEmpty() {
		return ErrEmptyInterest
	}
	if !s.fds.add(fd) {
		return ErrAlreadyRegistered
	}
	if err := s.apply(fd, token, interest, unix.EV_ADD|unix.EV_CLEAR); err != nil {
		s.fds.remove(fd)
		return err
	}
	metrics.Add(metrics.RegisterCalls, 1)
	return nil
}

func (s *kqueueSelector) Reregister(fd int, token uint64, interest Interest) error {
	if interest.IsEmpty() {
		return ErrEmptyInterest
	}
	if !s.fds.has(fd) {
		return ErrNotRegistered
	}
	// kqueue has no atomic "replace filter set" primitive: clear both
	// filters, then re-add the ones the new interest wants, exactly as
	// tnet's modRead/modWrite delete-then-rely-on-addRead/addWrite pairing
	// does in poller_kqueue.go.
	clearEvt := [2]unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	unix.Kevent(s.fd, clearEvt[:], nil, nil)
	err := s.apply(fd, token, interest, unix.EV_ADD|unix.EV_CLEAR)
	if err == nil {
		metrics.Add(metrics.ReregisterCalls, 1)
	}
	return err
}

func (s *kqueueSelector) Deregister(fd int) error {
	if !s.fds.remove(fd) {
		return ErrNotRegistered
	}
	evts := [2]unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	_, err := unix.Kevent(s.fd, evts[:], nil, nil)
	if err != nil && err != unix.ENOENT {
		return os.NewSyscallError("kevent delete", err)
	}
	metrics.Add(metrics.DeregisterCalls, 1)
	return nil
}

func (s *kqueueSelector) apply(fd int, token uint64, interest Interest, flags uint16) error {
	var changes []unix.Kevent_t
	if interest&(Readable|Priority) != 0 {
		var evt unix.Kevent_t
		evt.Ident = uint64(fd)
		evt.Filter = unix.EVFILT_READ
		evt.Flags = flags
		evt.Udata = tokenToUdata(token)
		changes = append(changes, evt)
	}
	if interest&Writable != 0 {
		var evt unix.Kevent_t
		evt.Ident = uint64(fd)
		evt.Filter = unix.EVFILT_WRITE
		evt.Flags = flags
		evt.Udata = tokenToUdata(token)
		changes = append(changes, evt)
	}
	if _, err := unix.Kevent(s.fd, changes, nil, nil); err != nil {
		return os.NewSyscallError("kevent add", err)
	}
	return nil
}

func (s *kqueueSelector) Select(dst []Event, timeout *time.Duration) (int, error) {
	if cap(s.raw) < len(dst) {
		s.raw = make([]unix.Kevent_t, len(dst))
	}
	raw := s.raw[:len(dst)]
	var ts *unix.Timespec
	if timeout != nil {
		clamped, _ := ClampTimeout(*timeout)
		t := unix.NsecToTimespec(clamped.Nanoseconds())
		ts = &t
	}
	for {
		n, err := unix.Kevent(s.fd, nil, raw, ts)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, errors.Wrap(os.NewSyscallError("kevent", err), "selector select")
		}
		metrics.Add(metrics.SelectCalls, 1)
		if n == 0 {
			metrics.Add(metrics.SelectTimeouts, 1)
		}
		metrics.Add(metrics.SelectEvents, uint64(n))
		for i := 0; i < n; i++ {
			dst[i] = decodeKevent(raw[i])
		}
		return n, nil
	}
}

func (s *kqueueSelector) NewWaker(token uint64) (Waker, error) {
	return newUserEventWaker(s, token)
}

func (s *kqueueSelector) Close() error {
	return os.NewSyscallError("close", unix.Close(s.fd))
}

// decodeKevent translates a raw kevent into the portable predicate set.
// EV_EOF on the read filter means read-closed; on the write filter it
// means write-closed, per the translation table.
func decodeKevent(e unix.Kevent_t) Event {
	ev := Event{Token: udataToToken(e.Udata)}
	switch e.Filter {
	case unix.EVFILT_READ:
		ev.Readable = true
		ev.ReadClosed = e.Flags&unix.EV_EOF != 0
	case unix.EVFILT_WRITE:
		ev.Writable = true
		ev.WriteClosed = e.Flags&unix.EV_EOF != 0
	case unix.EVFILT_USER:
		ev.Readable = true
	}
	ev.Error = e.Flags&unix.EV_ERROR != 0
	return ev
}

func tokenToUdata(token uint64) *byte {
	return (*byte)(unsafe.Pointer(uintptr(token)))
}

func udataToToken(p *byte) uint64 {
	return uint64(uintptr(unsafe.Pointer(p)))
}
