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

//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

package net

import (
	stdnet "net"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"trpc.group/trpc-go/tpoll"
)

// UnixListener is a non-blocking Unix domain stream listen socket
// implementing tpoll.Source.
type UnixListener struct {
	*tpoll.FD
	addr *stdnet.UnixAddr
}

// ListenUnix creates a listening Unix domain socket at path.
func ListenUnix(path string, opts Options) (*UnixListener, error) {
	addr := &stdnet.UnixAddr{Name: path, Net: "unix"}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, opts.backlog()); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}
	return &UnixListener{FD: tpoll.NewFD(fd), addr: addr}, nil
}

// Accept accepts one pending connection without blocking.
func (l *UnixListener) Accept() (*UnixStream, error) {
	connFD, _, err := unix.Accept4(l.Fd(), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("accept4", err)
	}
	return &UnixStream{FD: tpoll.NewFD(connFD)}, nil
}

// Addr returns the socket path the listener is bound to.
func (l *UnixListener) Addr() stdnet.Addr { return l.addr }

// Close closes the listener and unlinks its socket path.
func (l *UnixListener) Close() error {
	if !l.MarkClosed() {
		return nil
	}
	err := os.NewSyscallError("close", unix.Close(l.Fd()))
	if rmErr := os.Remove(l.addr.Name); rmErr != nil && err == nil {
		err = errors.Wrap(rmErr, "remove unix socket path")
	}
	return err
}

// UnixStream is a non-blocking Unix domain stream connection implementing
// tpoll.Source.
type UnixStream struct {
	*tpoll.FD
}

// DialUnix connects to a Unix domain listen socket at path. As with
// DialTCP, the connect may still be in progress when this returns; Unix
// domain connects to a local, already-listening socket virtually never
// block, but the caller should still treat EINPROGRESS as success and
// confirm with SocketError after the first writable Event.
func DialUnix(path string) (*UnixStream, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, os.NewSyscallError("connect", err)
	}
	return &UnixStream{FD: tpoll.NewFD(fd)}, nil
}

// Read reads into b without blocking.
func (s *UnixStream) Read(b []byte) (int, error) {
	n, err := unix.Read(s.Fd(), b)
	if err != nil {
		return 0, os.NewSyscallError("read", err)
	}
	return n, nil
}

// Write writes b without blocking.
func (s *UnixStream) Write(b []byte) (int, error) {
	n, err := unix.Write(s.Fd(), b)
	if err != nil {
		return 0, os.NewSyscallError("write", err)
	}
	return n, nil
}

// SocketError returns and clears the pending SO_ERROR.
func (s *UnixStream) SocketError() error {
	errno, err := unix.GetsockoptInt(s.Fd(), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt SO_ERROR", err)
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

// Close closes the stream.
func (s *UnixStream) Close() error {
	if !s.MarkClosed() {
		return nil
	}
	return os.NewSyscallError("close", unix.Close(s.Fd()))
}
