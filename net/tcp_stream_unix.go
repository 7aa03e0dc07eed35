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
	"trpc.group/trpc-go/tpoll/internal/netutil"
)

// TCPStream is a non-blocking TCP connection implementing tpoll.Source.
// Grounded on tnet's tcpconn.go for the fd lifecycle, stripped of its
// buffer/framing layer since tpoll itself owns no I/O.
type TCPStream struct {
	*tpoll.FD
	raddr stdnet.Addr
}

// DialTCP begins a non-blocking connect to addr. The connect is typically
// still in progress when DialTCP returns; the caller must register the
// TCPStream for Writable and wait for the first writable Event (checking
// SO_ERROR) before treating the connection as established, exactly as a
// raw nonblocking connect(2) works.
func DialTCP(network, addr string, opts Options) (*TCPStream, error) {
	raddr, err := stdnet.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve tcp addr")
	}
	family, sa, err := toSockaddr(raddr.IP, raddr.Port, raddr.Zone)
	if err != nil {
		return nil, errors.Wrap(err, "build sockaddr")
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if opts.NoDelay {
		unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}
	if opts.KeepAliveSecs > 0 {
		netutil.SetKeepAlive(fd, opts.KeepAliveSecs)
	}
	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, os.NewSyscallError("connect", err)
	}
	return &TCPStream{FD: tpoll.NewFD(fd), raddr: raddr}, nil
}

// Read reads into b without blocking, returning (0, unix.EAGAIN) if no
// data is currently available.
func (s *TCPStream) Read(b []byte) (int, error) {
	n, err := unix.Read(s.Fd(), b)
	if err != nil {
		return 0, os.NewSyscallError("read", err)
	}
	return n, nil
}

// Write writes b without blocking, returning (0, unix.EAGAIN) if the send
// buffer is currently full.
func (s *TCPStream) Write(b []byte) (int, error) {
	n, err := unix.Write(s.Fd(), b)
	if err != nil {
		return 0, os.NewSyscallError("write", err)
	}
	return n, nil
}

// SocketError returns and clears the pending SO_ERROR, used to discover
// whether an in-progress connect succeeded once the stream becomes
// writable.
func (s *TCPStream) SocketError() error {
	errno, err := unix.GetsockoptInt(s.Fd(), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt SO_ERROR", err)
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

// RemoteAddr returns the address the stream is connected to.
func (s *TCPStream) RemoteAddr() stdnet.Addr { return s.raddr }

// CloseWrite shuts down the write half of the connection, delivering
// read-closed to the peer, without releasing the descriptor.
func (s *TCPStream) CloseWrite() error {
	return os.NewSyscallError("shutdown", unix.Shutdown(s.Fd(), unix.SHUT_WR))
}

// Close closes the stream.
func (s *TCPStream) Close() error {
	if !s.MarkClosed() {
		return nil
	}
	return os.NewSyscallError("close", unix.Close(s.Fd()))
}
