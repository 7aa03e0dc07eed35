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

// TCPListener is a non-blocking, edge-triggered-friendly TCP listen socket
// that implements tpoll.Source. Grounded on tnet's tcplistener.go for the
// fd lifecycle, generalized to raw accept instead of a buffered
// Accept-callback loop.
type TCPListener struct {
	*tpoll.FD
	addr *stdnet.TCPAddr
}

// ListenTCP creates a listening TCP socket bound to addr ("host:port"),
// set non-blocking, and (optionally) SO_REUSEPORT/SO_REUSEADDR per opts.
func ListenTCP(network, addr string, opts Options) (*TCPListener, error) {
	laddr, err := stdnet.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve tcp addr")
	}
	family, sa, err := toSockaddr(laddr.IP, laddr.Port, laddr.Zone)
	if err != nil {
		return nil, errors.Wrap(err, "build sockaddr")
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if opts.ReuseAddr {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, os.NewSyscallError("setsockopt SO_REUSEADDR", err)
		}
	}
	if opts.ReusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			unix.Close(fd)
			return nil, os.NewSyscallError("setsockopt SO_REUSEPORT", err)
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, opts.backlog()); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}
	if bound, err := unix.Getsockname(fd); err == nil {
		if ta, ok := netutil.SockaddrToTCPOrUnixAddr(bound).(*stdnet.TCPAddr); ok {
			laddr = ta
		}
	}
	return &TCPListener{FD: tpoll.NewFD(fd), addr: laddr}, nil
}

// Accept accepts one pending connection without blocking. It returns
// unix.EAGAIN if none is pending; the caller should wait for the
// listener's next readable Event before retrying.
func (l *TCPListener) Accept() (*TCPStream, stdnet.Addr, error) {
	connFD, sa, err := netutil.Accept(l.Fd())
	if err != nil {
		return nil, nil, err
	}
	raddr := netutil.SockaddrToTCPOrUnixAddr(sa)
	return &TCPStream{FD: tpoll.NewFD(connFD), raddr: raddr}, raddr, nil
}

// Addr returns the address the listener is bound to.
func (l *TCPListener) Addr() stdnet.Addr { return l.addr }

// Close closes the listening socket.
func (l *TCPListener) Close() error {
	if !l.MarkClosed() {
		return nil
	}
	return os.NewSyscallError("close", unix.Close(l.Fd()))
}
