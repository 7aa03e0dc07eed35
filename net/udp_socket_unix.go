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

// UDPSocket is a non-blocking UDP socket implementing tpoll.Source.
// Grounded on tnet's udpconn.go for the fd lifecycle.
type UDPSocket struct {
	*tpoll.FD
	laddr *stdnet.UDPAddr
}

// ListenUDP creates a bound, non-blocking UDP socket.
func ListenUDP(network, addr string, opts Options) (*UDPSocket, error) {
	laddr, err := stdnet.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve udp addr")
	}
	family, sa, err := toSockaddr(laddr.IP, laddr.Port, laddr.Zone)
	if err != nil {
		return nil, errors.Wrap(err, "build sockaddr")
	}
	fd, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if opts.ReuseAddr {
		unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}
	if opts.ReusePort {
		unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if bound, err := unix.Getsockname(fd); err == nil {
		if ua, ok := netutil.SockaddrToUDPAddr(bound).(*stdnet.UDPAddr); ok {
			laddr = ua
		}
	}
	return &UDPSocket{FD: tpoll.NewFD(fd), laddr: laddr}, nil
}

// ReadFrom reads one datagram without blocking.
func (u *UDPSocket) ReadFrom(b []byte) (int, stdnet.Addr, error) {
	n, sa, err := unix.Recvfrom(u.Fd(), b, 0)
	if err != nil {
		return 0, nil, os.NewSyscallError("recvfrom", err)
	}
	return n, netutil.SockaddrToUDPAddr(sa), nil
}

// WriteTo sends one datagram to addr without blocking.
func (u *UDPSocket) WriteTo(b []byte, addr *stdnet.UDPAddr) (int, error) {
	_, sa, err := toSockaddr(addr.IP, addr.Port, addr.Zone)
	if err != nil {
		return 0, err
	}
	if err := unix.Sendto(u.Fd(), b, 0, sa); err != nil {
		return 0, os.NewSyscallError("sendto", err)
	}
	return len(b), nil
}

// LocalAddr returns the address the socket is bound to.
func (u *UDPSocket) LocalAddr() stdnet.Addr { return u.laddr }

// Close closes the socket.
func (u *UDPSocket) Close() error {
	if !u.MarkClosed() {
		return nil
	}
	return os.NewSyscallError("close", unix.Close(u.Fd()))
}
