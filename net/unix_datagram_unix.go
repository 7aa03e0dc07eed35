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

	"golang.org/x/sys/unix"

	"trpc.group/trpc-go/tpoll"
)

// UnixDatagram is a non-blocking Unix domain datagram socket implementing
// tpoll.Source. Grounded on UDPSocket's ReadFrom/WriteTo shape, swapping
// the inet sockaddr family for unix.SockaddrUnix.
type UnixDatagram struct {
	*tpoll.FD
	addr *stdnet.UnixAddr
}

// ListenUnixDatagram creates a bound, non-blocking Unix domain datagram
// socket at path. An empty path yields an unbound (autobind/anonymous)
// socket suitable only for WriteTo.
func ListenUnixDatagram(path string) (*UnixDatagram, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	addr := &stdnet.UnixAddr{Name: path, Net: "unixgram"}
	if path != "" {
		if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
			unix.Close(fd)
			return nil, os.NewSyscallError("bind", err)
		}
	}
	return &UnixDatagram{FD: tpoll.NewFD(fd), addr: addr}, nil
}

// ReadFrom reads one datagram without blocking.
func (u *UnixDatagram) ReadFrom(b []byte) (int, stdnet.Addr, error) {
	n, sa, err := unix.Recvfrom(u.Fd(), b, 0)
	if err != nil {
		return 0, nil, os.NewSyscallError("recvfrom", err)
	}
	var from stdnet.Addr
	if ua, ok := sa.(*unix.SockaddrUnix); ok {
		from = &stdnet.UnixAddr{Name: ua.Name, Net: "unixgram"}
	}
	return n, from, nil
}

// WriteTo sends one datagram to the Unix domain socket at path.
func (u *UnixDatagram) WriteTo(b []byte, path string) (int, error) {
	if err := unix.Sendto(u.Fd(), b, 0, &unix.SockaddrUnix{Name: path}); err != nil {
		return 0, os.NewSyscallError("sendto", err)
	}
	return len(b), nil
}

// LocalAddr returns the socket path the socket is bound to, if any.
func (u *UnixDatagram) LocalAddr() stdnet.Addr { return u.addr }

// Close closes the socket, unlinking its path if it was bound to one.
func (u *UnixDatagram) Close() error {
	if !u.MarkClosed() {
		return nil
	}
	err := os.NewSyscallError("close", unix.Close(u.Fd()))
	if u.addr.Name != "" {
		os.Remove(u.addr.Name)
	}
	return err
}
