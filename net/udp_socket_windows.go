//go:build windows
// +build windows

package net

import (
	stdnet "net"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"trpc.group/trpc-go/tpoll"
)

// UDPSocket is a non-blocking UDP socket implementing tpoll.Source on
// Windows.
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
	family, sa, err := toSockaddr(laddr.IP, laddr.Port)
	if err != nil {
		return nil, errors.Wrap(err, "build sockaddr")
	}
	h, err := windows.Socket(family, windows.SOCK_DGRAM, windows.IPPROTO_UDP)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}
	if opts.ReuseAddr {
		windows.SetsockoptInt(h, windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	}
	if err := windows.Bind(h, sa); err != nil {
		windows.Closesocket(h)
		return nil, errors.Wrap(err, "bind")
	}
	if err := setNonblock(h); err != nil {
		windows.Closesocket(h)
		return nil, errors.Wrap(err, "ioctlsocket FIONBIO")
	}
	if bound, err := windows.Getsockname(h); err == nil {
		if ua := sockaddrToUDPAddr(bound); ua != nil {
			laddr = ua
		}
	}
	return &UDPSocket{FD: tpoll.NewFD(int(h)), laddr: laddr}, nil
}

// ReadFrom reads one datagram without blocking.
func (u *UDPSocket) ReadFrom(b []byte) (int, stdnet.Addr, error) {
	n, sa, err := windows.Recvfrom(windows.Handle(u.Fd()), b, 0)
	if err != nil {
		return 0, nil, errors.Wrap(err, "recvfrom")
	}
	return n, sockaddrToUDPAddr(sa), nil
}

func sockaddrToUDPAddr(sa windows.Sockaddr) *stdnet.UDPAddr {
	switch sa := sa.(type) {
	case *windows.SockaddrInet4:
		ip := make(stdnet.IP, 4)
		copy(ip, sa.Addr[:])
		return &stdnet.UDPAddr{IP: ip, Port: sa.Port}
	case *windows.SockaddrInet6:
		ip := make(stdnet.IP, 16)
		copy(ip, sa.Addr[:])
		return &stdnet.UDPAddr{IP: ip, Port: sa.Port}
	default:
		return nil
	}
}

// WriteTo sends one datagram to addr without blocking.
func (u *UDPSocket) WriteTo(b []byte, addr *stdnet.UDPAddr) (int, error) {
	_, sa, err := toSockaddr(addr.IP, addr.Port)
	if err != nil {
		return 0, err
	}
	if err := windows.Sendto(windows.Handle(u.Fd()), b, 0, sa); err != nil {
		return 0, errors.Wrap(err, "sendto")
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
	return windows.Closesocket(windows.Handle(u.Fd()))
}
