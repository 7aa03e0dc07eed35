//go:build windows
// +build windows

package net

import (
	stdnet "net"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"trpc.group/trpc-go/tpoll"
)

// TCPListener is a non-blocking TCP listen socket implementing
// tpoll.Source on Windows.
type TCPListener struct {
	*tpoll.FD
	addr *stdnet.TCPAddr
}

// ListenTCP creates a listening TCP socket bound to addr.
func ListenTCP(network, addr string, opts Options) (*TCPListener, error) {
	laddr, err := stdnet.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve tcp addr")
	}
	family, sa, err := toSockaddr(laddr.IP, laddr.Port)
	if err != nil {
		return nil, errors.Wrap(err, "build sockaddr")
	}
	h, err := windows.Socket(family, windows.SOCK_STREAM, windows.IPPROTO_TCP)
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
	if err := windows.Listen(h, opts.backlog()); err != nil {
		windows.Closesocket(h)
		return nil, errors.Wrap(err, "listen")
	}
	if err := setNonblock(h); err != nil {
		windows.Closesocket(h)
		return nil, errors.Wrap(err, "ioctlsocket FIONBIO")
	}
	if bound, err := windows.Getsockname(h); err == nil {
		if ta := sockaddrToTCPAddr(bound); ta != nil {
			laddr = ta
		}
	}
	return &TCPListener{FD: tpoll.NewFD(int(h)), addr: laddr}, nil
}

// Accept accepts one pending connection without blocking, returning
// windows.WSAEWOULDBLOCK if none is pending.
func (l *TCPListener) Accept() (*TCPStream, stdnet.Addr, error) {
	h, rsa, err := acceptRaw(windows.Handle(l.Fd()))
	if err != nil {
		return nil, nil, errors.Wrap(err, "accept")
	}
	if err := setNonblock(h); err != nil {
		windows.Closesocket(h)
		return nil, nil, errors.Wrap(err, "ioctlsocket FIONBIO")
	}
	sa, err := rsa.Sockaddr()
	if err != nil {
		windows.Closesocket(h)
		return nil, nil, errors.Wrap(err, "decode accepted sockaddr")
	}
	raddr := sockaddrToTCPAddr(sa)
	return &TCPStream{FD: tpoll.NewFD(int(h)), raddr: raddr}, raddr, nil
}

// Addr returns the address the listener is bound to.
func (l *TCPListener) Addr() stdnet.Addr { return l.addr }

// Close closes the listening socket.
func (l *TCPListener) Close() error {
	if !l.MarkClosed() {
		return nil
	}
	return windows.Closesocket(windows.Handle(l.Fd()))
}

func sockaddrToTCPAddr(sa windows.Sockaddr) *stdnet.TCPAddr {
	switch sa := sa.(type) {
	case *windows.SockaddrInet4:
		ip := make(stdnet.IP, 4)
		copy(ip, sa.Addr[:])
		return &stdnet.TCPAddr{IP: ip, Port: sa.Port}
	case *windows.SockaddrInet6:
		ip := make(stdnet.IP, 16)
		copy(ip, sa.Addr[:])
		return &stdnet.TCPAddr{IP: ip, Port: sa.Port}
	default:
		return nil
	}
}
