//go:build windows
// +build windows

package net

import (
	stdnet "net"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"trpc.group/trpc-go/tpoll"
)

// TCPStream is a non-blocking TCP connection implementing tpoll.Source on
// Windows.
type TCPStream struct {
	*tpoll.FD
	raddr stdnet.Addr
}

// DialTCP begins a non-blocking connect to addr. As on the Unix back-
// ends, the caller must wait for the first writable Event and check
// SocketError before treating the connection as established.
func DialTCP(network, addr string, opts Options) (*TCPStream, error) {
	raddr, err := stdnet.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve tcp addr")
	}
	family, sa, err := toSockaddr(raddr.IP, raddr.Port)
	if err != nil {
		return nil, errors.Wrap(err, "build sockaddr")
	}
	h, err := windows.Socket(family, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}
	if opts.NoDelay {
		windows.SetsockoptInt(h, windows.IPPROTO_TCP, windows.TCP_NODELAY, 1)
	}
	if err := setNonblock(h); err != nil {
		windows.Closesocket(h)
		return nil, errors.Wrap(err, "ioctlsocket FIONBIO")
	}
	err = windows.Connect(h, sa)
	if err != nil && err != windows.WSAEWOULDBLOCK {
		windows.Closesocket(h)
		return nil, errors.Wrap(err, "connect")
	}
	return &TCPStream{FD: tpoll.NewFD(int(h)), raddr: raddr}, nil
}

// Read reads into b without blocking.
func (s *TCPStream) Read(b []byte) (int, error) {
	n, err := windows.Read(windows.Handle(s.Fd()), b)
	if err != nil {
		return 0, errors.Wrap(err, "read")
	}
	return n, nil
}

// Write writes b without blocking.
func (s *TCPStream) Write(b []byte) (int, error) {
	n, err := windows.Write(windows.Handle(s.Fd()), b)
	if err != nil {
		return 0, errors.Wrap(err, "write")
	}
	return n, nil
}

// SocketError returns and clears the pending SO_ERROR.
func (s *TCPStream) SocketError() error {
	errno, err := windows.GetsockoptInt(windows.Handle(s.Fd()), windows.SOL_SOCKET, windows.SO_ERROR)
	if err != nil {
		return errors.Wrap(err, "getsockopt SO_ERROR")
	}
	if errno != 0 {
		return windows.Errno(errno)
	}
	return nil
}

// RemoteAddr returns the address the stream is connected to.
func (s *TCPStream) RemoteAddr() stdnet.Addr { return s.raddr }

// Close closes the stream.
func (s *TCPStream) Close() error {
	if !s.MarkClosed() {
		return nil
	}
	return windows.Closesocket(windows.Handle(s.Fd()))
}
