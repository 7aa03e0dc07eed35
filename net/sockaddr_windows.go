//go:build windows
// +build windows

package net

import (
	stdnet "net"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

func toSockaddr(ip stdnet.IP, port int) (int, windows.Sockaddr, error) {
	if v4 := ip.To4(); v4 != nil {
		var sa windows.SockaddrInet4
		copy(sa.Addr[:], v4)
		sa.Port = port
		return windows.AF_INET, &sa, nil
	}
	if ip == nil {
		var sa windows.SockaddrInet4
		sa.Port = port
		return windows.AF_INET, &sa, nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return 0, nil, errors.Errorf("invalid IP address %v", ip)
	}
	var sa windows.SockaddrInet6
	copy(sa.Addr[:], v6)
	sa.Port = port
	return windows.AF_INET6, &sa, nil
}
