//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

package net

import (
	stdnet "net"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"trpc.group/trpc-go/tpoll/internal/netutil"
)

// toSockaddr builds a unix.Sockaddr (and the address family to create the
// socket with) for ip/port/zone, picking IPv4 or IPv6 the way
// net.ResolveTCPAddr/ResolveUDPAddr leave it on the parsed address.
func toSockaddr(ip stdnet.IP, port int, zone string) (int, unix.Sockaddr, error) {
	if v4 := ip.To4(); v4 != nil && ip.To16() != nil && len(v4) == 4 && ip.Equal(stdnet.IP(v4)) {
		var sa unix.SockaddrInet4
		copy(sa.Addr[:], v4)
		sa.Port = port
		return unix.AF_INET, &sa, nil
	}
	if ip == nil {
		var sa unix.SockaddrInet4
		sa.Port = port
		return unix.AF_INET, &sa, nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return 0, nil, errors.Errorf("invalid IP address %v", ip)
	}
	var sa unix.SockaddrInet6
	copy(sa.Addr[:], v6)
	sa.Port = port
	if zone != "" {
		zoneID, err := netutil.StringToZoneID(zone)
		if err != nil {
			return 0, nil, err
		}
		sa.ZoneId = zoneID
	}
	return unix.AF_INET6, &sa, nil
}
