//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

package net_test

import (
	stdnet "net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/tpoll"
	tpnet "trpc.group/trpc-go/tpoll/net"
)

func TestUDPSendRecv(t *testing.T) {
	p, err := tpoll.New()
	require.NoError(t, err)
	defer p.Close()

	a, err := tpnet.ListenUDP("udp", "127.0.0.1:0", tpnet.Options{})
	require.NoError(t, err)
	defer a.Close()
	b, err := tpnet.ListenUDP("udp", "127.0.0.1:0", tpnet.Options{})
	require.NoError(t, err)
	defer b.Close()

	tokenA := tpoll.Token(1)
	require.NoError(t, p.Registry().Register(a, tokenA, tpoll.Readable()))

	bAddr := b.LocalAddr().(*stdnet.UDPAddr)
	msg := []byte("datagram")
	_, err = b.WriteTo(msg, &stdnet.UDPAddr{IP: stdnet.ParseIP("127.0.0.1"), Port: a.LocalAddr().(*stdnet.UDPAddr).Port})
	require.NoError(t, err)
	_ = bAddr

	ev := waitReadable(t, p, tokenA)
	assert.True(t, ev.IsReadable())

	buf := make([]byte, 32)
	n, from, err := a.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, msg, buf[:n])
	assert.NotNil(t, from)
}
