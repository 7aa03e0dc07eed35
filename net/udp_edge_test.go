//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

package net_test

import (
	stdnet "net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/tpoll"
	tpnet "trpc.group/trpc-go/tpoll/net"
)

// TestUDPEdgeTriggeredNoRepeatWithoutNewTraffic confirms edge-triggered
// semantics: once a readable datagram has been drained, polling again
// with no further traffic reports zero events for that token, rather
// than repeating the already-observed readiness the way a level-triggered
// selector would.
func TestUDPEdgeTriggeredNoRepeatWithoutNewTraffic(t *testing.T) {
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

	aAddr := a.LocalAddr().(*stdnet.UDPAddr)
	msg := []byte("datagram")
	_, err = b.WriteTo(msg, &stdnet.UDPAddr{IP: stdnet.ParseIP("127.0.0.1"), Port: aAddr.Port})
	require.NoError(t, err)

	ev := waitReadable(t, p, tokenA)
	assert.True(t, ev.IsReadable())

	buf := make([]byte, 32)
	n, _, err := a.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, msg, buf[:n])

	// No new traffic since the drain above: a short poll must see nothing.
	events := tpoll.NewEvents(8)
	timeout := 20 * time.Millisecond
	require.NoError(t, p.Poll(events, &timeout))
	assert.Equal(t, 0, events.Len())
}
