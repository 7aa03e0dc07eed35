//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

package net_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/tpoll"
	tpnet "trpc.group/trpc-go/tpoll/net"
)

// TestReregisterBeforeTransitionObservesNewToken reregisters a Source with
// a new token before any event for it has ever been observed, and
// confirms the next transition is reported under the new token only —
// the old token must never appear, even though the underlying connect
// that triggers the event was already in flight at reregistration time.
func TestReregisterBeforeTransitionObservesNewToken(t *testing.T) {
	p, err := tpoll.New()
	require.NoError(t, err)
	defer p.Close()

	ln, err := tpnet.ListenTCP("tcp", "127.0.0.1:0", tpnet.Options{})
	require.NoError(t, err)
	defer ln.Close()
	require.NoError(t, p.Registry().Register(ln, tokenListener, tpoll.Readable()))

	cli, err := tpnet.DialTCP("tcp", ln.Addr().String(), tpnet.Options{})
	require.NoError(t, err)
	defer cli.Close()

	oldToken := tpoll.Token(10)
	newToken := tpoll.Token(11)
	require.NoError(t, p.Registry().Register(cli, oldToken, tpoll.Writable()))
	require.NoError(t, p.Registry().Reregister(cli, newToken, tpoll.Writable()))

	ev := waitReadable(t, p, newToken)
	assert.Equal(t, newToken, ev.Token())

	// Confirm the old token does not show up in the next poll.
	events := tpoll.NewEvents(8)
	timeout := 20 * time.Millisecond
	require.NoError(t, p.Poll(events, &timeout))
	for i := 0; i < events.Len(); i++ {
		assert.NotEqual(t, oldToken, events.Get(i).Token())
	}
}
