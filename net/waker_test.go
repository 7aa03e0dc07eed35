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

// TestWakeUnblocksPollWaitingOnSockets exercises a Waker registered
// alongside real TCP sources, confirming a wake from another goroutine is
// observed without requiring any socket activity.
func TestWakeUnblocksPollWaitingOnSockets(t *testing.T) {
	p, err := tpoll.New()
	require.NoError(t, err)
	defer p.Close()

	ln, err := tpnet.ListenTCP("tcp", "127.0.0.1:0", tpnet.Options{})
	require.NoError(t, err)
	defer ln.Close()
	require.NoError(t, p.Registry().Register(ln, tokenListener, tpoll.Readable()))

	wakeToken := tpoll.Token(99)
	w, err := tpoll.NewWaker(p.Registry(), wakeToken)
	require.NoError(t, err)
	defer w.Close()

	done := make(chan tpoll.Event, 1)
	go func() {
		events := tpoll.NewEvents(8)
		_ = p.Poll(events, nil)
		for i := 0; i < events.Len(); i++ {
			if events.Get(i).Token() == wakeToken {
				done <- events.Get(i)
				return
			}
		}
		done <- tpoll.Event{}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, w.Wake())

	select {
	case ev := <-done:
		assert.Equal(t, wakeToken, ev.Token())
	case <-time.After(time.Second):
		t.Fatal("wake was not observed")
	}
}
