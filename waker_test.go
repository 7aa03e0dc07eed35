package tpoll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/tpoll"
)

func TestWakerWakesBlockedPoll(t *testing.T) {
	p, err := tpoll.New()
	require.NoError(t, err)
	defer p.Close()

	w, err := tpoll.NewWaker(p.Registry(), tpoll.Token(7))
	require.NoError(t, err)
	defer w.Close()

	done := make(chan error, 1)
	go func() {
		events := tpoll.NewEvents(4)
		done <- p.Poll(events, nil)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, w.Wake())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Poll did not return after Wake")
	}
}

func TestWakerCoalescesRepeatedWakes(t *testing.T) {
	p, err := tpoll.New()
	require.NoError(t, err)
	defer p.Close()

	w, err := tpoll.NewWaker(p.Registry(), tpoll.Token(9))
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Wake())
	}

	events := tpoll.NewEvents(4)
	timeout := 200 * time.Millisecond
	require.NoError(t, p.Poll(events, &timeout))

	require.Equal(t, 1, events.Len())
	assert.Equal(t, tpoll.Token(9), events.Get(0).Token())

	// No further wake should be observed without another Wake call.
	events.Clear()
	short := 20 * time.Millisecond
	require.NoError(t, p.Poll(events, &short))
	assert.Equal(t, 0, events.Len())
}
