package tpoll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"trpc.group/trpc-go/tpoll"
)

func TestPollReadable(t *testing.T) {
	p, err := tpoll.New()
	require.NoError(t, err)
	defer p.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	src := tpoll.NewFD(fds[0])
	require.NoError(t, p.Registry().Register(src, tpoll.Token(42), tpoll.Readable()))

	_, err = unix.Write(fds[1], []byte("hi"))
	require.NoError(t, err)

	events := tpoll.NewEvents(8)
	timeout := time.Second
	require.NoError(t, p.Poll(events, &timeout))

	require.Equal(t, 1, events.Len())
	ev := events.Get(0)
	assert.Equal(t, tpoll.Token(42), ev.Token())
	assert.True(t, ev.IsReadable())
}

func TestPollTimeoutElapsesWithNoEvents(t *testing.T) {
	p, err := tpoll.New()
	require.NoError(t, err)
	defer p.Close()

	events := tpoll.NewEvents(1)
	start := time.Now()
	timeout := 30 * time.Millisecond
	require.NoError(t, p.Poll(events, &timeout))
	elapsed := time.Since(start)

	assert.Equal(t, 0, events.Len())
	assert.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestPollZeroEventsBufferNeverAllocatesBeyondCapacity(t *testing.T) {
	p, err := tpoll.New()
	require.NoError(t, err)
	defer p.Close()

	events := tpoll.NewEvents(2)
	assert.Equal(t, 2, events.Capacity())
	timeout := 5 * time.Millisecond
	require.NoError(t, p.Poll(events, &timeout))
	assert.Equal(t, 0, events.Len())
}
