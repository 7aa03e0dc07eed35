package sys

import "trpc.group/trpc-go/tpoll/internal/lock"

// fdTable tracks which file descriptors are currently registered with a
// Selector. The kernel back-ends disagree on whether a duplicate Register
// or a Reregister/Deregister of an absent fd errors (kqueue's EV_ADD is
// idempotent and never reports EEXIST; epoll's EPOLL_CTL_ADD does), so
// tpoll enforces the documented Register/Reregister/Deregister error contract
// itself rather than relying on divergent kernel errno behavior.
type fdTable struct {
	mu   lock.Spin
	fds  map[int]struct{}
}

func newFDTable() *fdTable {
	return &fdTable{fds: make(map[int]struct{})}
}

// add records fd as registered, reporting false if it was already present.
func (t *fdTable) add(fd int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.fds[fd]; ok {
		return false
	}
	t.fds[fd] = struct{}{}
	return true
}

// has reports whether fd is currently registered.
func (t *fdTable) has(fd int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.fds[fd]
	return ok
}

// remove drops fd from the table, reporting false if it was not present.
func (t *fdTable) remove(fd int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.fds[fd]; !ok {
		return false
	}
	delete(t.fds, fd)
	return true
}
