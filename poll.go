//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 THL A29 Limited, a Tencent company.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package tpoll

import (
	"time"

	"github.com/pkg/errors"

	"trpc.group/trpc-go/tpoll/internal/sys"
)

// Poll is the single-owner handle combining one platform Selector with
// the Registry used to register Sources against it. A Poll is meant to be
// driven by one goroutine calling Poll.Poll in a loop; other goroutines
// register concurrently through a cloned Registry (see Registry.Clone).
type Poll struct {
	sel sys.Selector
	reg *Registry
}

// New creates a Poll backed by the platform's native readiness facility
// (epoll on Linux, kqueue on BSD/Darwin, IOCP+AFD on Windows).
func New() (*Poll, error) {
	sel, err := sys.New()
	if err != nil {
		return nil, errors.Wrap(err, "tpoll: create selector")
	}
	return &Poll{sel: sel, reg: &Registry{sel: sel}}, nil
}

// Registry returns the Registry used to register Sources with this Poll.
// The returned Registry (and any clone of it) remains valid only for the
// lifetime of this Poll.
func (p *Poll) Registry() *Registry {
	return p.reg
}

// Poll blocks until at least one registered Source becomes ready, a Waker
// bound to this Poll is woken, or timeout elapses, filling events with up
// to its capacity worth of decoded Events. A nil timeout blocks
// indefinitely.
//
// Poll transparently retries an interrupted wait (EINTR) and never
// returns a timeout longer than an internal cap; a caller-requested
// longer timeout is served by looping internally, so Poll itself never
// reports a spurious empty timeout before the caller's deadline.
func (p *Poll) Poll(events *Events, timeout *time.Duration) error {
	events.Clear()
	if timeout == nil {
		n, err := p.sel.Select(events.slice(), nil)
		if err != nil {
			return errors.Wrap(err, "tpoll: poll")
		}
		events.setLen(n)
		return nil
	}

	deadline := time.Now().Add(*timeout)
	remaining := *timeout
	for {
		n, err := p.sel.Select(events.slice(), &remaining)
		if err != nil {
			return errors.Wrap(err, "tpoll: poll")
		}
		if n > 0 {
			events.setLen(n)
			return nil
		}
		remaining = time.Until(deadline)
		if remaining <= 0 {
			events.setLen(0)
			return nil
		}
	}
}

// Close releases the underlying kernel object. Any Source still
// registered, and any Waker still bound to this Poll, must not be used
// again afterward.
func (p *Poll) Close() error {
	return errors.Wrap(p.sel.Close(), "tpoll: close selector")
}
