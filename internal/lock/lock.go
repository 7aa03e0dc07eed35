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

// Package lock provides the minimal spinlock used to protect selector
// bookkeeping (the registered-fd table, the epoll back-end's waker table)
// that is never held across a syscall.
package lock

import (
	"runtime"
	"sync/atomic"
)

const (
	unlocked = 0
	locked   = 1
)

// Spin is a spinlock exclusion lock. The zero value is unlocked.
type Spin uint32

// Lock locks l, spinning (yielding the P) until it becomes available.
func (l *Spin) Lock() {
	for !atomic.CompareAndSwapUint32((*uint32)(l), unlocked, locked) {
		runtime.Gosched()
	}
}

// Unlock unlocks l. A locked Spin is not associated with any goroutine: any
// goroutine may unlock it.
func (l *Spin) Unlock() {
	atomic.StoreUint32((*uint32)(l), unlocked)
}

// TryLock attempts to lock l without blocking, reporting success.
func (l *Spin) TryLock() bool {
	return atomic.CompareAndSwapUint32((*uint32)(l), unlocked, locked)
}
