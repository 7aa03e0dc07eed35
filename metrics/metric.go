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

// Package metrics provides runtime monitoring data for tpoll's polling
// loop: how often the kernel wait call returns, how many events it
// produces, and how often a Waker coalesces or an AFD poll is resubmitted.
// It is a good tool for diagnosing whether a Poll loop is spinning or
// starved.
package metrics

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// All metrics definitions.
const (
	// Select calls: the kernel wait call (epoll_wait/kevent/
	// GetQueuedCompletionStatusEx).
	SelectCalls = iota
	SelectTimeouts
	SelectEvents

	// Waker coalescing.
	WakerWakeCalls
	WakerCoalesced

	// Windows AFD-specific.
	AFDSubmits
	AFDResubmits

	// Registration traffic.
	RegisterCalls
	ReregisterCalls
	DeregisterCalls

	Max
)

var metricsArr [Max]atomic.Uint64

// Add adds delta to the named counter.
func Add(name int, delta uint64) {
	if name >= Max {
		return
	}
	metricsArr[name].Add(delta)
}

// Get returns one counter's current value.
func Get(name int) uint64 {
	if name >= Max {
		return 0
	}
	return metricsArr[name].Load()
}

// GetAll returns every counter's current value.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range metricsArr {
		m[i] = metricsArr[i].Load()
	}
	return m
}

// ShowMetricsOfPeriod shows metric info of duration d from now on. It
// blocks for d, then prints the delta.
func ShowMetricsOfPeriod(d time.Duration) {
	old := GetAll()
	<-time.After(d)
	latest := GetAll()
	var m [Max]uint64
	for i := range metricsArr {
		m[i] = latest[i] - old[i]
	}
	showAll(m)
}

// ShowMetrics prints current metric info to the console.
func ShowMetrics() {
	showAll(GetAll())
}

func showAll(m [Max]uint64) {
	fmt.Println("######### tpoll metrics (", time.Now().Format("2006-01-02 15:04:05"), ") ###########")
	fmt.Printf("%-59s: %d\n", "# number of Select calls", m[SelectCalls])
	fmt.Printf("%-59s: %d\n", "# number of Select calls that returned on timeout", m[SelectTimeouts])
	fmt.Printf("%-59s: %d\n", "# total number of events delivered", m[SelectEvents])
	if m[SelectCalls] > 0 {
		fmt.Printf("%-59s: %.2f\n", "# average events per Select call",
			float64(m[SelectEvents])/float64(m[SelectCalls]))
	}
	fmt.Printf("%-59s: %d\n", "# number of Waker.Wake calls", m[WakerWakeCalls])
	fmt.Printf("%-59s: %d\n", "# number of Waker.Wake calls coalesced into a pending wake", m[WakerCoalesced])
	fmt.Printf("%-59s: %d\n", "# number of AFD poll submissions", m[AFDSubmits])
	fmt.Printf("%-59s: %d\n", "# number of AFD poll resubmissions after a completion", m[AFDResubmits])
	fmt.Printf("%-59s: %d\n", "# number of Register calls", m[RegisterCalls])
	fmt.Printf("%-59s: %d\n", "# number of Reregister calls", m[ReregisterCalls])
	fmt.Printf("%-59s: %d\n", "# number of Deregister calls", m[DeregisterCalls])
	fmt.Printf("\n")
}
