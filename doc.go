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

// Package tpoll is a thin, low-overhead readiness-polling engine.
//
// It unifies Linux epoll, BSD/Darwin kqueue and Windows IOCP+AFD behind a
// single API: register a heterogeneous set of I/O sources with a Poll,
// then block on it to learn which sources became readable, writable or
// closed. The package performs no file I/O of its own and owns no
// connection-level state; callers do the actual read/write/accept/connect
// system calls once they are told a source is ready.
package tpoll
