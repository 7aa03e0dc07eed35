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

// Package net provides raw, non-blocking network Sources for use with a
// tpoll.Poll: TCP/UDP/Unix sockets that implement tpoll.Source so callers
// can register them directly, without routing through the standard
// library's own runtime-integrated netpoller.
//
// Every type here is a thin wrapper around a raw socket. None of them
// buffer, frame or retry I/O: Read, Write, Accept and so on return
// immediately with whatever the kernel gives back, including EAGAIN, and
// it is the caller's job to wait for the next readiness Event before
// retrying. This mirrors tpoll's own no-I/O-ownership design.
package net
