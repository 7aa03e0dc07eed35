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

//go:build windows
// +build windows

// Package afd wraps the undocumented Windows Ancillary Function Driver
// (AFD) device, following the "wepoll" approach of polling sockets for
// readiness via IOCTL_AFD_POLL and surfacing completions through IOCP.
// There is no native readiness API for sockets on Windows; AFD is the
// layer the socket API itself sits on, and it is the only way to get
// edge-triggered readiness notifications without a dedicated thread per
// socket.
package afd

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Poll bit constants, matching AFD_POLL_* from the (undocumented) Windows
// Driver Kit headers, as used by wepoll and mirrored by this package.
const (
	PollReceive          = 0x0001
	PollReceiveExpedited = 0x0002 // out-of-band / priority data
	PollSend             = 0x0004
	PollDisconnect       = 0x0008 // graceful peer shutdown (read side)
	PollAbort            = 0x0010 // connection aborted
	PollLocalClose       = 0x0020 // socket closed locally
	PollConnect          = 0x0040
	PollAccept           = 0x0080
	PollConnectFail      = 0x0100
)

// ioctlAFDPoll is IOCTL_AFD_POLL, the device control code submitted via
// NtDeviceIoControlFile to arm a poll on one or more sockets.
const ioctlAFDPoll = 0x00012024

// devicePath is the kernel object name for the AFD device used for
// polling, as used by wepoll (`\Device\Afd\Mio`). Any name underneath
// `\Device\Afd\` works; the suffix is cosmetic.
const devicePath = `\Device\Afd\Mio`

// sioBaseHandle is SIO_BASE_HANDLE, the WSAIoctl code wepoll uses to peel
// a layered service provider (LSP) shim off a socket handle down to the
// base handle AFD can actually poll. IOC_OUT|IOC_WS2|34, matching the
// constant's definition in the Windows SDK's mswsock.h.
const sioBaseHandle = 0x40000000 | 0x08000000 | 34

// BaseHandle returns the base socket handle beneath any LSP installed on
// s (antivirus/firewall software commonly layers one over Winsock
// sockets), following wepoll's approach to the same problem. If the
// ioctl fails, s carries no LSP (or the provider doesn't support the
// query) and is itself the base handle already.
func BaseHandle(s windows.Handle) (windows.Handle, error) {
	var base windows.Handle
	var bytesReturned uint32
	err := windows.WSAIoctl(
		s, sioBaseHandle,
		nil, 0,
		(*byte)(unsafe.Pointer(&base)), uint32(unsafe.Sizeof(base)),
		&bytesReturned, nil, 0,
	)
	if err != nil {
		return s, err
	}
	return base, nil
}

// pollHandleInfo mirrors AFD_HANDLE_INFO: one socket handle plus the bits
// of interest and a field the kernel fills in with the union of bits that
// actually fired.
type pollHandleInfo struct {
	Handle        windows.Handle
	Events        uint32
	PollEvents    uint32 // out parameter: reused as Status for the zero-index entry on input is ignored
}

// pollInfo mirrors AFD_POLL_INFO: a timeout, a count, and one or more
// pollHandleInfo entries. tpoll only ever polls one socket per submission
// (one Device instance per registered source), matching the "each source
// owns its own poll block" design note.
type pollInfo struct {
	Timeout     int64
	HandleCount uint32
	Exclusive   uint32
	Handles     [1]pollHandleInfo
}

// Device is a handle to the AFD device, associated with one IOCP. One
// Device is shared by every socket a Selector polls.
type Device struct {
	mu     sync.Mutex
	handle windows.Handle
}

// Open opens the AFD device and associates it with iocp.
func Open(iocp windows.Handle) (*Device, error) {
	h, err := createFile(devicePath)
	if err != nil {
		return nil, err
	}
	if _, err := windows.CreateIoCompletionPort(h, iocp, 0, 0); err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	return &Device{handle: h}, nil
}

// Close closes the AFD device handle.
func (d *Device) Close() error {
	return windows.CloseHandle(d.handle)
}

// Block is one source's outstanding AFD poll submission. The source owns
// it (per the design note on AFD block ownership) so that Cancel can be
// called, and its completion observed, before the block is freed even if
// a completion is already in flight.
type Block struct {
	info       pollInfo
	overlapped windows.Overlapped
	socket     windows.Handle
	key        uintptr // completion key == the registration's Token
	lastEvents uint32
}

// Init (re-)initializes a Block, freshly allocated or recycled from a
// pool, for socket and key. Pool-recycled blocks carry stale state from
// their previous submission; Init clears it.
func (b *Block) Init(socket windows.Handle, key uintptr) {
	*b = Block{socket: socket, key: key}
}

// Submit arms (or re-arms) the poll for the given AFD event bits. Called
// once at registration and again after every completion so edge-triggered
// semantics are preserved: each transition requires a fresh submission to
// be observed.
func (d *Device) Submit(b *Block, events uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b.info = pollInfo{
		Timeout:     -1, // infinite; IOCP delivers cancellation via Cancel
		HandleCount: 1,
		Handles: [1]pollHandleInfo{{
			Handle: b.socket,
			Events: events,
		}},
	}
	b.overlapped = windows.Overlapped{}
	b.lastEvents = events

	return ntDeviceIoControlFile(
		d.handle,
		ioctlAFDPoll,
		unsafe.Pointer(&b.info), uint32(unsafe.Sizeof(b.info)),
		unsafe.Pointer(&b.info), uint32(unsafe.Sizeof(b.info)),
		&b.overlapped,
	)
}

// Cancel cancels an outstanding poll submission for b so its Block can be
// safely freed once the cancellation (or a racing completion) is
// observed.
func (d *Device) Cancel(b *Block) error {
	return windows.CancelIoEx(d.handle, &b.overlapped)
}

// Result decodes a completed Block's poll bits into readiness predicates.
// A POLL_ABORT completion (the special pending-abort status AFD reports
// for aborted connections) is surfaced as error+read-closed+write-closed
// regardless of the bits requested.
type Result struct {
	Readable, Writable, Error, ReadClosed, WriteClosed, Priority bool
}

func decodeBits(bits uint32) Result {
	var r Result
	if bits&(PollReceive|PollAccept) != 0 {
		r.Readable = true
	}
	if bits&PollReceiveExpedited != 0 {
		r.Readable = true
		r.Priority = true
	}
	if bits&(PollSend|PollConnect) != 0 {
		r.Writable = true
	}
	if bits&(PollDisconnect|PollAbort) != 0 {
		r.ReadClosed = true
	}
	if bits&(PollLocalClose|PollAbort) != 0 {
		r.WriteClosed = true
	}
	if bits&(PollConnectFail|PollAbort) != 0 {
		r.Error = true
	}
	if bits&PollAbort != 0 {
		r.Error, r.ReadClosed, r.WriteClosed = true, true, true
	}
	return r
}

// Decode reads the poll result bits out of a completed Block.
func (b *Block) Decode() Result {
	return decodeBits(b.info.Handles[0].PollEvents)
}

// Key returns the completion key (Token) the block was submitted with.
func (b *Block) Key() uintptr { return b.key }

// Socket returns the socket handle the block polls.
func (b *Block) Socket() windows.Handle { return b.socket }

// LastEvents returns the AFD bits the block was most recently submitted
// with, so a selector can re-arm it identically after each completion.
func (b *Block) LastEvents() uint32 { return b.lastEvents }

func createFile(path string) (windows.Handle, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	return windows.CreateFile(
		p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OVERLAPPED,
		0,
	)
}
