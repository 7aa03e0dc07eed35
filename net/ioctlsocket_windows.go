//go:build windows
// +build windows

package net

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	ws2_32          = windows.NewLazySystemDLL("ws2_32.dll")
	procIoctlsocket = ws2_32.NewProc("ioctlsocket")
	procAccept      = ws2_32.NewProc("accept")
)

const fionbio = 0x8004667e

// setNonblock puts a Winsock socket into non-blocking mode, the
// ioctlsocket(FIONBIO) call the standard library itself uses internally
// for the sockets it creates.
func setNonblock(s windows.Handle) error {
	var mode uint32 = 1
	r, _, err := procIoctlsocket.Call(uintptr(s), uintptr(fionbio), uintptr(unsafe.Pointer(&mode)))
	if r != 0 {
		return err
	}
	return nil
}

// acceptRaw calls Winsock's accept() directly: golang.org/x/sys/windows's
// own Accept is an unimplemented stub (it always returns EWINDOWS), so
// sockets need this the same way AFD needs NtDeviceIoControlFile.
func acceptRaw(s windows.Handle) (windows.Handle, windows.RawSockaddrAny, error) {
	var rsa windows.RawSockaddrAny
	size := int32(unsafe.Sizeof(rsa))
	r, _, err := procAccept.Call(uintptr(s), uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&size)))
	if windows.Handle(r) == windows.InvalidHandle {
		return windows.InvalidHandle, rsa, err
	}
	return windows.Handle(r), rsa, nil
}
