//go:build windows
// +build windows

package afd

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	ntdll                     = windows.NewLazySystemDLL("ntdll.dll")
	procNtDeviceIoControlFile = ntdll.NewProc("NtDeviceIoControlFile")
)

// ntDeviceIoControlFile submits an asynchronous IOCTL through the
// undocumented NtDeviceIoControlFile entry point, the same call wepoll
// uses to drive AFD_POLL. STATUS_PENDING is the expected, successful
// return for an overlapped submission; the real result arrives later as
// an IOCP completion packet.
func ntDeviceIoControlFile(
	handle windows.Handle,
	ioControlCode uint32,
	inBuffer unsafe.Pointer, inBufferLen uint32,
	outBuffer unsafe.Pointer, outBufferLen uint32,
	overlapped *windows.Overlapped,
) error {
	var ioStatusBlock struct {
		Status, Information uintptr
	}
	r0, _, _ := procNtDeviceIoControlFile.Call(
		uintptr(handle),
		0, // event
		0, // apc routine
		0, // apc context
		uintptr(unsafe.Pointer(overlapped)),
		uintptr(unsafe.Pointer(&ioStatusBlock)),
		uintptr(ioControlCode),
		uintptr(inBuffer), uintptr(inBufferLen),
		uintptr(outBuffer), uintptr(outBufferLen),
	)
	const statusPending = 0x00000103
	status := uint32(r0)
	if status != 0 && status != statusPending {
		return windows.NTStatus(status).Errno()
	}
	return nil
}
