package tpoll

import "trpc.group/trpc-go/tpoll/internal/sys"

// Interest is a non-empty set over {readable, writable, priority, aio, lio}.
// Platforms lacking a category silently accept it but never deliver it.
// Interest is mutable via Reregister; Deregister clears it.
type Interest uint8

// Interest constructors. Combine with Add, strip with Remove.
const (
	interestReadable Interest = 1 << iota
	interestWritable
	interestPriority
	interestAio
	interestLio
)

// Readable returns an Interest set containing only readable.
func Readable() Interest { return interestReadable }

// Writable returns an Interest set containing only writable.
func Writable() Interest { return interestWritable }

// Priority returns an Interest set containing only priority (out-of-band data).
func Priority() Interest { return interestPriority }

// Aio returns an Interest set containing only the AIO category.
func Aio() Interest { return interestAio }

// Lio returns an Interest set containing only the LIO category.
func Lio() Interest { return interestLio }

// Add returns the union of i and o.
func (i Interest) Add(o Interest) Interest { return i | o }

// Remove returns i with the bits of o cleared.
func (i Interest) Remove(o Interest) Interest { return i &^ o }

// IsEmpty reports whether the set contains no interest category.
func (i Interest) IsEmpty() bool { return i == 0 }

// IsReadable reports whether the set contains readable.
func (i Interest) IsReadable() bool { return i&interestReadable != 0 }

// IsWritable reports whether the set contains writable.
func (i Interest) IsWritable() bool { return i&interestWritable != 0 }

// IsPriority reports whether the set contains priority.
func (i Interest) IsPriority() bool { return i&interestPriority != 0 }

// IsAio reports whether the set contains the AIO category.
func (i Interest) IsAio() bool { return i&interestAio != 0 }

// IsLio reports whether the set contains the LIO category.
func (i Interest) IsLio() bool { return i&interestLio != 0 }

// sys converts the public Interest bitset into the internal/sys
// representation passed down to the platform Selector. The two types share
// bit layout by construction, kept separate so the selector package never
// imports the public surface.
func (i Interest) sys() sys.Interest {
	var o sys.Interest
	if i.IsReadable() {
		o |= sys.Readable
	}
	if i.IsWritable() {
		o |= sys.Writable
	}
	if i.IsPriority() {
		o |= sys.Priority
	}
	if i.IsAio() {
		o |= sys.Aio
	}
	if i.IsLio() {
		o |= sys.Lio
	}
	return o
}
