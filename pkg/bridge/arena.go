package bridge

import (
	"errors"
	"runtime"
	"strings"
	"unsafe"
)

// ErrEmbeddedNUL is returned when a string argument cannot be represented as a
// C string
var ErrEmbeddedNUL = errors.New("string contains NUL byte")

// arena holds the memory handed to native code for the duration of one call.
// Buffers are pinned so the collector never moves or frees them while native
// code may read them. An arena belongs to the goroutine that created it.
type arena struct {
	pinner runtime.Pinner
	bufs   [][]uint64
	closed bool
}

func newArena() *arena {
	return &arena{}
}

// alloc returns size zeroed bytes, 8-byte aligned, pinned until Close
func (a *arena) alloc(size uintptr) []byte {
	if a.closed {
		panic("bridge: allocation from closed arena")
	}
	words := make([]uint64, (size+7)/8)
	a.pinner.Pin(&words[0])
	a.bufs = append(a.bufs, words)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
}

// allocLayout allocates room for one struct of the given layout
func (a *arena) allocLayout(l structLayout) []byte {
	if l.align > 8 {
		panic("bridge: arena cannot satisfy alignment of " + l.name)
	}
	return a.alloc(l.size)
}

// cstring copies s into the arena with a trailing NUL and returns its address
func (a *arena) cstring(s string) (uintptr, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return 0, ErrEmbeddedNUL
	}
	buf := a.alloc(uintptr(len(s)) + 1)
	copy(buf, s)
	return addressOf(buf), nil
}


// Close unpins every buffer. Safe to call more than once.
func (a *arena) Close() {
	if a.closed {
		return
	}
	a.pinner.Unpin()
	a.bufs = nil
	a.closed = true
}

func addressOf(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

// cStringAt copies the NUL-terminated string at p into Go memory
func cStringAt(p uintptr) string {
	if p == 0 {
		return ""
	}
	start := unsafe.Pointer(p)
	n := 0
	for *(*byte)(unsafe.Add(start, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(start), n))
}

func pointerOf(buf []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(buf))
}
