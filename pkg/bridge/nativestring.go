package bridge

// nativeString owns a char* returned by the native side. The pointer must be
// handed back to the native free function exactly once.
type nativeString struct {
	ptr      uintptr
	free     func(uintptr)
	released bool
}

func newNativeString(ptr uintptr, free func(uintptr)) *nativeString {
	return &nativeString{ptr: ptr, free: free}
}

// absent reports a null pointer, which the native side uses for "not found"
func (s *nativeString) absent() bool {
	return s.ptr == 0
}

// consume copies the string into Go memory and releases the native buffer.
// The buffer is released even if copying panics.
func (s *nativeString) consume() string {
	defer s.release()
	return cStringAt(s.ptr)
}

func (s *nativeString) release() {
	if s.released || s.ptr == 0 {
		return
	}
	s.released = true
	s.free(s.ptr)
	s.ptr = 0
}
