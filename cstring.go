package libmain

import (
	"unsafe"

	"github.com/smasher164/mem"
)

// cstrings owns NUL-terminated copies of Go strings outside the Go heap so
// they can be handed to native code.
type cstrings []unsafe.Pointer

func (cs *cstrings) add(s string) uintptr {
	ptr := mem.Alloc(uint(len(s) + 1))
	buf := unsafe.Slice((*byte)(ptr), len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0
	*cs = append(*cs, ptr)
	return uintptr(ptr)
}

func (cs *cstrings) free() {
	for _, ptr := range *cs {
		mem.Free(ptr)
	}
	*cs = nil
}
