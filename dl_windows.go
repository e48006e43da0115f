//go:build windows

package libmain

import (
	"errors"

	"github.com/ebitengine/purego"
)

var errUnsupported = errors.New("dlopen is not supported on windows")

type dlLinker struct{}

func NewLinker() Linker {
	return dlLinker{}
}

func (dlLinker) Open(path string) (Library, error) {
	return nil, errUnsupported
}

func NativeCall(fn uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}
