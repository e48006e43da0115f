//go:build !windows

package libmain

import (
	"github.com/ebitengine/purego"
)

type dlLinker struct{}

// NewLinker returns a Linker backed by the system dynamic linker.
func NewLinker() Linker {
	return dlLinker{}
}

func (dlLinker) Open(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_LAZY)
	if err != nil {
		return nil, err
	}
	return &dlLibrary{handle: handle, name: path}, nil
}

type dlLibrary struct {
	handle uintptr
	name   string
}

func (lib *dlLibrary) Handle() uintptr {
	return lib.handle
}

func (lib *dlLibrary) Lookup(name string) (uintptr, bool) {
	if lib.handle == 0 {
		return 0, false
	}
	addr, err := purego.Dlsym(lib.handle, name)
	if err != nil || addr == 0 {
		return 0, false
	}
	return addr, true
}

func (lib *dlLibrary) Close() error {
	if lib.handle == 0 {
		return nil
	}
	err := purego.Dlclose(lib.handle)
	lib.handle = 0
	return err
}

// NativeCall invokes fn through the C calling convention.
func NativeCall(fn uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}
