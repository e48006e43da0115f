//go:build !windows

package libmain

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const (
	testAppID  = "com.example.game"
	testEnv    = uintptr(0xe0)
	testVM     = uintptr(0xf0)
	addrPre    = uintptr(0x10)
	addrLoad   = uintptr(0x20)
	addrAccept = uintptr(0x30)
	addrUnload = uintptr(0x40)
	addrOnLoad = uintptr(0x50)
	addrOnUnld = uintptr(0x60)
)

type fakeHost struct {
	vmErr       error
	registerErr error
	filesDir    string
	externalDir string
	dirsErr     error
	activity    Activity
	activityErr error
	// grantAfter is how many checks report "not granted"; negative never grants.
	grantAfter int
	checkErr   error
	requestErr error

	checks    int
	requested []string
}

func (h *fakeHost) Env() uintptr { return testEnv }

func (h *fakeHost) JavaVM() (uintptr, error) {
	if h.vmErr != nil {
		return 0, h.vmErr
	}
	return testVM, nil
}

func (h *fakeHost) RegisterNatives() error { return h.registerErr }

func (h *fakeHost) ApplicationDirs() (string, string, error) {
	if h.dirsErr != nil {
		return "", "", h.dirsErr
	}
	return h.filesDir, h.externalDir, nil
}

func (h *fakeHost) CurrentActivity() (Activity, error) {
	if h.activityErr != nil {
		return 0, h.activityErr
	}
	return h.activity, nil
}

func (h *fakeHost) IsExternalStorageManager() (bool, error) {
	h.checks++
	if h.checkErr != nil {
		return false, h.checkErr
	}
	return h.grantAfter >= 0 && h.checks > h.grantAfter, nil
}

func (h *fakeHost) RequestAllFilesAccess(activity Activity, appID string) error {
	if h.requestErr != nil {
		return h.requestErr
	}
	h.requested = append(h.requested, appID)
	return nil
}

type fakeLibrary struct {
	handle   uintptr
	symbols  map[string]uintptr
	closeErr error
	closes   int
}

func (lib *fakeLibrary) Handle() uintptr { return lib.handle }

func (lib *fakeLibrary) Lookup(name string) (uintptr, bool) {
	addr, ok := lib.symbols[name]
	return addr, ok
}

func (lib *fakeLibrary) Close() error {
	lib.closes++
	return lib.closeErr
}

// fakeLinker opens the libraries registered by path. With staged set it
// also opens any existing file whose base name is not rejected.
type fakeLinker struct {
	mu     sync.Mutex
	libs   map[string]*fakeLibrary
	staged bool
	reject map[string]bool
	opened []string
}

func (l *fakeLinker) Open(path string) (Library, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, path)
	if l.reject[filepath.Base(path)] {
		return nil, fmt.Errorf("dlopen failed: %q is corrupt", path)
	}
	if lib, ok := l.libs[path]; ok {
		return lib, nil
	}
	if l.staged {
		if _, err := os.Stat(path); err == nil {
			return &fakeLibrary{handle: uintptr(len(l.opened))}, nil
		}
	}
	return nil, fmt.Errorf("dlopen failed: library %q not found", path)
}

func (l *fakeLinker) openCount(path string) (n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.opened {
		if p == path {
			n++
		}
	}
	return
}

type nativeCall struct {
	fn   uintptr
	args []uintptr
	strs []string
}

// recorder stands in for native code. C string arguments are decoded while
// they are still alive. Entry points listed in panics record the call and
// then panic.
type recorder struct {
	mu     sync.Mutex
	calls  []nativeCall
	ret    map[uintptr]uintptr
	panics map[uintptr]bool
}

func (r *recorder) invoke(fn uintptr, args ...uintptr) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := nativeCall{fn: fn, args: append([]uintptr(nil), args...)}
	switch fn {
	case addrPre, addrLoad:
		for _, a := range args[1:] {
			c.strs = append(c.strs, goString(a))
		}
	}
	r.calls = append(r.calls, c)
	if r.panics[fn] {
		panic(fmt.Sprintf("native entry %#x crashed", fn))
	}
	return r.ret[fn]
}

func (r *recorder) callsTo(fn uintptr) (out []nativeCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.fn == fn {
			out = append(out, c)
		}
	}
	return
}

// goString reads a C string handed over as an integer argument. The memory
// comes from mem.Alloc, outside the Go heap, and is freed only after the call
// returns.
func goString(p uintptr) string {
	ptr := *(*unsafe.Pointer)(unsafe.Pointer(&p))
	return unix.BytePtrToString((*byte)(ptr))
}

func modloaderSymbols() map[string]uintptr {
	return map[string]uintptr{
		symPreload:           addrPre,
		symLoad:              addrLoad,
		symAcceptUnityHandle: addrAccept,
		symUnload:            addrUnload,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
