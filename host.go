// Package libmain stands in for the engine's own native loader. It stages an
// optional modloader library from shared storage, opens it ahead of the
// engine, and forwards the engine's load and unload to it.
package libmain

import (
	"errors"
	"fmt"
)

// Activity is a JNI reference to the foreground activity.
type Activity uintptr

// Host is the slice of the Java runtime the loader needs. Implementations
// describe and clear any pending Java exception before returning an error.
type Host interface {
	// Env is the raw JNIEnv pointer of the calling thread.
	Env() uintptr
	JavaVM() (uintptr, error)
	RegisterNatives() error
	// ApplicationDirs returns the absolute private files dir and external
	// files dir of the current application.
	ApplicationDirs() (filesDir, externalDir string, err error)
	CurrentActivity() (Activity, error)
	IsExternalStorageManager() (bool, error)
	RequestAllFilesAccess(activity Activity, appID string) error
}

// Library is an opened native library.
type Library interface {
	Handle() uintptr
	// Lookup resolves an exported symbol. Absence is not an error.
	Lookup(name string) (uintptr, bool)
	Close() error
}

type Linker interface {
	Open(path string) (Library, error)
}

// Invoker calls the native function at fn with integer-class arguments.
type Invoker func(fn uintptr, args ...uintptr) uintptr

var (
	ErrDirLookup       = errors.New("directory lookup failed")
	ErrNoApplicationID = errors.New("application id unavailable")
	ErrNoModloader     = errors.New("no loadable modloader")
)

const (
	nativeLoaderClass = "com/unity3d/player/NativeLoader"

	msgNoJavaVM           = "Unable to retrieve Java VM"
	msgUnsupportedVersion = "Unsupported VM version"
)

// FatalError is a failure the host cannot recover from. The JNI boundary
// must pass Msg to JNIEnv->FatalError and stop the current call.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s", e.Msg)
}

func fatalf(format string, args ...any) *FatalError {
	return &FatalError{Msg: fmt.Sprintf(format, args...)}
}
