//go:build android

// Command libmain builds the replacement libmain.so:
//
//	CGO_ENABLED=1 GOOS=android GOARCH=arm64 go build -buildmode=c-shared -o libmain.so ./cmd/libmain
package main

// #cgo LDFLAGS: -llog
// #include <stdlib.h>
// #include "jni_helpers.h"
import "C"

import (
	"unsafe"

	"github.com/phuslu/log"
	"go.yuchanns.xyz/libmain"
)

var loader *libmain.Loader

func init() {
	config, err := libmain.LoadConfig()
	setupLogger(config)
	if err != nil {
		log.Error().Msgf("Invalid configuration, using defaults: %v", err)
		config = libmain.DefaultConfig()
	}
	loader = libmain.NewLoader(config, libmain.NewLinker(), libmain.NativeCall)
}

//export JNI_OnLoad
func JNI_OnLoad(vm *C.JavaVM, reserved unsafe.Pointer) C.jint {
	env := C.lm_get_env(vm)
	if env == nil {
		log.Error().Msgf("Could not attach to the Java VM")
		return C.JNI_ERR
	}
	if !abortOnFatal(env, loader.OnLoad(newHost(env))) {
		return C.JNI_ERR
	}
	return C.JNI_VERSION_1_6
}

//export JNI_OnUnload
func JNI_OnUnload(vm *C.JavaVM, reserved unsafe.Pointer) {
	loader.OnUnload(uintptr(unsafe.Pointer(vm)))
}

//export libmainNativeLoad
func libmainNativeLoad(env *C.JNIEnv, klass C.jobject, path C.jstring) C.jboolean {
	chars := C.lm_string_chars(env, path)
	if chars == nil {
		log.Error().Msgf("NativeLoader.load called without a path")
		return C.JNI_FALSE
	}
	dir := C.GoString(chars)
	C.free(unsafe.Pointer(chars))

	ok, err := loader.Load(newHost(env), dir)
	if !abortOnFatal(env, err) || !ok {
		return C.JNI_FALSE
	}
	return C.JNI_TRUE
}

//export libmainNativeUnload
func libmainNativeUnload(env *C.JNIEnv, klass C.jobject) C.jboolean {
	ok, err := loader.Unload(newHost(env))
	if !abortOnFatal(env, err) || !ok {
		return C.JNI_FALSE
	}
	return C.JNI_TRUE
}

// abortOnFatal hands a host-fatal error to the VM, which does not return.
// It reports whether the caller may continue.
func abortOnFatal(env *C.JNIEnv, err error) bool {
	if err == nil {
		return true
	}
	fe, ok := libmain.AsFatal(err)
	if !ok {
		log.Error().Msgf("%v", err)
		return false
	}
	msg := C.CString(fe.Msg)
	defer C.free(unsafe.Pointer(msg))
	C.lm_fatal_error(env, msg)
	return false
}

func main() {}
