//go:build android

package main

// #include <stdlib.h>
// #include "jni_helpers.h"
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"go.yuchanns.xyz/libmain"
)

var (
	errNoActivity     = errors.New("UnityPlayer.currentActivity unavailable")
	errStorageManager = errors.New("Environment.isExternalStorageManager() failed")
	errStartActivity  = errors.New("Activity.startActivity() failed")
	errNoJavaVM       = errors.New("GetJavaVM failed")
)

// jniHost implements libmain.Host on top of the JNIEnv of the calling thread.
type jniHost struct {
	env *C.JNIEnv
}

func newHost(env *C.JNIEnv) *jniHost {
	return &jniHost{env: env}
}

func (h *jniHost) Env() uintptr {
	return uintptr(unsafe.Pointer(h.env))
}

func (h *jniHost) JavaVM() (uintptr, error) {
	var vm *C.JavaVM
	if C.lm_get_java_vm(h.env, &vm) < 0 || vm == nil {
		return 0, errNoJavaVM
	}
	return uintptr(unsafe.Pointer(vm)), nil
}

func (h *jniHost) RegisterNatives() error {
	if ret := C.lm_register_natives(h.env); ret < 0 {
		return fmt.Errorf("RegisterNatives returned %d", int(ret))
	}
	return nil
}

func (h *jniHost) ApplicationDirs() (filesDir, externalDir string, err error) {
	var files, external *C.char
	if failed := C.lm_application_dirs(h.env, &files, &external); failed != nil {
		return "", "", fmt.Errorf("lookup of %s failed", C.GoString(failed))
	}
	defer C.free(unsafe.Pointer(files))
	defer C.free(unsafe.Pointer(external))
	return C.GoString(files), C.GoString(external), nil
}

func (h *jniHost) CurrentActivity() (libmain.Activity, error) {
	activity := C.lm_current_activity(h.env)
	if activity == nil {
		return 0, errNoActivity
	}
	return libmain.Activity(uintptr(unsafe.Pointer(activity))), nil
}

func (h *jniHost) IsExternalStorageManager() (bool, error) {
	switch C.lm_is_external_storage_manager(h.env) {
	case 1:
		return true, nil
	case 0:
		return false, nil
	}
	return false, errStorageManager
}

func (h *jniHost) RequestAllFilesAccess(activity libmain.Activity, appID string) error {
	id := C.CString(appID)
	defer C.free(unsafe.Pointer(id))
	if C.lm_request_all_files_access(h.env, C.jobject(unsafe.Pointer(uintptr(activity))), id) != 0 {
		return errStartActivity
	}
	return nil
}
