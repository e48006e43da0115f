//go:build android

package main

// #include <stdlib.h>
// #include "jni_helpers.h"
import "C"

import (
	"bytes"
	"unsafe"

	"github.com/phuslu/log"
	"go.yuchanns.xyz/libmain"
)

const logTag = "libmain - patched"

// android/log.h priorities.
const (
	androidLogVerbose = 2
	androidLogDebug   = 3
	androidLogInfo    = 4
	androidLogWarn    = 5
	androidLogError   = 6
)

var levelPriorities = []struct {
	key  []byte
	prio C.int
}{
	{[]byte(`"level":"trace"`), androidLogVerbose},
	{[]byte(`"level":"debug"`), androidLogDebug},
	{[]byte(`"level":"info"`), androidLogInfo},
	{[]byte(`"level":"warn"`), androidLogWarn},
	{[]byte(`"level":"error"`), androidLogError},
}

// logcatWriter forwards each JSON log line to logcat under logTag.
type logcatWriter struct{}

func (logcatWriter) Write(p []byte) (int, error) {
	prio := C.int(androidLogInfo)
	for _, lp := range levelPriorities {
		if bytes.Contains(p, lp.key) {
			prio = lp.prio
			break
		}
	}
	tag := C.CString(logTag)
	defer C.free(unsafe.Pointer(tag))
	msg := C.CString(string(bytes.TrimRight(p, "\n")))
	defer C.free(unsafe.Pointer(msg))
	C.lm_log_write(prio, tag, msg)
	return len(p), nil
}

func setupLogger(config *libmain.Config) {
	log.DefaultLogger.Writer = &log.IOWriter{Writer: logcatWriter{}}
	level := log.DebugLevel
	if config != nil && config.LogLevel != "" {
		level = log.ParseLevel(config.LogLevel)
	}
	log.DefaultLogger.SetLevel(level)
}
