package libmain

import (
	"slices"

	"github.com/phuslu/log"
)

// Entry points a modloader may export. All of them are optional and are
// declared noexcept on the native side.
const (
	symPreload           = "modloader_preload"
	symLoad              = "modloader_load"
	symAcceptUnityHandle = "modloader_accept_unity_handle"
	symUnload            = "modloader_unload"
)

var lifecycleSymbols = []string{symPreload, symLoad, symAcceptUnityHandle, symUnload}

// LifecycleSymbols lists the modloader entry points in the order they run.
func LifecycleSymbols() []string {
	return slices.Clone(lifecycleSymbols)
}

type (
	// preloadFunc runs once the modloader is open, before the engine. The
	// strings only live for the duration of the call.
	preloadFunc func(env uintptr, appID, modloaderPath, sourcePath, filesDir, externalDir string)
	// loadFunc runs right before the engine is opened.
	loadFunc func(env uintptr, soDir string)
	// acceptHandleFunc receives the engine's dlopen handle.
	acceptHandleFunc func(env uintptr, engine uintptr)
	// unloadFunc runs during teardown.
	unloadFunc func(vm uintptr)
)

// modloader dispatches lifecycle phases to the opened modloader library.
// A nil lib is the normal "no modloader" state.
type modloader struct {
	lib      Library
	path     string
	invoke   Invoker
	unloaded bool
}

func (m *modloader) loaded() bool {
	return m.lib != nil
}

// bind resolves name and wraps the raw address into a typed entry point.
func bind[F any](m *modloader, name string, wrap func(addr uintptr) F) (f F, ok bool) {
	if m.lib == nil {
		log.Warn().Msgf("Modloader not loaded, skipping %s", name)
		return
	}
	addr, ok := m.lib.Lookup(name)
	if !ok {
		log.Warn().Msgf("%s does not have %s", m.path, name)
		return
	}
	return wrap(addr), true
}

func (m *modloader) preloadEntry() (preloadFunc, bool) {
	return bind(m, symPreload, func(addr uintptr) preloadFunc {
		return func(env uintptr, appID, modloaderPath, sourcePath, filesDir, externalDir string) {
			var cs cstrings
			defer cs.free()
			m.invoke(addr, env,
				cs.add(appID), cs.add(modloaderPath), cs.add(sourcePath),
				cs.add(filesDir), cs.add(externalDir))
		}
	})
}

func (m *modloader) loadEntry() (loadFunc, bool) {
	return bind(m, symLoad, func(addr uintptr) loadFunc {
		return func(env uintptr, soDir string) {
			var cs cstrings
			defer cs.free()
			m.invoke(addr, env, cs.add(soDir))
		}
	})
}

func (m *modloader) acceptHandleEntry() (acceptHandleFunc, bool) {
	return bind(m, symAcceptUnityHandle, func(addr uintptr) acceptHandleFunc {
		return func(env uintptr, engine uintptr) {
			m.invoke(addr, env, engine)
		}
	})
}

func (m *modloader) unloadEntry() (unloadFunc, bool) {
	return bind(m, symUnload, func(addr uintptr) unloadFunc {
		return func(vm uintptr) {
			m.invoke(addr, vm)
		}
	})
}

// guard keeps a Go panic raised while calling into the modloader from
// escaping into the JNI caller.
func guard(phase string) {
	if r := recover(); r != nil {
		log.Error().Msgf("%s panicked: %v", phase, r)
	}
}

func (m *modloader) preload(env uintptr, appID string, found *FindResult, paths *PathContainer) {
	defer guard(symPreload)
	preload, ok := m.preloadEntry()
	if !ok {
		return
	}
	log.Debug().Msgf("Calling %s", symPreload)
	preload(env, appID, found.Path, found.Source, paths.FilesDir, paths.ExternalDir)
	log.Debug().Msgf("Preloading done")
}

func (m *modloader) load(env uintptr, soDir string) {
	defer guard(symLoad)
	load, ok := m.loadEntry()
	if !ok {
		return
	}
	log.Debug().Msgf("Calling %s with %s", symLoad, soDir)
	load(env, soDir)
	log.Debug().Msgf("Loading done")
}

func (m *modloader) acceptEngineHandle(env uintptr, engine Library) {
	defer guard(symAcceptUnityHandle)
	accept, ok := m.acceptHandleEntry()
	if !ok {
		return
	}
	log.Debug().Msgf("Calling %s", symAcceptUnityHandle)
	accept(env, engine.Handle())
	log.Debug().Msgf("Accepting engine handle done")
}

// unload runs modloader_unload at most once per process.
func (m *modloader) unload(vm uintptr) {
	defer guard(symUnload)
	if m.unloaded {
		log.Debug().Msgf("%s already called", symUnload)
		return
	}
	unload, ok := m.unloadEntry()
	if !ok {
		return
	}
	m.unloaded = true
	log.Debug().Msgf("Calling %s", symUnload)
	unload(vm)
	log.Debug().Msgf("Unload done")
}

// close releases the modloader library. It is safe to call more than once.
func (m *modloader) close() {
	if m.lib == nil {
		return
	}
	if err := m.lib.Close(); err != nil {
		log.Error().Msgf("Error occurred closing modloader %s: %v", m.path, err)
	} else {
		log.Debug().Msgf("Closed modloader %s", m.path)
	}
	m.lib = nil
}
