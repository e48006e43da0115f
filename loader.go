package libmain

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/phuslu/log"
)

// jniVersion16 is the newest JNI version this loader understands.
const jniVersion16 = 0x00010006

// maxFatalMessage matches the buffer the stock loader formats its error into.
const maxFatalMessage = 0x400

type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateUnloading
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateUnloading:
		return "unloading"
	}
	return "unknown"
}

// Loader owns the modloader and engine libraries for the life of the process.
type Loader struct {
	mu        sync.Mutex
	config    *Config
	linker    Linker
	invoke    Invoker
	state     State
	engine    Library
	modloader modloader
	preloaded bool
	// released is set once teardown closed the engine; it is never reopened.
	released bool
}

func NewLoader(config *Config, linker Linker, invoke Invoker) *Loader {
	if config == nil {
		config = DefaultConfig()
	}
	return &Loader{
		config:    config,
		linker:    linker,
		invoke:    invoke,
		modloader: modloader{invoke: invoke},
	}
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// ModloaderLoaded reports whether a modloader was found and opened.
func (l *Loader) ModloaderLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.modloader.loaded()
}

// OnLoad binds NativeLoader.load/unload and runs the preload phase.
func (l *Loader) OnLoad(host Host) error {
	log.Info().Msgf("JNI_OnLoad called, linking JNI methods")
	if err := host.RegisterNatives(); err != nil {
		log.Error().Msgf("RegisterNatives failed: %v", err)
		return &FatalError{Msg: nativeLoaderClass}
	}

	log.Debug().Msgf("Calling modloader preload")
	l.Preload(host)
	log.Info().Msgf("JNI_OnLoad done!")
	return nil
}

// Preload finds and opens the modloader and calls its modloader_preload.
// Every failure here only means the game starts without a modloader.
func (l *Loader) Preload(host Host) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.preloaded {
		log.Debug().Msgf("Preload already ran")
		return
	}
	l.preloaded = true

	appID, err := ApplicationID(l.config.CmdlinePath)
	if err != nil {
		log.Warn().Msgf("Could not get application id: %v", err)
		return
	}
	paths, err := ResolvePaths(host, l.config.SharedStorageRoot, appID)
	if err != nil {
		log.Warn().Msgf("Could not get application directories: %v", err)
		return
	}
	log.Debug().Msgf("Searching for modloader in %s", paths.ModloaderSearchPath)

	if !l.config.SkipPermissions {
		l.ensurePermissions(host, appID)
	}

	found, err := FindModloader(l.linker, paths.ModloaderSearchPath, paths.FilesDir,
		l.config.LibrarySuffix, l.config.SortCandidates)
	if err != nil {
		log.Warn().Msgf("Starting without modloader: %v", err)
		return
	}
	l.modloader.lib = found.Library
	l.modloader.path = found.Path

	l.modloader.preload(host.Env(), appID, found, paths)
}

func (l *Loader) ensurePermissions(host Host, appID string) {
	activity, err := host.CurrentActivity()
	if err != nil {
		log.Warn().Msgf("Could not get current activity, not asking for storage access: %v", err)
		return
	}
	if !EnsurePermissions(host, activity, appID, l.config.PermissionAttempts, l.config.PermissionDelay) {
		log.Warn().Msgf("Storage access was not confirmed, modloader lookup may fail")
	}
}

// Load replaces NativeLoader.load. dir is the directory holding the engine.
// A *FatalError means the engine cannot run and the host must abort.
func (l *Loader) Load(host Host, dir string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine != nil {
		return true, nil
	}
	if l.released {
		log.Warn().Msgf("%s was already unloaded, not loading it again", l.config.EngineLibrary)
		return true, nil
	}

	log.Debug().Msgf("Searching in %s", dir)
	vm, err := host.JavaVM()
	if err != nil {
		log.Error().Msgf("Could not get Java VM: %v", err)
		return false, &FatalError{Msg: msgNoJavaVM}
	}
	l.state = StateLoading

	env := host.Env()
	l.modloader.load(env, dir)

	engine, err := l.openEngine(dir)
	if err != nil {
		l.state = StateUnloaded
		return false, err
	}
	l.engine = engine
	l.state = StateLoaded

	l.modloader.acceptEngineHandle(env, engine)

	if onLoad, ok := engine.Lookup("JNI_OnLoad"); ok {
		version := int32(l.invoke(onLoad, vm, 0))
		if version > jniVersion16 {
			log.Error().Msgf("Engine JNI_OnLoad requested unsupported VM version %#x", version)
			return false, &FatalError{Msg: msgUnsupportedVersion}
		}
	} else {
		log.Warn().Msgf("%s does not have a JNI_OnLoad", l.config.EngineLibrary)
	}

	log.Info().Msgf("Successfully loaded and initialized %s", filepath.Join(dir, l.config.EngineLibrary))
	return true, nil
}

// openEngine tries dir/<engine> first and then the bare name, which the
// dynamic linker resolves through its default search path.
func (l *Loader) openEngine(dir string) (Library, error) {
	path := filepath.Join(dir, l.config.EngineLibrary)
	engine, err := l.linker.Open(path)
	if err == nil {
		return engine, nil
	}
	log.Debug().Msgf("Could not open %s: %v, retrying with %s", path, err, l.config.EngineLibrary)

	engine, err = l.linker.Open(l.config.EngineLibrary)
	if err == nil {
		return engine, nil
	}
	log.Error().Msgf("Could not load engine from %s: %v", path, err)
	return nil, engineLoadError(path, err)
}

func engineLoadError(path string, err error) *FatalError {
	fe := fatalf("Unable to load library: %s [%v]", path, err)
	if len(fe.Msg) > maxFatalMessage-1 {
		fe.Msg = fe.Msg[:maxFatalMessage-1]
	}
	return fe
}

// Unload replaces NativeLoader.unload. Teardown failures are logged only.
func (l *Loader) Unload(host Host) (bool, error) {
	vm, err := host.JavaVM()
	if err != nil {
		log.Error().Msgf("Could not get Java VM: %v", err)
		return false, &FatalError{Msg: msgNoJavaVM}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.teardown(vm)
	return true, nil
}

// OnUnload runs when the VM tears down the shim.
func (l *Loader) OnUnload(vm uintptr) {
	log.Info().Msgf("JNI_OnUnload called!")
	l.mu.Lock()
	defer l.mu.Unlock()
	l.teardown(vm)
}

func (l *Loader) teardown(vm uintptr) {
	l.modloader.unload(vm)

	if l.engine == nil {
		l.modloader.close()
		return
	}
	l.state = StateUnloading

	if onUnload, ok := l.engine.Lookup("JNI_OnUnload"); ok {
		l.invoke(onUnload, vm, 0)
	} else {
		log.Warn().Msgf("%s does not have a JNI_OnUnload", l.config.EngineLibrary)
	}

	if err := l.engine.Close(); err != nil {
		log.Error().Msgf("Error occurred closing %s: %v", l.config.EngineLibrary, err)
	} else {
		log.Debug().Msgf("Successfully closed %s", l.config.EngineLibrary)
	}
	l.engine = nil
	l.released = true
	l.state = StateUnloaded

	l.modloader.close()
}

// AsFatal extracts the host-fatal failure from err, if any.
func AsFatal(err error) (*FatalError, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
