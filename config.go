package libmain

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultSharedStorageRoot  = "/sdcard"
	defaultEngineLibrary      = "libunity.so"
	defaultLibrarySuffix      = ".so"
	defaultCmdlinePath        = "/proc/self/cmdline"
	defaultPermissionAttempts = 3
	defaultPermissionDelay    = 5 * time.Second

	envPrefix = "LIBMAIN_"
)

// Config controls where the shim looks for a modloader and how it opens the engine.
type Config struct {
	SharedStorageRoot  string        `env:"SHARED_STORAGE_ROOT" envDefault:"/sdcard"`
	EngineLibrary      string        `env:"ENGINE_LIBRARY" envDefault:"libunity.so"`
	LibrarySuffix      string        `env:"LIBRARY_SUFFIX" envDefault:".so"`
	CmdlinePath        string        `env:"CMDLINE_PATH" envDefault:"/proc/self/cmdline"`
	PermissionAttempts int           `env:"PERMISSION_ATTEMPTS" envDefault:"3"`
	PermissionDelay    time.Duration `env:"PERMISSION_DELAY" envDefault:"5s"`
	SkipPermissions    bool          `env:"SKIP_PERMISSIONS"`
	// SortCandidates picks the lexicographically first candidate instead of
	// the first one in directory listing order.
	SortCandidates bool   `env:"SORT_CANDIDATES"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"debug"`
}

func DefaultConfig() *Config {
	return &Config{
		SharedStorageRoot:  defaultSharedStorageRoot,
		EngineLibrary:      defaultEngineLibrary,
		LibrarySuffix:      defaultLibrarySuffix,
		CmdlinePath:        defaultCmdlinePath,
		PermissionAttempts: defaultPermissionAttempts,
		PermissionDelay:    defaultPermissionDelay,
		LogLevel:           "debug",
	}
}

// LoadConfig reads LIBMAIN_* variables from the process environment.
func LoadConfig() (*Config, error) {
	return loadConfig(env.Options{Prefix: envPrefix})
}

func loadConfig(opts env.Options) (config *Config, err error) {
	config = &Config{}
	if err = env.ParseWithOptions(config, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return
}

func (c *Config) Validate() error {
	var errs []error
	if c.PermissionAttempts < 1 {
		errs = append(errs, fmt.Errorf("permission attempts must be positive, got %d", c.PermissionAttempts))
	}
	if c.PermissionDelay < 0 {
		errs = append(errs, fmt.Errorf("permission delay must not be negative, got %s", c.PermissionDelay))
	}
	if c.LibrarySuffix == "" {
		errs = append(errs, errors.New("library suffix must not be empty"))
	}
	if c.EngineLibrary == "" {
		errs = append(errs, errors.New("engine library name must not be empty"))
	}
	if c.SharedStorageRoot == "" {
		errs = append(errs, errors.New("shared storage root must not be empty"))
	}
	return errors.Join(errs...)
}
