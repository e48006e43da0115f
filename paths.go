package libmain

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phuslu/log"
)

const (
	modDataDir   = "ModData"
	modloaderDir = "Modloader"
)

// PathContainer holds the directories the preload phase works with.
type PathContainer struct {
	ModloaderSearchPath string
	FilesDir            string
	ExternalDir         string
}

// SearchPath is <root>/ModData/<appID>/Modloader.
func SearchPath(root, appID string) string {
	p := filepath.Join(root, modDataDir, appID, modloaderDir)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ApplicationID reads the package name the process was started with.
func ApplicationID(cmdlinePath string) (string, error) {
	raw, err := os.ReadFile(cmdlinePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoApplicationID, err)
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	id := string(bytes.TrimSpace(raw))
	if id == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoApplicationID, cmdlinePath)
	}
	return id, nil
}

// ResolvePaths builds the PathContainer for appID. The search path is
// derived before asking the host so a host failure never yields a partial result.
func ResolvePaths(host Host, root, appID string) (*PathContainer, error) {
	paths := &PathContainer{ModloaderSearchPath: SearchPath(root, appID)}

	filesDir, externalDir, err := host.ApplicationDirs()
	if err != nil {
		log.Error().Msgf("Failed to resolve application directories: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrDirLookup, err)
	}
	if filesDir == "" || externalDir == "" {
		log.Error().Msgf("Host returned empty directories: files=%q external=%q", filesDir, externalDir)
		return nil, fmt.Errorf("%w: empty directory from host", ErrDirLookup)
	}
	paths.FilesDir = filesDir
	paths.ExternalDir = externalDir
	return paths, nil
}
