package libmain

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZenLiuCN/fn"
	"github.com/phuslu/log"
)

// FindResult is an opened modloader together with where it came from.
type FindResult struct {
	Library Library
	// Path is the staged copy inside the private files dir.
	Path string
	// Source is the original file in shared storage.
	Source string
}

// FindModloader stages and opens the first usable library in searchPath.
// A candidate that fails to copy, chmod or open is skipped. When nothing
// can be opened the error wraps ErrNoModloader.
func FindModloader(linker Linker, searchPath, filesDir, suffix string, sorted bool) (*FindResult, error) {
	candidates, err := listCandidates(searchPath, suffix, sorted)
	if err != nil {
		log.Warn().Msgf("Could not list modloader directory %s: %v", searchPath, err)
		return nil, fmt.Errorf("%w: %w", ErrNoModloader, err)
	}
	if len(candidates) == 0 {
		log.Warn().Msgf("No modloader found in %s", searchPath)
		return nil, fmt.Errorf("%w: %s has no %s files", ErrNoModloader, searchPath, suffix)
	}

	for _, src := range candidates {
		dst := filepath.Join(filesDir, filepath.Base(src))
		if err := stageFile(src, dst); err != nil {
			log.Warn().Msgf("Could not stage %s to %s: %v", src, dst, err)
			continue
		}
		lib, err := linker.Open(dst)
		if err != nil {
			log.Warn().Msgf("Could not load %s: %v", dst, err)
			continue
		}
		log.Debug().Msgf("%s loaded from %s", dst, src)
		return &FindResult{Library: lib, Path: dst, Source: src}, nil
	}

	log.Warn().Msgf("None of %d modloader candidates in %s could be loaded", len(candidates), searchPath)
	return nil, fmt.Errorf("%w: none of %d candidates in %s could be loaded", ErrNoModloader, len(candidates), searchPath)
}

// listCandidates returns regular files ending in suffix. Without sorted the
// order is whatever the filesystem lists.
func listCandidates(dir, suffix string, sorted bool) (files []string, err error) {
	d, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer fn.IgnoreClose(d)

	entries, err := d.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !isRegular(path, entry) {
			log.Debug().Msgf("Skipping %s: not a regular file", path)
			continue
		}
		files = append(files, path)
	}
	if sorted {
		slices.Sort(files)
	}
	return
}

func isRegular(path string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// stageFile copies src over dst and marks it rwxrwxr-x.
func stageFile(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := chmod(dst, stagedMode); err != nil {
		return fmt.Errorf("chmod %o: %w", stagedMode, err)
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return
	}
	defer fn.IgnoreClose(sf)
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(stagedMode))
	if err != nil {
		return
	}
	if _, err = io.Copy(df, sf); err != nil {
		fn.IgnoreClose(df)
		return
	}
	return df.Close()
}
