//go:build !windows

package libmain

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchPath(t *testing.T) {
	assert := require.New(t)

	assert.Equal("/sdcard/ModData/com.example.game/Modloader", SearchPath("/sdcard", testAppID))
	assert.Equal("/storage/emulated/0/ModData/x.y/Modloader", SearchPath("/storage/emulated/0/", "x.y"))
}

func TestResolvePathsSearchPathIgnoresHostDirs(t *testing.T) {
	assert := require.New(t)

	for _, host := range []*fakeHost{
		{filesDir: "/data/user/0/com.example.game/files", externalDir: "/sdcard/Android/data/com.example.game/files"},
		{filesDir: "/a", externalDir: "/b"},
	} {
		paths, err := ResolvePaths(host, "/sdcard", testAppID)
		assert.NoError(err)
		assert.Equal("/sdcard/ModData/com.example.game/Modloader", paths.ModloaderSearchPath)
		assert.Equal(host.filesDir, paths.FilesDir)
		assert.Equal(host.externalDir, paths.ExternalDir)
	}
}

func TestResolvePathsHostFailure(t *testing.T) {
	assert := require.New(t)

	paths, err := ResolvePaths(&fakeHost{dirsErr: errors.New("android/app/ActivityThread")}, "/sdcard", testAppID)
	assert.Nil(paths)
	assert.ErrorIs(err, ErrDirLookup)

	paths, err = ResolvePaths(&fakeHost{filesDir: "/files"}, "/sdcard", testAppID)
	assert.Nil(paths)
	assert.ErrorIs(err, ErrDirLookup)
}

func TestApplicationID(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"nul terminated", "com.example.game\x00", testAppID},
		{"process suffix after nul", "com.example.game\x00--flag\x00", testAppID},
		{"whitespace", "  com.example.game \n", testAppID},
		{"no terminator", "com.example.game", testAppID},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert := require.New(t)
			path := filepath.Join(dir, c.name)
			writeFile(t, path, c.content)

			id, err := ApplicationID(path)
			assert.NoError(err)
			assert.Equal(c.want, id)
		})
	}
}

func TestApplicationIDUnavailable(t *testing.T) {
	assert := require.New(t)
	dir := t.TempDir()

	_, err := ApplicationID(filepath.Join(dir, "missing"))
	assert.ErrorIs(err, ErrNoApplicationID)

	empty := filepath.Join(dir, "empty")
	writeFile(t, empty, " \x00")
	_, err = ApplicationID(empty)
	assert.ErrorIs(err, ErrNoApplicationID)
}
