package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirilvk/exl-loader/pkg/exl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.exl", "a.exl", "c.txt", "d.exl.bak", ".exl"} {
		writeFile(t, dir, name, "<exl/>")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.exl"), 0o755))
	writeFile(t, filepath.Join(dir, "nested.exl"), "deep.exl", "<exl/>")

	files, err := DiscoverFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, ".exl"),
		filepath.Join(dir, "a.exl"),
		filepath.Join(dir, "b.exl"),
	}, files)
}

func TestDiscoverFiles_Symlinks(t *testing.T) {
	feed := t.TempDir()
	target := writeFile(t, feed, "real.exl", "<exl/>")
	require.NoError(t, os.Mkdir(filepath.Join(feed, "subdir.exl"), 0o755))

	dir := t.TempDir()
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "linked.exl")))
	require.NoError(t, os.Symlink(filepath.Join(feed, "subdir.exl"), filepath.Join(dir, "dirlink.exl")))
	require.NoError(t, os.Symlink(filepath.Join(feed, "gone.exl"), filepath.Join(dir, "dangling.exl")))

	files, err := DiscoverFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "linked.exl")}, files)
}

func TestDiscoverFiles_CustomExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.xml", "<exl/>")
	writeFile(t, dir, "two.exl", "<exl/>")

	files, err := DiscoverFiles(dir, ".xml")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "one.xml")}, files)
}

func TestDiscoverFiles_Empty(t *testing.T) {
	files, err := DiscoverFiles(t.TempDir(), DefaultExtension)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverFiles_ConfigurationErrors(t *testing.T) {
	_, err := DiscoverFiles("", DefaultExtension)
	assert.Equal(t, exl.ErrorCodeConfiguration, exl.CodeOf(err))

	_, err = DiscoverFiles(filepath.Join(t.TempDir(), "missing"), DefaultExtension)
	assert.Equal(t, exl.ErrorCodeConfiguration, exl.CodeOf(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
