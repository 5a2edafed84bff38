package recorder

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildArchive_ZipsAllFilesExcludingItself(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "userA.opus"), []byte("aaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "userB.opus"), []byte("bbb"), 0o644))

	zipPath := filepath.Join(filepath.Dir(dir), "out.zip")
	require.NoError(t, BuildArchive(dir, zipPath))

	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.File, 2)
	for _, f := range r.File {
		require.NotEqual(t, filepath.Base(zipPath), f.Name)
	}
}

func TestBuildArchive_SkipsItsOwnOutputIfNestedInDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "userA.opus"), []byte("aaa"), 0o644))
	zipPath := filepath.Join(dir, "self.zip")
	// Pre-create the archive's own path so it already appears in the
	// directory listing BuildArchive walks, exercising the self-skip.
	require.NoError(t, os.WriteFile(zipPath, []byte{}, 0o644))

	require.NoError(t, BuildArchive(dir, zipPath))

	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.File, 1)
}
