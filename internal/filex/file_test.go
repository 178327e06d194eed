package filex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesAndIsIdempotent(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "data", "nested")

	require.NoError(t, EnsureDir(dir))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	require.NoError(t, EnsureDir(dir))
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "data")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o660))

	err := EnsureDir(path)
	require.Error(t, err)
}

func TestWriteFileAtomic_WritesContent(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "users.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"a":1}`), 0o660))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(got))
}

func TestWriteFileAtomic_ReplacesExisting(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "users.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o660))

	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0o660))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", string(got))
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "tokens.json")

	require.NoError(t, WriteFileAtomic(path, []byte("x"), 0o660))
	require.NoError(t, WriteFileAtomic(path, []byte("y"), 0o660))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestWriteFileAtomic_MissingDirFails(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nope", "users.json")

	err := WriteFileAtomic(path, []byte("x"), 0o660)
	require.Error(t, err)
}
