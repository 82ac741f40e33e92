package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string
	Count int
}

func TestSaveLoadGob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "record.gob")

	require.NoError(t, SaveGob(path, record{Name: "combine", Count: 3}))

	var got record
	require.NoError(t, LoadGob(path, &got))
	assert.Equal(t, record{Name: "combine", Count: 3}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestLoadGob_Missing(t *testing.T) {
	var got record
	err := LoadGob(filepath.Join(t.TempDir(), "missing.gob"), &got)
	assert.Equal(t, os.ErrNotExist, err)
}

func TestLoadGob_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gob")
	require.NoError(t, os.WriteFile(path, []byte("not gob"), 0600))

	var got record
	err := LoadGob(path, &got)
	assert.Error(t, err)
	assert.NotEqual(t, os.ErrNotExist, err)
}
