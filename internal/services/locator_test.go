package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acsf-platform/internal/models"
)

func TestLocateFiles(t *testing.T) {
	root := writeTree(t, fridgeAndFan()...)

	// files at the wrong depth or with another extension are not recordings
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.xml"), []byte("<x/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "01_fridge", "shallow.xml"), []byte("<x/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "01_fridge", "dev1", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "01_fridge", "dev1", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "01_fridge", "dev1", "deep", "d.xml"), []byte("<x/>"), 0o644))

	files, err := LocateFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "01_fridge", "dev1", "session1.xml"),
		filepath.Join(root, "02_fan", "dev1", "session1.xml"),
	}, files)
}

func TestLocateFilesEmpty(t *testing.T) {
	_, err := LocateFiles(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
