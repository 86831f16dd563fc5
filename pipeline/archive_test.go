package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveWritesCreateDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep", "media")
	archive, err := NewArchive(root)
	require.NoError(t, err)

	textPath, err := archive.WriteText("Однажды весною...", "1. Книга.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "books", "1. Книга.txt"), textPath)

	imagePath, err := archive.WriteImage([]byte{0xff, 0xd8, 0xff}, "1. Книга.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "images", "1. Книга.jpg"), imagePath)

	text, err := os.ReadFile(textPath)
	require.NoError(t, err)
	assert.Equal(t, "Однажды весною...", string(text))

	image, err := os.ReadFile(imagePath)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, image)
}

func TestArchiveOverwritesWithoutLeftovers(t *testing.T) {
	root := t.TempDir()
	archive, err := NewArchive(root)
	require.NoError(t, err)

	_, err = archive.WriteText("first", "2. Book.txt")
	require.NoError(t, err)
	path, err := archive.WriteText("second", "2. Book.txt")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(archive.TextDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2. Book.txt", entries[0].Name())
}

func TestArchiveRejectsBadInput(t *testing.T) {
	_, err := NewArchive("  ")
	assert.Error(t, err)

	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "../escape.txt", "nested/name.txt"} {
		_, err := archive.WriteText("x", name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestSaveReportsUnwritableDirectory(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "books")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o600))

	archive, err := NewArchive(root)
	require.NoError(t, err)

	_, err = archive.WriteText("content", "3. Book.txt")
	assert.Error(t, err)
}
