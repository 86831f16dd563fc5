// Package pipeline persists archived payloads and the run manifest.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	textDirName  = "books"
	imageDirName = "images"
)

// Archive writes text and image payloads below a root directory.
type Archive struct {
	root     string
	textDir  string
	imageDir string
}

// NewArchive prepares an archive rooted at root. Directories are created
// lazily on the first write.
func NewArchive(root string) (*Archive, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("archive root cannot be empty")
	}
	return &Archive{
		root:     root,
		textDir:  filepath.Join(root, textDirName),
		imageDir: filepath.Join(root, imageDirName),
	}, nil
}

// Root returns the archive root directory.
func (a *Archive) Root() string {
	return a.root
}

// TextDir is where text payloads are stored.
func (a *Archive) TextDir() string {
	return a.textDir
}

// ImageDir is where cover images are stored.
func (a *Archive) ImageDir() string {
	return a.imageDir
}

// WriteText stores a book text and returns its path.
func (a *Archive) WriteText(content, filename string) (string, error) {
	return Save(a.textDir, filename, []byte(content))
}

// WriteImage stores a cover image and returns its path.
func (a *Archive) WriteImage(data []byte, filename string) (string, error) {
	return Save(a.imageDir, filename, data)
}

// Save writes data to dir/filename atomically, creating dir and its parents
// first. An existing file is replaced.
func Save(dir, filename string, data []byte) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("invalid file name %q", filename)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %q: %w", dir, err)
	}
	target := filepath.Join(dir, filename)
	if err := writeFileAtomic(target, data); err != nil {
		return "", err
	}
	return target, nil
}

// writeFileAtomic writes through a temporary sibling and renames it over
// path, so readers never see a partially written file.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %q: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %q: %w", path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %q: %w", path, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
