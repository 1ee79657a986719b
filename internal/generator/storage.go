package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// BaseCVFilename is the user's base CV, kept as structured JSON.
	BaseCVFilename = "cv.json"
	// OutputsDir holds rendered PDFs under the storage directory.
	OutputsDir = "outputs"
)

// ErrOutputNotFound is returned when a requested rendered file does not exist.
var ErrOutputNotFound = errors.New("rendered file not found")

// FileStorage is the on-disk store for the base CV and rendered outputs.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a store rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// LoadBaseCV reads the base CV JSON from the storage directory.
func (s *FileStorage) LoadBaseCV() (string, error) {
	path := filepath.Join(s.dir, BaseCVFilename)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("base cv not found at %s", path)
	}
	return string(content), nil
}

// WriteOutput saves a rendered document under outputs/.
func (s *FileStorage) WriteOutput(filename string, data []byte) error {
	outputDir := filepath.Join(s.dir, OutputsDir)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(outputDir, sanitizeFilename(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// OutputPath resolves a rendered file for download. The filename is
// reduced to its base name first, so traversal segments cannot escape
// the outputs directory.
func (s *FileStorage) OutputPath(filename string) (string, error) {
	name := sanitizeFilename(filename)
	if name == "" || name == "." {
		return "", ErrOutputNotFound
	}

	path := filepath.Join(s.dir, OutputsDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrOutputNotFound
	}
	return path, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSpace(name)
}
