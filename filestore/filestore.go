package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store handles local storage of receipt images, evidence files and notice
// attachments.
type Store struct {
	basePath string
}

// Default is the store used by the handlers. Set it up with Init at startup.
var Default *Store

// Init creates the upload directory if needed and installs the default store.
func Init(basePath string) error {
	s, err := New(basePath)
	if err != nil {
		return err
	}
	Default = s
	return nil
}

// New creates a new file store with the given base path
func New(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create filestore directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Save stores a file under a generated name and returns that name. The
// original filename only contributes its extension.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	newFilename := uuid.NewString() + filepath.Ext(filename)
	fullPath := filepath.Join(s.basePath, newFilename)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("write file: %w", err)
	}

	return newFilename, nil
}

// Delete removes the file with the given stored name. Missing files are not
// an error; a dangling row must never block a delete.
func (s *Store) Delete(filename string) error {
	if filename == "" {
		return nil
	}
	fullPath := filepath.Join(s.basePath, filename)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// FullPath returns the full filesystem path for a stored name
func (s *Store) FullPath(filename string) string {
	return filepath.Join(s.basePath, filename)
}

// BasePath returns the directory files are stored under.
func (s *Store) BasePath() string {
	return s.basePath
}
