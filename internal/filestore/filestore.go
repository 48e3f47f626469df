package filestore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store keeps uploaded statement files on local disk under random
// names, so the original statement can be re-downloaded or re-parsed
// later.
type Store struct {
	basePath string
}

// New creates a file store rooted at basePath
func New(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create filestore directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Save stores a file under a fresh random name, preserving the
// original extension, and returns the stored name.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	uniqueID, err := generateID()
	if err != nil {
		return "", fmt.Errorf("generate file id: %w", err)
	}

	newFilename := uniqueID + filepath.Ext(filename)
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

// Get returns a reader for a stored file
func (s *Store) Get(filename string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.basePath, filename))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete removes a stored file; deleting an absent file is not an error
func (s *Store) Delete(filename string) error {
	if filename == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.basePath, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// FullPath returns the full filesystem path for a stored name
func (s *Store) FullPath(filename string) string {
	return filepath.Join(s.basePath, filename)
}

// generateID creates a random 16-character hex string
func generateID() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
