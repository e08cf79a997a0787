package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const recordExt = ".json"

var (
	ErrInvalidKey    = errors.New("kv: invalid key")
	ErrPathTraversal = errors.New("kv: path traversal not allowed")
)

// FileStore writes one file per key under a root directory.
type FileStore struct {
	rootDir string
}

// NewFileStore creates rootDir if needed.
func NewFileStore(rootDir string) (*FileStore, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &FileStore{rootDir: rootDir}, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading record %s: %w", key, err)
	}
	return string(content), nil
}

// Set replaces the record atomically: write to a temp file, then rename.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(value), 0o600); err != nil {
		return fmt.Errorf("writing temp record: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming record: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// pathFor maps a key to a file directly under the root.
func (s *FileStore) pathFor(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrInvalidKey
	}

	if strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) || filepath.IsAbs(key) {
		return "", ErrPathTraversal
	}

	name := strings.ReplaceAll(key, ":", "_") + recordExt
	return filepath.Join(s.rootDir, name), nil
}
