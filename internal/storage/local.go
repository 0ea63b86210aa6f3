package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileStorage implements FileStorage for local filesystem
type LocalFileStorage struct {
	basePath string
	baseURL  string
}

// NewLocalFileStorage creates a new local file storage
func NewLocalFileStorage(basePath, baseURL string) (*LocalFileStorage, error) {
	// Ensure directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalFileStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Dir is the directory files are written to
func (s *LocalFileStorage) Dir() string {
	return s.basePath
}

// SaveFile saves a file to local disk
func (s *LocalFileStorage) SaveFile(ctx context.Context, file io.Reader, filename string, contentType string) (string, error) {
	// Unique name so uploads never overwrite each other
	name := objectName("", filename, contentType)
	fullPath := filepath.Join(s.basePath, name)

	// Create file
	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file on disk: %w", err)
	}
	defer dst.Close()

	// Copy content
	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	// Return public URL
	return s.baseURL + "/" + name, nil
}

// DeleteFile deletes a file from local disk
func (s *LocalFileStorage) DeleteFile(ctx context.Context, fileURL string) error {
	// Only files we served, and never a path outside basePath
	name, ok := strings.CutPrefix(fileURL, s.baseURL+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return nil
	}

	// Already gone is fine
	if err := os.Remove(filepath.Join(s.basePath, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
