// Package storage keeps user-uploaded files such as avatars.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/praxis/backend/internal/config"
)

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFile saves a file and returns its public URL
	SaveFile(ctx context.Context, file io.Reader, filename string, contentType string) (string, error)
	// DeleteFile deletes a file by its URL. URLs this storage did not issue are ignored.
	DeleteFile(ctx context.Context, fileURL string) error
}

// New picks the backend named by cfg.Type
func New(ctx context.Context, cfg config.StorageConfig, serverURL string) (FileStorage, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "local", "":
		return NewLocalFileStorage(cfg.LocalPath, serverURL+"/uploads")
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// objectName builds a collision-free name under prefix, keeping the upload's extension
func objectName(prefix, filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("%s%s_%s%s", prefix, time.Now().UTC().Format("20060102"), uuid.New().String(), ext)
}
