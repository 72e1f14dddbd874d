package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dormdesk/maintenance-service/internal/config"
)

// Store writes opaque image blobs to disk and hands back the public path
// they will be served under. Content is never interpreted.
type Store struct {
	dir        string
	publicPath string
}

// NewStore ensures the upload directory exists.
func NewStore(cfg config.StorageConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: cfg.UploadDir, publicPath: strings.TrimSuffix(cfg.PublicPath, "/")}, nil
}

// Dir returns the on-disk directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Save persists a blob under a generated name, keeping the original
// extension, and returns its public reference path.
func (s *Store) Save(originalName string, src io.Reader) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return s.publicPath + "/" + name, nil
}

// SaveMultipart stores an uploaded form file.
func (s *Store) SaveMultipart(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	return s.Save(fh.Filename, src)
}
