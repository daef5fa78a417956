package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/ideaflow/internal/config"
)

// BlobStore accepts uploaded files and returns stable public references.
type BlobStore interface {
	Save(file *multipart.FileHeader) (string, error)
	SaveAll(files []*multipart.FileHeader) ([]string, error)
}

// LocalStore writes uploads to a local directory and addresses them under
// a fixed public prefix, e.g. /uploads/3f2a...c1.png.
type LocalStore struct {
	dir          string
	publicPrefix string
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(cfg config.UploadsConfig) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	prefix := strings.TrimSuffix(cfg.PublicPrefix, "/")
	if prefix == "" {
		prefix = "/uploads"
	}
	return &LocalStore{dir: cfg.Dir, publicPrefix: prefix}, nil
}

// Save stores one file under a generated name and returns its public path.
func (s *LocalStore) Save(file *multipart.FileHeader) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create blob %s: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	return path.Join(s.publicPrefix, name), nil
}

// SaveAll stores a batch of files, returning their public paths in input order.
func (s *LocalStore) SaveAll(files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		p, err := s.Save(file)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Dir returns the backing directory, used for static serving.
func (s *LocalStore) Dir() string {
	return s.dir
}

// PublicPrefix returns the URL prefix uploads are served under.
func (s *LocalStore) PublicPrefix() string {
	return s.publicPrefix
}
