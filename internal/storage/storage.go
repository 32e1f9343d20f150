package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// InvoiceStorage persists raw invoice PDFs and hands back opaque relative
// paths. The bulk pipeline stores a blob before extraction and deletes it
// again if any later stage fails, so no orphaned blobs survive a failed file.
type InvoiceStorage interface {
	Store(ctx context.Context, r io.Reader, fileName string) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(path string) bool
	Delete(ctx context.Context, path string) error
}

// LocalStorage keeps PDFs on the local filesystem under a root directory.
type LocalStorage struct {
	root   string
	logger *slog.Logger
}

const uploadFolder = "uploads/invoices"

func NewLocalStorage(root string, logger *slog.Logger) *LocalStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStorage{root: root, logger: logger}
}

// Store writes the stream under a uuid-prefixed name to avoid collisions and
// returns the path relative to the storage root.
func (s *LocalStorage) Store(_ context.Context, r io.Reader, fileName string) (string, error) {
	dir := filepath.Join(s.root, uploadFolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	unique := uuid.New().String() + "_" + filepath.Base(fileName)
	fullPath := filepath.Join(dir, unique)
	relPath := filepath.Join(uploadFolder, unique)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close blob: %w", err)
	}

	s.logger.Info("storage.store.ok", "path", relPath)
	return relPath, nil
}

func (s *LocalStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(s.fullPath(path))
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", path, err)
	}
	return f, nil
}

func (s *LocalStorage) Exists(path string) bool {
	st, err := os.Stat(s.fullPath(path))
	return err == nil && !st.IsDir()
}

// Delete removes a stored blob. Deleting a path that is already gone is not
// an error; cleanup paths may race with manual maintenance.
func (s *LocalStorage) Delete(_ context.Context, path string) error {
	err := os.Remove(s.fullPath(path))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", path, err)
	}
	if err == nil {
		s.logger.Info("storage.delete.ok", "path", path)
	}
	return nil
}

func (s *LocalStorage) fullPath(rel string) string {
	return filepath.Join(s.root, rel)
}
