package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type localStorage struct {
	root       string
	publicPath string
}

// NewLocalStorage writes files below root and serves them from publicPath (e.g. "/uploads").
func NewLocalStorage(root, publicPath string) (FileStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &localStorage{root: root, publicPath: "/" + strings.Trim(publicPath, "/")}, nil
}

func (s *localStorage) Upload(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Base(fileName)
	dir := filepath.Join(s.root, filepath.Clean("/"+folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	// O_EXCL: a name collision is an error, never an overwrite
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}

	return path.Join(s.publicPath, filepath.ToSlash(filepath.Clean("/"+folder)), name), nil
}

func (s *localStorage) Delete(ctx context.Context, fileURL string) error {
	rel := strings.TrimPrefix(fileURL, s.publicPath)
	if rel == fileURL {
		return fmt.Errorf("url %q is not served by local storage", fileURL)
	}
	err := os.Remove(filepath.Join(s.root, filepath.Clean("/"+rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
