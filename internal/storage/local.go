package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes photos below a directory that the HTTP server exposes
// under URLPrefix.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

func NewLocalStorage(dir string, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(dir, "photos"), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *LocalStorage) Save(ctx context.Context, _ string, contentType string, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := objectKey(contentType)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}

	written, err := io.Copy(file, io.LimitReader(body, size))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written != size {
		err = fmt.Errorf("short write: %d of %d bytes", written, size)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", key, err)
	}

	return s.urlPrefix + "/" + key, nil
}
