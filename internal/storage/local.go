package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrForeignPath = errors.New("path is not managed by this store")

type LocalStore struct {
	dir    string
	prefix string
}

// NewLocalStore creates dir if needed. Saved files are published as
// prefix + "/" + name.
func NewLocalStore(dir, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &LocalStore{
		dir:    dir,
		prefix: "/" + strings.Trim(prefix, "/"),
	}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Prefix() string {
	return s.prefix
}

func (s *LocalStore) Save(_ context.Context, filename, _ string, body io.Reader) (string, error) {
	name := ObjectName(filename, time.Now())
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file failed: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write upload file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close upload file failed: %w", err)
	}
	return s.prefix + "/" + name, nil
}

// Delete removes the file behind a public path. A missing file is not an
// error.
func (s *LocalStore) Delete(_ context.Context, publicPath string) error {
	name, ok := strings.CutPrefix(publicPath, s.prefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return fmt.Errorf("%w: %s", ErrForeignPath, publicPath)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload file failed: %w", err)
	}
	return nil
}
