package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
)

// Local stores files under a root directory on disk.
type Local struct {
	root string
}

// NewLocal creates a disk-backed storage rooted at dir, creating it when
// missing.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root %s: %w", dir, err)
	}
	return &Local{root: dir}, nil
}

func (l *Local) abs(key string) (string, error) {
	key = CleanKey(key)
	if key == "" {
		return "", fmt.Errorf("storage: invalid key")
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

func (l *Local) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	dst, err := l.abs(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir for %s: %w", key, err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", key, err)
	}
	return CleanKey(key), nil
}

func (l *Local) Open(_ context.Context, key string) (*Object, error) {
	src, err := l.abs(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		if err == nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return &Object{
		ReadCloser:  f,
		ContentType: mime.TypeByExtension(filepath.Ext(src)),
		Size:        info.Size(),
	}, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	dst, err := l.abs(key)
	if err != nil {
		return err
	}
	err = os.Remove(dst)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

var _ FileStorage = (*Local)(nil)
var _ fs.FS = (*localFS)(nil)

// localFS adapts Local to fs.FS for use with http.FileServerFS in callers
// that want directory-style serving.
type localFS struct{ l *Local }

// FS exposes the storage root as a read-only fs.FS.
func (l *Local) FS() fs.FS { return &localFS{l: l} }

func (lf *localFS) Open(name string) (fs.File, error) {
	abs, err := lf.l.abs(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return os.Open(abs)
}
