// Package storage is the file storage edge: uploaded media lands behind the
// FileStorage contract and is served back through the media handler. Two
// backends ship, local disk and MinIO.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
)

// ErrNotFound reports a missing object.
var ErrNotFound = errors.New("storage: object not found")

// Object is an opened stored file with its metadata.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// FileStorage stores and retrieves uploaded files by a slash-separated key.
type FileStorage interface {
	// Put writes the object and returns the key it was stored under.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Open retrieves the object, ErrNotFound when absent.
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// CleanKey normalizes a storage key: forward slashes, no leading slash, and
// no path traversal. Empty result means the key was invalid.
func CleanKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	key = path.Clean("/" + key)
	if key == "/" || strings.Contains(key, "..") {
		return ""
	}
	return strings.TrimPrefix(key, "/")
}

// Handler serves stored objects read-only. It is mounted at the admin
// /media/* subtree; the wildcard tail is the object key.
func Handler(fs FileStorage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		key := CleanKey(strings.TrimPrefix(r.URL.Path, "/"))
		if key == "" {
			http.NotFound(w, r)
			return
		}
		obj, err := fs.Open(r.Context(), key)
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer obj.Close()

		if obj.ContentType != "" {
			w.Header().Set("Content-Type", obj.ContentType)
		}
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.Copy(w, obj)
	}
}
