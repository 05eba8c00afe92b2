package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"covers/book.png", "covers/book.png"},
		{"/covers/book.png", "covers/book.png"},
		{"covers//book.png", "covers/book.png"},
		{"../etc/passwd", ""},
		{"covers/../../etc/passwd", ""},
		{"", ""},
		{"/", ""},
		{"covers\\win\\file.png", "covers/win/file.png"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanKey(tc.in), "key %q", tc.in)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	key, err := l.Put(ctx, "covers/book.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "covers/book.txt", key)

	obj, err := l.Open(ctx, key)
	require.NoError(t, err)
	defer obj.Close()
	buf := make([]byte, 16)
	n, _ := obj.Read(buf)
	assert.Equal(t, "hello", string(buf[:n]))
	assert.Equal(t, int64(5), obj.Size)

	require.NoError(t, l.Delete(ctx, key))
	_, err = l.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, l.Delete(ctx, key))
}

func TestLocalRejectsTraversal(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = l.Put(context.Background(), "../outside.txt", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}

func TestMediaHandler(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = l.Put(ctx, "a/b.txt", strings.NewReader("payload"), 7, "")
	require.NoError(t, err)

	h := Handler(l)

	t.Run("serves stored object", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/a/b.txt", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "payload", rec.Body.String())
	})

	t.Run("missing object is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope.txt", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("traversal is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		r.URL.Path = "/../secret"
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("write methods rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/a/b.txt", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
