package htmx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDetection(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/admin/resources/posts/", nil)
	assert.False(t, IsRequest(r))
	assert.False(t, MatchesTarget(r, "datatable"))

	r.Header.Set(HeaderRequest, "true")
	assert.True(t, IsRequest(r))
	assert.False(t, MatchesTarget(r, "datatable"))

	r.Header.Set(HeaderTarget, "datatable")
	assert.True(t, MatchesTarget(r, "datatable"))
	assert.False(t, MatchesTarget(r, "modal"))
}

func triggersOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	raw := rec.Header().Get(HeaderTrigger)
	require.NotEmpty(t, raw)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestDefaultEnvelopeIsNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, New().Write(rec))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderTrigger))
}

func TestTriggersMergeIntoSingleHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	err := New().
		ToastSuccess("Saved %d records", 3).
		CloseModal().
		RefreshList().
		Write(rec)
	require.NoError(t, err)

	got := triggersOf(t, rec)
	assert.Len(t, got, 3)
	toast, ok := got["toast"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Saved 3 records", toast["message"])
	assert.Equal(t, "success", toast["category"])
	assert.Contains(t, got, "modals.close")
	assert.Contains(t, got, "refresh-datatable")
}

func TestRepeatedTriggerKeepsLastPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	err := New().
		ToastError("first").
		ToastError("second").
		Write(rec)
	require.NoError(t, err)

	toast := triggersOf(t, rec)["toast"].(map[string]any)
	assert.Equal(t, "second", toast["message"])
}

func TestNavigationHeaders(t *testing.T) {
	t.Run("redirect", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, New().Redirect("/admin/login").Write(rec))
		assert.Equal(t, "/admin/login", rec.Header().Get(HeaderRedirect))
	})

	t.Run("refresh", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, New().Refresh().Write(rec))
		assert.Equal(t, "true", rec.Header().Get(HeaderRefresh))
	})

	t.Run("plain location", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, New().Location("/admin/", "").Write(rec))
		assert.Equal(t, "/admin/", rec.Header().Get(HeaderLocation))
	})

	t.Run("targeted location", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, New().Location("/admin/", "#content").Write(rec))
		var payload map[string]string
		require.NoError(t, json.Unmarshal([]byte(rec.Header().Get(HeaderLocation)), &payload))
		assert.Equal(t, "/admin/", payload["path"])
		assert.Equal(t, "#content", payload["target"])
	})

	t.Run("push url with custom status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, New().PushURL("/admin/resources/posts/?page=2").Status(http.StatusOK).Write(rec))
		assert.Equal(t, "/admin/resources/posts/?page=2", rec.Header().Get(HeaderPushURL))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
