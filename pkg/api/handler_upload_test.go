package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) doUpload(filename, content string) *httptest.ResponseRecorder {
	env.t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(env.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(env.t, err)
	require.NoError(env.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if env.cookie != nil {
		req.AddCookie(env.cookie)
	}

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doUpload("notes.txt", "TODO: publish the briefing")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeJSON[UploadResponse](t, rec)
	assert.NotEmpty(t, resp.FileID)
	assert.Equal(t, "notes.txt", resp.Filename)
	assert.Equal(t, int64(len("TODO: publish the briefing")), resp.Size)

	t.Run("disallowed extension", func(t *testing.T) {
		rec := env.doUpload("tool.exe", "MZ")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/uploads", nil)
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGenerateRSSCache_AllSourcesFailing(t *testing.T) {
	env := newTestEnv(t)

	// The configured source is unreachable; generation still succeeds with
	// an all-failed summary.
	rec := env.do(http.MethodPost, "/api/agent/rss-cache/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON[RSSCacheResponse](t, rec)
	assert.Equal(t, 1, resp.Summary.TotalSources)
	assert.Equal(t, 1, resp.Summary.FailedSources)
	assert.Equal(t, 0, resp.Summary.CachedArticles)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON[HealthResponse](t, rec)
	assert.Equal(t, healthStatusHealthy, resp.Status)
	assert.Equal(t, healthStatusHealthy, resp.Checks["database"].Status)
}
