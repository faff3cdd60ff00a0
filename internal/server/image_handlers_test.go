package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/service"
	"github.com/SreeragSreekanth/Blogplatform/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upload posts content as the multipart "image" field. An empty field name
// sends a form without it.
func (ts *testServer) upload(t *testing.T, path, token, field string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if field != "" {
		part, err := writer.CreateFormFile(field, "img.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, writer.WriteField("caption", "no file"))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) mediaPath(url string) string {
	rel := strings.TrimPrefix(url, service.MediaURLPrefix+"/")
	return filepath.Join(ts.cfg.MediaDir, filepath.FromSlash(rel))
}

func TestUploadPostImage(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.user(t, "alice")
	tok := ts.token(t, alice)
	post := ts.createPost(t, tok, "Illustrated")
	path := fmt.Sprintf("/api/posts/%d/image/", idOf(post))

	resp := ts.upload(t, path, tok, "image", testutil.TinyPNG(t, 40, 40))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeMap(t, resp)["image"].(string)
	assert.True(t, strings.HasPrefix(first, "/media/blog_images/"), first)
	assert.True(t, strings.HasSuffix(first, ".webp"), first)

	served := ts.do(t, http.MethodGet, first, "", nil)
	require.Equal(t, http.StatusOK, served.StatusCode)
	assert.Equal(t, "cross-origin", served.Header.Get("Cross-Origin-Resource-Policy"))

	// A replacement removes the previous file.
	resp = ts.upload(t, path, tok, "image", testutil.TinyPNG(t, 20, 20))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeMap(t, resp)["image"].(string)
	assert.NotEqual(t, first, second)
	_, err := os.Stat(ts.mediaPath(first))
	assert.True(t, os.IsNotExist(err), "previous image should be deleted")
	_, err = os.Stat(ts.mediaPath(second))
	assert.NoError(t, err)
}

func TestUploadPostImage_Rejections(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.user(t, "alice")
	bob := ts.user(t, "bob")
	post := ts.createPost(t, ts.token(t, alice), "Guarded")
	path := fmt.Sprintf("/api/posts/%d/image/", idOf(post))

	resp := ts.upload(t, path, ts.token(t, bob), "image", testutil.TinyPNG(t, 10, 10))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.upload(t, path, ts.token(t, alice), "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, "No file was submitted.", errBody.Fields["image"])

	resp = ts.upload(t, path, ts.token(t, alice), "image", []byte("definitely not a picture"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody = models.ErrorResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, "Upload a valid image.", errBody.Fields["image"])

	resp = ts.upload(t, "/api/posts/9999/image/", ts.token(t, alice), "image", testutil.TinyPNG(t, 10, 10))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Nothing was written for the rejected uploads.
	entries, _ := os.ReadDir(filepath.Join(ts.cfg.MediaDir, service.FolderBlogImages))
	assert.Empty(t, entries)
}

func TestUploadProfilePicture(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.user(t, "alice")
	tok := ts.token(t, alice)

	resp := ts.upload(t, "/api/profile/picture/", tok, "image", testutil.TinyPNG(t, 30, 30))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeMap(t, resp)["profile_picture"].(string)
	assert.True(t, strings.HasPrefix(first, "/media/profile_pictures/"), first)

	resp = ts.do(t, http.MethodGet, "/api/profile/", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first, decodeMap(t, resp)["profile_picture"])

	resp = ts.upload(t, "/api/profile/picture/", tok, "image", testutil.TinyPNG(t, 12, 12))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := os.Stat(ts.mediaPath(first))
	assert.True(t, os.IsNotExist(err), "previous picture should be deleted")
}
