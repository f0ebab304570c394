package handler_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getShare(t *testing.T, srv *testServer) map[string]any {
	t.Helper()

	resp, err := http.Get(srv.URL + "/share")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody(t, resp)
}

func TestShareTextRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	body := getShare(t, srv)
	assert.Equal(t, "empty", body["kind"])

	resp := postJSON(t, srv, "/share/text", map[string]any{"text": "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp)

	body = getShare(t, srv)
	assert.Equal(t, "text", body["kind"])
	assert.Equal(t, "hello", body["text"])
}

func TestShareEmptyTextRejected(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/share/text", map[string]any{"text": ""})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestShareFileOneShot(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "note.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("one-shot content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(srv.URL+"/share/file", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp)

	body := getShare(t, srv)
	assert.Equal(t, "file", body["kind"])
	assert.Equal(t, "note.txt", body["filename"])

	resp, err = http.Get(srv.URL + "/share/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "one-shot content", string(data))
}

func TestDownloadEmptySlot(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/share/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearShare(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/share/text", map[string]any{"text": "temporary"})
	decodeBody(t, resp)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/share", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp)

	body := getShare(t, srv)
	assert.Equal(t, "empty", body["kind"])
}
