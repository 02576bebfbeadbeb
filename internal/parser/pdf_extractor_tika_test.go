package parser

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTikaServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestTikaExtractor_ExtractFromBytes(t *testing.T) {
	srv, seen := newTikaServer(t, http.StatusOK, "\n  Jane Doe\nGo developer \n")
	e, err := NewTikaExtractor(srv.URL+"/", time.Second)
	require.NoError(t, err)

	text, err := e.ExtractFromBytes(context.Background(), []byte("%PDF-1.4"), "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo developer", text)
	assert.Equal(t, http.MethodPut, seen.Method)
	assert.Equal(t, "/tika", seen.URL.Path)
	assert.Equal(t, "cv.pdf", seen.Header.Get("X-Tika-Resource-Name"))
}

func TestTikaExtractor_UnparseableIsEmpty(t *testing.T) {
	srv, _ := newTikaServer(t, http.StatusUnprocessableEntity, "")
	e, err := NewTikaExtractor(srv.URL, time.Second)
	require.NoError(t, err)

	text, err := e.ExtractFromBytes(context.Background(), []byte("junk"), "x.pdf")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTikaExtractor_ServerError(t *testing.T) {
	srv, _ := newTikaServer(t, http.StatusInternalServerError, "boom")
	e, err := NewTikaExtractor(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = e.ExtractFromBytes(context.Background(), []byte("%PDF"), "x.pdf")
	assert.ErrorContains(t, err, "500")
}

func TestTikaExtractor_FromFile(t *testing.T) {
	srv, _ := newTikaServer(t, http.StatusOK, "hello")
	e, err := NewTikaExtractor(srv.URL, 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
	text, err := e.ExtractFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = e.ExtractFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestNewTikaExtractor_RequiresURL(t *testing.T) {
	_, err := NewTikaExtractor("", time.Second)
	assert.Error(t, err)
}
