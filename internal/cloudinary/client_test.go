package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign_SortsAndSkipsUnsignedParams(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{
		"timestamp": "100",
		"folder":    "teams",
		"api_key":   "key",
		"file":      "ignored",
	})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=teams&timestamp=100secret")))
	assert.Equal(t, want, got)
}

func TestUpload(t *testing.T) {
	var fields map[string]string
	var fileBody, fileName, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		raw, _ := io.ReadAll(f)
		fileBody, fileName = string(raw), hdr.Filename
		_, _ = w.Write([]byte(`{"public_id":"teams/notes","secure_url":"https://cdn.example/notes.pdf","resource_type":"raw","bytes":5}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "teams")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.Upload(context.Background(), []byte("hello"), "notes.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/notes.pdf", res.SecureURL)
	assert.Equal(t, "/demo/auto/upload", path)
	assert.Equal(t, "hello", fileBody)
	assert.Equal(t, "notes.pdf", fileName)
	assert.Equal(t, "1700000000", fields["timestamp"])
	assert.Equal(t, c.sign(map[string]string{"timestamp": "1700000000", "folder": "teams"}), fields["signature"])
}

func TestUpload_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.Upload(context.Background(), []byte("x"), "a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestUpload_EmptyData(t *testing.T) {
	_, err := New("demo", "key", "secret", "").Upload(context.Background(), nil, "a.txt")
	require.Error(t, err)
}
