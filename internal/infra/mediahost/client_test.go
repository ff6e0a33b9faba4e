package mediahost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	//公開されている計算例: "public_id=sample_image&timestamp=1315060510abcd"
	got := Sign(map[string]string{
		"timestamp": "1315060510",
		"public_id": "sample_image",
		"api_key":   "ignored",
		"file":      "ignored",
	}, "abcd")
	assert.Equal(t, "b4ad47fb4e25c7bf5f92a20089f9db59bc302313", got)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "1700000000", r.FormValue("timestamp"))
		assert.Equal(t, "products", r.FormValue("folder"))
		want := Sign(map[string]string{"timestamp": "1700000000", "folder": "products"}, "secret")
		assert.Equal(t, want, r.FormValue("signature"))

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "PNGDATA", string(b))

		_, _ = w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo/image/upload/v1/products/a.png"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "demo", "key", "secret")
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := c.Upload(context.Background(), "a.png", strings.NewReader("PNGDATA"), "products")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/products/a.png", url)
}

func TestUpload_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "demo", "key", "bad").Upload(context.Background(), "a.png", strings.NewReader("x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Signature")
}
