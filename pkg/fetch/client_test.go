package fetch

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

func TestGetSendsHeadersAndReturnsBody(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, "imgharvest-test/1.0", logger.NewNopLogger())
	resp, err := c.Get(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)

	assert.Equal(t, "imgharvest-test/1.0", gotUA)
	assert.Equal(t, []byte("PNGDATA"), resp.Body)
	assert.Equal(t, "image/png", resp.ContentType)
	assert.Equal(t, "/a.png", resp.FinalURL.Path)
}

func TestGetFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := NewClient(5*time.Second, "", logger.NewNopLogger()).Get(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, "/new", resp.FinalURL.Path)
}

func TestGetNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(5*time.Second, "", logger.NewNopLogger()).Bytes(context.Background(), srv.URL)
	require.Error(t, err)

	var herr *errors.Error
	require.True(t, stderrors.As(err, &herr))
	assert.Equal(t, errors.ErrorTypeDownload, herr.Type)
	assert.Equal(t, http.StatusNotFound, herr.Code)
}

func TestGetRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 1025))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, "", logger.NewNopLogger())
	c.SetMaxBodySize(1024)

	body, err := c.Bytes(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, body)

	var herr *errors.Error
	require.True(t, stderrors.As(err, &herr))
	assert.Equal(t, errors.ErrorTypeDownload, herr.Type)

	c.SetMaxBodySize(1025)
	body, err = c.Bytes(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, 1025, "a body at the limit is returned whole")
}

func TestGetTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(50*time.Millisecond, "", logger.NewNopLogger()).Bytes(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestDataURL(t *testing.T) {
	c := NewClient(time.Second, "", logger.NewNopLogger())

	resp, err := c.Get(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), resp.Body)
	assert.Equal(t, "image/png", resp.ContentType)

	body, err := c.Bytes(context.Background(), "data:text/plain,a%20b")
	require.NoError(t, err)
	assert.Equal(t, []byte("a b"), body)

	_, err = c.Bytes(context.Background(), "data:image/png;base64")
	assert.Error(t, err)
}
