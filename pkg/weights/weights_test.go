package weights

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureDownloadsMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("weight bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "weights.bin")
	got, err := New(srv.Client(), testLogger()).Ensure(context.Background(), srv.URL, path, false)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("weight bytes"), data)
}

func TestEnsureSkipsExistingFile(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Write([]byte("remote"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "weights.bin")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o600))

	_, err := New(srv.Client(), testLogger()).Ensure(context.Background(), srv.URL, path, false)
	require.NoError(t, err)
	assert.Zero(t, requests, "no request should be made when the file exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("local"), data, "existing file must not be replaced")
}

func TestEnsureForceRedownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("remote"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "weights.bin")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o600))

	_, err := New(srv.Client(), testLogger()).Ensure(context.Background(), srv.URL, path, true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("remote"), data)
}

func TestEnsureRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("eventually"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "weights.bin")
	_, err := New(srv.Client(), testLogger()).Ensure(context.Background(), srv.URL, path, false)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("eventually"), data)
}

func TestEnsureGivesUpOnNotFound(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "weights.bin")
	_, err := New(srv.Client(), testLogger()).Ensure(context.Background(), srv.URL, path, false)
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "a 404 must not be retried")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be left behind")
}
