package client

import (
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnSocket runs an HTTP server for the given mux on a unix socket
// and returns a client pointed at it.
func serveOnSocket(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	sock := filepath.Join(t.TempDir(), "d.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)

	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	return NewClient(sock)
}

func TestGetVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `"1.2.3"`)
	})
	c := serveOnSocket(t, mux)

	v, err := c.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v)
}

func TestGetVersionShortBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(http.ResponseWriter, *http.Request) {})
	c := serveOnSocket(t, mux)

	v, err := c.GetVersion()
	require.NoError(t, err)
	assert.Empty(t, v, "an empty body must not panic or produce garbage")
}

func TestMissingSocketReturnsError(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))

	_, err := c.Get("/version")
	assert.Error(t, err)
}
