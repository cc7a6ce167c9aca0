package main

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shutdown must stop the listener, wait for in-flight requests and always
// run the cleanup hook.
func TestShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	baseURL := fmt.Sprintf("http://%s", ln.Addr().String())
	resp, err := http.Get(baseURL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	cleaned := make(chan struct{})
	shutdown(srv, func() { close(cleaned) })

	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup was not called")
	}

	select {
	case err := <-serveErr:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err = http.Get(baseURL + "/health")
	assert.Error(t, err, "listener should be closed after shutdown")
}
