package api_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/futebolada/internal/api"
	"github.com/mcoot/futebolada/internal/testutil"
)

func TestServerRunsHooksAfterHTTPStops(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		record("request")
		w.WriteHeader(http.StatusNoContent)
	})
	server := api.NewServer(handler, api.DefaultServerConfig(), testutil.NopLogger())
	server.OnShutdown("flush", func(ctx context.Context) error {
		record("flush")
		return nil
	})
	server.OnShutdown("close", func(ctx context.Context) error {
		record("close")
		return nil
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- server.Serve(ln) }()

	responded := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		responded <- resp
	}()

	<-arrived
	assert.Equal(t, ln.Addr().String(), server.Addr())

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- server.Shutdown(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, <-shutdownDone)
	require.NoError(t, <-served)
	resp := <-responded
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"request", "flush", "close"}, order)
}

func TestServerShutdownJoinsHookErrors(t *testing.T) {
	server := api.NewServer(http.NotFoundHandler(), api.DefaultServerConfig(), testutil.NopLogger())
	flushErr := errors.New("queue unreachable")
	ran := 0
	server.OnShutdown("flush", func(ctx context.Context) error {
		ran++
		return flushErr
	})
	server.OnShutdown("close", func(ctx context.Context) error {
		ran++
		return nil
	})

	err := server.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, flushErr)
	assert.Contains(t, err.Error(), "flush")
	assert.Equal(t, 2, ran)

	// hooks run once
	assert.ErrorIs(t, server.Shutdown(context.Background()), flushErr)
	assert.Equal(t, 2, ran)
}

func TestServerHooksGetDrainDeadline(t *testing.T) {
	cfg := api.DefaultServerConfig()
	cfg.DrainTimeout = 20 * time.Millisecond
	server := api.NewServer(http.NotFoundHandler(), cfg, testutil.NopLogger())
	server.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := server.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
