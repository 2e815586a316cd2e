package dispatch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"reval/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method        string
	RequestURI    string
	Body          string
	ContentLength int64
}

// fakeServer records every request and answers with status.
func fakeServer(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{
			Method:        r.Method,
			RequestURI:    r.RequestURI,
			Body:          string(body),
			ContentLength: r.ContentLength,
		})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ignored"))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func targetFor(t *testing.T, srv *httptest.Server, path string) Target {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return Target{Host: host, Port: port, Path: path, Method: http.MethodPost}
}

func newTestDispatcher() *Dispatcher {
	logger, _ := logging.NewTestLogger()
	return New(WithLogger(logger))
}

func TestDispatch_WritesFullBody(t *testing.T) {
	srv, requests := fakeServer(t, http.StatusOK)
	body := []byte("export const answer = 42;\n")

	res, err := newTestDispatcher().Dispatch(context.Background(), targetFor(t, srv, "/api/reval/reload?filePath=src/app.js"), body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/api/reval/reload?filePath=src/app.js", reqs[0].RequestURI)
	assert.Equal(t, string(body), reqs[0].Body)
	assert.Equal(t, int64(len(body)), reqs[0].ContentLength)
}

func TestDispatch_NilBodySendsNoPayload(t *testing.T) {
	srv, requests := fakeServer(t, http.StatusOK)

	_, err := newTestDispatcher().Dispatch(context.Background(), targetFor(t, srv, "/reval/clear"), nil)
	require.NoError(t, err)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Body)
	assert.Equal(t, int64(0), reqs[0].ContentLength)
}

func TestDispatch_AnyStatusIsAResponse(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, requests := fakeServer(t, status)

			res, err := newTestDispatcher().Dispatch(context.Background(), targetFor(t, srv, "/reval/clear"), nil)
			require.NoError(t, err)
			assert.Equal(t, status, res.StatusCode)
			assert.Len(t, requests(), 1)
		})
	}
}

func TestDispatch_DefaultMethodIsPost(t *testing.T) {
	srv, requests := fakeServer(t, http.StatusOK)
	target := targetFor(t, srv, "/reval/clear")
	target.Method = ""

	_, err := newTestDispatcher().Dispatch(context.Background(), target, nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, requests()[0].Method)
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestDispatch_ConnectionRefused(t *testing.T) {
	port := closedPort(t)
	target := Target{Host: "127.0.0.1", Port: port, Path: "/reval/clear", Method: http.MethodPost}

	res, err := newTestDispatcher().Dispatch(context.Background(), target, nil)
	require.Error(t, err)
	assert.Nil(t, res)

	terr, ok := IsTransportError(err)
	require.True(t, ok, "expected *TransportError, got %T", err)
	assert.Equal(t, "ECONNREFUSED", terr.Code)
	assert.Equal(t, "127.0.0.1", terr.Address)
	assert.Equal(t, port, terr.Port)
	assert.Equal(t, "Error: ECONNREFUSED\nAddress: 127.0.0.1\nPort: "+strconv.Itoa(port), terr.Detail())
}

func TestDispatch_CancelledContext(t *testing.T) {
	srv, requests := fakeServer(t, http.StatusOK)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestDispatcher().Dispatch(ctx, targetFor(t, srv, "/reval/clear"), nil)
	terr, ok := IsTransportError(err)
	require.True(t, ok)
	assert.Equal(t, "ECANCELED", terr.Code)
	assert.Empty(t, requests())
}

func TestDispatch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	logger, _ := logging.NewTestLogger()
	d := New(WithLogger(logger), WithTimeout(50*time.Millisecond))

	_, err := d.Dispatch(context.Background(), targetFor(t, srv, "/reval/clear"), nil)
	terr, ok := IsTransportError(err)
	require.True(t, ok)
	assert.Equal(t, "ETIMEDOUT", terr.Code)
}

func TestTargetURL(t *testing.T) {
	target := Target{Host: "myhost", Port: 8080, Path: "/api/reval/clear"}
	assert.Equal(t, "http://myhost:8080/api/reval/clear", target.URL())
}
