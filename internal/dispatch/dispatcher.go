// Package dispatch sends the single HTTP request behind each reval command.
//
// Any HTTP response counts as delivered; the status code is reported but
// never inspected. Connection-level failures come back as *TransportError.
// There is no retry and no connection reuse between requests.
package dispatch

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"reval/internal/errors"
	"reval/internal/logging"
)

// Target is where a request goes. Path includes any query string.
type Target struct {
	Host   string
	Port   int
	Path   string
	Method string
}

// URL returns the absolute request URL.
func (t Target) URL() string {
	return "http://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port)) + t.Path
}

// Result describes a received response.
type Result struct {
	StatusCode int
}

// Dispatcher issues requests against reval servers.
type Dispatcher struct {
	client  *http.Client
	logger  *logging.AppLogger
	timeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each request. Zero, the default, enforces no timeout.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		dp.timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *logging.AppLogger) Option {
	return func(dp *Dispatcher) {
		dp.logger = logger
	}
}

// New creates a Dispatcher. Keep-alives are disabled so every command opens
// and closes its own connection.
func New(opts ...Option) *Dispatcher {
	dp := &Dispatcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:             nil,
				DisableKeepAlives: true,
				DialContext: (&net.Dialer{
					KeepAlive: -1,
				}).DialContext,
			},
		},
		logger: logging.GetDefault(),
	}
	for _, opt := range opts {
		opt(dp)
	}
	if dp.timeout > 0 {
		dp.client.Timeout = dp.timeout
	}
	return dp
}

// Dispatch sends one request to target. A nil body sends no payload; a
// non-nil body is written in full before the request ends.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, body []byte) (*Result, error) {
	start := time.Now()
	defer d.logger.LogPerformance("dispatch "+target.Path, start)

	method := target.Method
	if method == "" {
		method = http.MethodPost
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.URL(), reader)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", target.Path)
	}
	req.Close = true
	if body == nil {
		req.ContentLength = 0
	}

	d.logger.Debug("Sending reval request",
		"method", method,
		"url", target.URL(),
		"bytes", len(body),
	)

	resp, err := d.client.Do(req)
	if err != nil {
		terr := newTransportError(err, target)
		d.logger.Warn("Reval request failed",
			"code", terr.Code,
			"address", terr.Address,
			"port", terr.Port,
			"error", err,
		)
		return nil, terr
	}
	defer resp.Body.Close()

	// Drain so the server sees a clean close; the content is not used.
	_, _ = io.Copy(io.Discard, resp.Body)

	d.logger.Debug("Reval response received", "status", resp.StatusCode, "path", target.Path)
	return &Result{StatusCode: resp.StatusCode}, nil
}
