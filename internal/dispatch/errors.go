package dispatch

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"syscall"

	"reval/internal/errors"
)

// TransportError is a connection-level failure: nothing was received from
// the server.
type TransportError struct {
	// Code is a short socket-style name such as ECONNREFUSED.
	Code string
	// Address is the dialed address when known, otherwise the configured host.
	Address string
	Port    int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reval request failed: %s (address %s, port %d)", e.Code, e.Address, e.Port)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Detail renders the multi-line description shown in warning notifications.
func (e *TransportError) Detail() string {
	return fmt.Sprintf("Error: %s\nAddress: %s\nPort: %d", e.Code, e.Address, e.Port)
}

// IsTransportError reports whether err wraps a *TransportError and returns it.
func IsTransportError(err error) (*TransportError, bool) {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr, true
	}
	return nil, false
}

var errnoCodes = []struct {
	errno syscall.Errno
	code  string
}{
	{syscall.ECONNREFUSED, "ECONNREFUSED"},
	{syscall.ECONNRESET, "ECONNRESET"},
	{syscall.ECONNABORTED, "ECONNABORTED"},
	{syscall.EHOSTUNREACH, "EHOSTUNREACH"},
	{syscall.ENETUNREACH, "ENETUNREACH"},
	{syscall.EADDRNOTAVAIL, "EADDRNOTAVAIL"},
	{syscall.EPIPE, "EPIPE"},
	{syscall.ETIMEDOUT, "ETIMEDOUT"},
}

func newTransportError(err error, target Target) *TransportError {
	terr := &TransportError{
		Code:    classify(err),
		Address: target.Host,
		Port:    target.Port,
		Err:     err,
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Addr != nil {
		if host, port, splitErr := net.SplitHostPort(opErr.Addr.String()); splitErr == nil {
			terr.Address = host
			if p, convErr := strconv.Atoi(port); convErr == nil {
				terr.Port = p
			}
		}
	}
	return terr
}

func classify(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "EAI_AGAIN"
		}
		return "ENOTFOUND"
	}

	for _, ec := range errnoCodes {
		if errors.Is(err, ec.errno) {
			return ec.code
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "ECANCELED"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return "ETIMEDOUT"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}
	return "EUNKNOWN"
}
