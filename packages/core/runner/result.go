package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/restfile/restfile/packages/http"
)

// FailureKind classifies why an execution failed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureCancelled
	FailureTimeout
	FailureTransport
	FailureGeneric
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureCancelled:
		return "cancelled"
	case FailureTimeout:
		return "timeout"
	case FailureTransport:
		return "transport"
	case FailureGeneric:
		return "error"
	}
	return "unknown"
}

// Result captures one execution: the request as actually sent, the response
// when the call completed, and a failure classification when it didn't.
// Success tracks the call, not the HTTP status; a 500 is a successful
// execution.
type Result struct {
	Name        string
	Success     bool
	FailureKind FailureKind
	Error       string
	Request     *http.Request
	Response    *http.Response
	Duration    time.Duration
}

// DocumentResult aggregates the in-order results of one document run.
type DocumentResult struct {
	Path      string
	Results   []*Result
	Duration  time.Duration
	Succeeded int
	Failed    int
}

// classify maps an execution error to a failure kind and a message,
// most specific first: cancellation, then timeout, then transport.
func classify(err error) (FailureKind, string) {
	if errors.Is(err, context.Canceled) {
		return FailureCancelled, "request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout, fmt.Sprintf("request timed out: %v", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout, fmt.Sprintf("request timed out: %v", err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	var urlErr *url.Error
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) || errors.As(err, &urlErr) {
		return FailureTransport, fmt.Sprintf("connection failed: %v", err)
	}

	return FailureGeneric, err.Error()
}
