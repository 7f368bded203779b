package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error must not be transient")
	}
}

func TestIsTransient_TransientError(t *testing.T) {
	err := NewTransientError(errors.New("service unavailable"), 503)
	if !IsTransient(err) {
		t.Error("TransientError must be transient")
	}
	wrapped := fmt.Errorf("fetch boards: %w", err)
	if !IsTransient(wrapped) {
		t.Error("wrapped TransientError must stay transient")
	}
}

func TestIsTransient_Syscall(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		if !IsTransient(fmt.Errorf("dial: %w", errno)) {
			t.Errorf("%v must be transient", errno)
		}
	}
}

func TestIsTransient_MessagePatterns(t *testing.T) {
	for _, msg := range []string{
		"read tcp: connection reset by peer",
		"write: broken pipe",
		"lookup airlabs.co: no such host",
		"net/http: TLS handshake timeout",
	} {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("%q must be transient", msg)
		}
	}
}

func TestIsTransient_PermanentError(t *testing.T) {
	if IsTransient(errors.New("unexpected status 403")) {
		t.Error("a client error must not be transient")
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("gateway timeout")
	err := NewTransientError(inner, 504)
	if !errors.Is(err, inner) {
		t.Error("Unwrap must expose the inner error")
	}
	if err.Error() != inner.Error() {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("%d must be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("%d must not be retryable", code)
		}
	}
}
