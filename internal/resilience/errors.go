package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps a failure that is safe to retry, such as a timeout,
// a non-zero exit from an external tool, or a 5xx from an API.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// TokenLimitError reports that the oracle refused work because a rate or
// quota limit was reached. Work must be suspended and resumed later.
type TokenLimitError struct {
	Marker string
	Err    error
}

func (e *TokenLimitError) Error() string {
	msg := "oracle rate/token limit reached"
	if e.Marker != "" {
		msg += " (" + e.Marker + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TokenLimitError) Unwrap() error {
	return e.Err
}

// IsTokenLimit reports whether err or anything it wraps is a TokenLimitError.
func IsTokenLimit(err error) bool {
	var tl *TokenLimitError
	return errors.As(err, &tl)
}

// tokenLimitMarkers are the phrases that identify quota exhaustion in oracle output.
var tokenLimitMarkers = []string{
	"rate limit",
	"token limit",
	"quota exceeded",
	"too many requests",
	"capacity",
}

// DetectTokenLimit returns the first rate/quota marker found in text, or "".
func DetectTokenLimit(text string) string {
	lower := strings.ToLower(text)
	for _, m := range tokenLimitMarkers {
		if strings.Contains(lower, m) {
			return m
		}
	}
	return ""
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures).
func IsTransient(err error) bool {
	if err == nil || IsTokenLimit(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"deadline exceeded",
		"server closed idle connection",
		"overloaded",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry. 429 is excluded since
// it signals quota exhaustion.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 500, 502, 503, 504, 529:
		return true
	default:
		return false
	}
}
