// Package errors provides the error taxonomy for wxcipher.
//
// Sentinels cover conditions callers match with [Is]; structured types
// carry the context (protocol state, cipher variant, lookup key, address)
// needed to decide whether a session survives the failure and to log it
// usefully.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrAuthFailed        = errors.New("authentication failed")
	ErrSessionTerminated = errors.New("session terminated")
	ErrNotConnected      = errors.New("not connected")
	ErrCircuitOpen       = errors.New("circuit breaker is open")
	ErrMalformedFrame    = errors.New("malformed frame")
	ErrFrameTooLarge     = errors.New("frame exceeds maximum size")
)

// ── Protocol ─────────────────────────────────────────────────────────

// ProtocolViolationError reports a frame that arrived out of turn or
// could not be parsed for the session's current state.  The session
// that raised it is always terminated.
type ProtocolViolationError struct {
	State  string // state the session was in when the frame arrived
	Reason string
	Err    error // optional cause, e.g. ErrMalformedFrame
}

func (e *ProtocolViolationError) Error() string {
	s := "protocol violation"
	if e.State != "" {
		s += " in " + e.State
	}
	if e.Reason != "" {
		s += ": " + e.Reason
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ProtocolViolationError) Unwrap() error { return e.Err }

// Violation builds a ProtocolViolationError for state.
func Violation(state fmt.Stringer, reason string) *ProtocolViolationError {
	return &ProtocolViolationError{State: state.String(), Reason: reason}
}

// ── Cipher negotiation ───────────────────────────────────────────────

// UnsupportedCipherError is returned for a variant identifier that has
// no registered transform.
type UnsupportedCipherError struct {
	Variant string
}

func (e *UnsupportedCipherError) Error() string {
	return fmt.Sprintf("unsupported cipher variant %q", e.Variant)
}

// InvalidParameterError is returned when a variant's parameter is
// missing or unusable (an empty Vigenère key, a non-numeric shift).
type InvalidParameterError struct {
	Variant string
	Param   string
	Reason  string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("cipher %s: invalid %s: %s", e.Variant, e.Param, e.Reason)
}

// ── Upstream provider ────────────────────────────────────────────────

// ProviderError describes a failed record lookup.  It is never fatal to
// a session: the server turns it into a failure text response.
type ProviderError struct {
	Key    string
	Status int // upstream HTTP status, 0 if the request never completed
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("lookup %q: upstream status %d: %v", e.Key, e.Status, e.Err)
	}
	return fmt.Sprintf("lookup %q: %v", e.Key, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ── Transport ────────────────────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // "dial", "listen", "accept", "read", "write"
	Addr      string
	Err       error
	Retryable bool
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents a failure of the optional client-side SSH tunnel.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ── Configuration ────────────────────────────────────────────────────

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // flag name
	Value   interface{} // nil if missing
	Message string
	Hint    string // optional
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, detecting retryability from err.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsProtocolViolation reports whether err ends a session for breaking
// turn order or framing.
func IsProtocolViolation(err error) bool {
	var pv *ProtocolViolationError
	return errors.As(err, &pv) ||
		errors.Is(err, ErrMalformedFrame) ||
		errors.Is(err, ErrFrameTooLarge)
}

// IsNegotiationError reports whether err came from cipher selection.
func IsNegotiationError(err error) bool {
	var uc *UnsupportedCipherError
	var ip *InvalidParameterError
	return errors.As(err, &uc) || errors.As(err, &ip)
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// Refused dials are worth retrying while the server comes up.
		if opErr.Op == "dial" {
			return true
		}
		return opErr.Timeout()
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports ───────────────────────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
