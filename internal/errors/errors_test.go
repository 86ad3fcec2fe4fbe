package errors

import (
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateName string

func (s stateName) String() string { return string(s) }

func TestProtocolViolationError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *ProtocolViolationError
		want string
	}{
		{
			name: "state and reason",
			err:  Violation(stateName("AWAITING_CREDENTIALS"), "credential frame has no ',' delimiter"),
			want: "protocol violation in AWAITING_CREDENTIALS: credential frame has no ',' delimiter",
		},
		{
			name: "with cause",
			err:  &ProtocolViolationError{State: "READY", Err: ErrFrameTooLarge},
			want: "protocol violation in READY: frame exceeds maximum size",
		},
		{
			name: "bare",
			err:  &ProtocolViolationError{},
			want: "protocol violation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsProtocolViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"typed", Violation(stateName("READY"), "x"), true},
		{"wrapped typed", fmt.Errorf("session 3: %w", Violation(stateName("READY"), "x")), true},
		{"malformed frame", fmt.Errorf("read: %w", ErrMalformedFrame), true},
		{"oversized frame", ErrFrameTooLarge, true},
		{"eof", io.EOF, false},
		{"auth", ErrAuthFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsProtocolViolation(tt.err))
		})
	}
}

func TestNegotiationErrors(t *testing.T) {
	uc := &UnsupportedCipherError{Variant: "ENIGMA"}
	assert.Equal(t, `unsupported cipher variant "ENIGMA"`, uc.Error())

	ip := &InvalidParameterError{Variant: "VIGENERE", Param: "key", Reason: "must not be empty"}
	assert.Equal(t, "cipher VIGENERE: invalid key: must not be empty", ip.Error())

	assert.True(t, IsNegotiationError(fmt.Errorf("select: %w", uc)))
	assert.True(t, IsNegotiationError(ip))
	assert.False(t, IsNegotiationError(ErrMalformedFrame))
}

func TestProviderError(t *testing.T) {
	inner := fmt.Errorf("city not found")

	withStatus := &ProviderError{Key: "Atlantis", Status: 404, Err: inner}
	assert.Equal(t, `lookup "Atlantis": upstream status 404: city not found`, withStatus.Error())
	assert.True(t, Is(withStatus, inner))

	noStatus := &ProviderError{Key: "Athens", Err: io.ErrUnexpectedEOF}
	assert.Equal(t, `lookup "Athens": unexpected EOF`, noStatus.Error())
}

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "dial", Addr: "weather.example:65432", Err: io.EOF, Retryable: true},
			want: "dial weather.example:65432: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "listen", Addr: ":65432", Err: fmt.Errorf("bind failed")},
			want: "listen :65432: bind failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestSSHError(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := WrapSSH("handshake", "bastion.example.com", 22, inner)
	assert.Equal(t, "ssh handshake bastion.example.com:22: connection refused", err.Error())
	assert.True(t, Is(err, inner))
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 1-65535",
				Hint:    "use a port between 1 and 65535",
			},
			want: "config: --port=99999: out of range 1-65535\n  hint: use a port between 1 and 65535",
		},
		{
			name: "missing value no hint",
			err:  ConfigError{Field: "user", Message: "required in connect mode"},
			want: "config: --user: required in connect mode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap("dial", "10.0.0.1:65432", inner)

	require.Equal(t, "dial", err.Op)
	require.Equal(t, "10.0.0.1:65432", err.Addr)
	assert.True(t, Is(err, inner))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF}, false},
		{"refused dial", &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("connection refused")}, true},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrAuthFailed, ErrSessionTerminated, ErrNotConnected,
		ErrCircuitOpen, ErrMalformedFrame, ErrFrameTooLarge,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
