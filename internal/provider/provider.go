// Package provider supplies the weather records that sessions encode
// and return.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	wxerr "wxcipher/internal/errors"
)

// ErrNotFound is wrapped by lookups for a location the upstream does
// not know.
var ErrNotFound = errors.New("location not found")

// Provider fetches the record for a location key.  Implementations
// must be safe for concurrent use.  Errors should be
// *errors.ProviderError.
type Provider interface {
	Fetch(ctx context.Context, key string) (string, error)
}

// Func adapts a function to [Provider].
type Func func(ctx context.Context, key string) (string, error)

// Fetch implements [Provider].
func (f Func) Fetch(ctx context.Context, key string) (string, error) { return f(ctx, key) }

// FailureText is the response sent in place of a record when a lookup
// fails.
func FailureText(key string) string {
	return fmt.Sprintf("Error: Unable to fetch weather data for %s.", key)
}

// FailureKind classifies a lookup error for metrics.
func FailureKind(err error) string {
	var pe *wxerr.ProviderError
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, wxerr.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.As(err, &pe) && pe.Status != 0:
		return "upstream_status"
	default:
		return "upstream"
	}
}

// countsAgainstUpstream reports whether err indicates the upstream is
// unhealthy, as opposed to a bad key or a caller giving up.
func countsAgainstUpstream(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	var pe *wxerr.ProviderError
	if errors.As(err, &pe) && pe.Status >= 400 && pe.Status < 500 && pe.Status != http.StatusTooManyRequests {
		return false
	}
	return true
}
