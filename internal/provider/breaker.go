package provider

import (
	"context"

	wxerr "wxcipher/internal/errors"
	"wxcipher/internal/retry"
)

type guarded struct {
	p  Provider
	cb *retry.CircuitBreaker
}

// BreakerConfig returns cfg with the failure classifier set so that
// unknown locations and abandoned requests never open the circuit.
func BreakerConfig(cfg retry.BreakerConfig) retry.BreakerConfig {
	cfg.IsFailure = countsAgainstUpstream
	return cfg
}

// WithBreaker guards p with cb.  While the circuit is open lookups
// fail fast with an error wrapping errors.ErrCircuitOpen.
func WithBreaker(p Provider, cb *retry.CircuitBreaker) Provider {
	return &guarded{p: p, cb: cb}
}

func (g *guarded) Fetch(ctx context.Context, key string) (string, error) {
	var rec string
	err := g.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		rec, err = g.p.Fetch(ctx, key)
		return err
	})
	if err != nil {
		var pe *wxerr.ProviderError
		if !wxerr.As(err, &pe) {
			err = &wxerr.ProviderError{Key: key, Err: err}
		}
		return "", err
	}
	return rec, nil
}
