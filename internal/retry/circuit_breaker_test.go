package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wxerr "wxcipher/internal/errors"
)

var (
	errUpstream = errors.New("upstream 503")
	errNotFound = errors.New("no such city")
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg BreakerConfig) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clk.now
	return cb, clk
}

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{MaxFailures: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.CurrentState())
	assert.Equal(t, 3, cb.Failures())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, wxerr.ErrCircuitOpen)
	assert.False(t, called, "fn must not run while the circuit is open")
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{MaxFailures: 3})
	ctx := context.Background()

	cb.Execute(ctx, fail)    //nolint:errcheck
	cb.Execute(ctx, fail)    //nolint:errcheck
	cb.Execute(ctx, succeed) //nolint:errcheck

	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return !errors.Is(err, errNotFound) },
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := cb.Execute(ctx, func(context.Context) error { return fmt.Errorf("lookup: %w", errNotFound) })
		assert.ErrorIs(t, err, errNotFound)
	}
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	var transitions []string
	cb, clk := newTestBreaker(BreakerConfig{
		MaxFailures: 1,
		Cooldown:    10 * time.Second,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	cb.Execute(ctx, fail) //nolint:errcheck
	clk.advance(9 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeed), wxerr.ErrCircuitOpen)

	// The probe fails and the cooldown starts over.
	clk.advance(time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, cb.CurrentState())

	clk.advance(10 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.CurrentState())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func TestCircuitBreaker_SingleProbe(t *testing.T) {
	cb, clk := newTestBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Second})
	ctx := context.Background()

	cb.Execute(ctx, fail) //nolint:errcheck
	clk.advance(time.Second)

	err := cb.Execute(ctx, func(ctx context.Context) error {
		// A second caller is rejected while the probe is in flight.
		assert.ErrorIs(t, cb.Execute(ctx, succeed), wxerr.ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Hour})
	cb.Execute(context.Background(), fail) //nolint:errcheck
	require.Equal(t, StateOpen, cb.CurrentState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.CurrentState())
	assert.Equal(t, 0, cb.Failures())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
