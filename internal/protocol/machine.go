// Package protocol defines the per-connection session state machine.
//
// The same Machine drives both ends: the server advances it on frames
// it receives, the client advances it on frames it sends and the
// acknowledgments it gets back.  A Machine belongs to exactly one
// connection and is not safe for concurrent use.
package protocol

import (
	"wxcipher/internal/cipher"
	wxerr "wxcipher/internal/errors"
)

// State is a session phase.
type State int

const (
	AwaitingCredentials State = iota
	Authenticated
	AwaitingCipherSelection
	Ready
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingCredentials:
		return "AWAITING_CREDENTIALS"
	case Authenticated:
		return "AUTHENTICATED"
	case AwaitingCipherSelection:
		return "AWAITING_CIPHER_SELECTION"
	case Ready:
		return "READY"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Option configures a Machine.
type Option func(*Machine)

// WithObserver registers fn to be called on every state change.
func WithObserver(fn func(from, to State)) Option {
	return func(m *Machine) { m.observe = fn }
}

// Machine tracks one session's phase and negotiated cipher.
type Machine struct {
	state      State
	cipher     cipher.Spec
	negotiated bool
	observe    func(from, to State)
}

// NewMachine returns a machine in AwaitingCredentials.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{state: AwaitingCredentials}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the current phase.
func (m *Machine) State() State { return m.state }

// Cipher returns the negotiated spec.  ok is false until a cipher has
// been selected.
func (m *Machine) Cipher() (spec cipher.Spec, ok bool) {
	return m.cipher, m.negotiated
}

// Authenticate records the Authenticator's verdict.  Success moves
// through Authenticated to AwaitingCipherSelection; failure terminates.
func (m *Machine) Authenticate(ok bool) error {
	if err := m.expect(AwaitingCredentials, "credentials"); err != nil {
		return err
	}
	if !ok {
		m.set(Terminated)
		return nil
	}
	m.set(Authenticated)
	m.set(AwaitingCipherSelection)
	return nil
}

// SelectCipher fixes the session's cipher and enters Ready.  The spec
// cannot change afterwards.
func (m *Machine) SelectCipher(spec cipher.Spec) error {
	if err := m.expect(AwaitingCipherSelection, "cipher selection"); err != nil {
		return err
	}
	m.cipher = spec
	m.negotiated = true
	m.set(Ready)
	return nil
}

// Query checks that a query may be exchanged now.  It does not change
// state: Ready loops on itself.
func (m *Machine) Query() error {
	return m.expect(Ready, "query")
}

// Exit handles the disconnect token.
func (m *Machine) Exit() error {
	if err := m.expect(Ready, "exit"); err != nil {
		return err
	}
	m.set(Terminated)
	return nil
}

// Terminate ends the session from any state.  It is idempotent.
func (m *Machine) Terminate() {
	m.set(Terminated)
}

// expect terminates the machine and reports a violation unless it is in
// want.
func (m *Machine) expect(want State, what string) error {
	if m.state == want {
		return nil
	}
	current := m.state
	m.set(Terminated)
	if current == Terminated {
		return &wxerr.ProtocolViolationError{State: current.String(), Reason: what + " after termination", Err: wxerr.ErrSessionTerminated}
	}
	return wxerr.Violation(current, "unexpected "+what+", want state "+want.String())
}

func (m *Machine) set(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	if m.observe != nil {
		m.observe(from, to)
	}
}
