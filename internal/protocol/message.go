package protocol

import (
	"strings"

	wxerr "wxcipher/internal/errors"
)

// Wire literals.
const (
	AckTrue       = "True"
	AckFalse      = "False"
	ExitToken     = "exit"
	credentialSep = ","
)

// Kind classifies an inbound frame.
type Kind int

const (
	KindCredentials Kind = iota
	KindCipherSelection
	KindQuery
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindCredentials:
		return "credentials"
	case KindCipherSelection:
		return "cipher-selection"
	case KindQuery:
		return "query"
	case KindExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Credentials is the first client frame.  The secret must never be
// logged or stored by the protocol layer.
type Credentials struct {
	Username string
	Secret   string
}

// Frame renders the credential frame.
func (c Credentials) Frame() string { return c.Username + credentialSep + c.Secret }

// ParseCredentials splits "<username>,<secret>" at the first comma, so
// the secret may itself contain commas.
func ParseCredentials(frame string) (Credentials, error) {
	user, secret, ok := strings.Cut(frame, credentialSep)
	if !ok {
		return Credentials{}, wxerr.Violation(AwaitingCredentials, "credential frame has no ',' delimiter")
	}
	return Credentials{Username: user, Secret: secret}, nil
}

// Message is a classified inbound frame.  Exactly one payload field is
// meaningful, selected by Kind.
type Message struct {
	Kind        Kind
	Credentials Credentials
	Selection   string // raw "<name>[:<param>]"
	Query       string
}

// Decode classifies frame for a server in state.  Frames that cannot
// occur in state are protocol violations.
func Decode(state State, frame string) (Message, error) {
	switch state {
	case AwaitingCredentials:
		c, err := ParseCredentials(frame)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindCredentials, Credentials: c}, nil
	case AwaitingCipherSelection:
		return Message{Kind: KindCipherSelection, Selection: frame}, nil
	case Ready:
		if IsExit(frame) {
			return Message{Kind: KindExit}, nil
		}
		return Message{Kind: KindQuery, Query: frame}, nil
	case Terminated:
		return Message{}, &wxerr.ProtocolViolationError{
			State:  state.String(),
			Reason: "frame after termination",
			Err:    wxerr.ErrSessionTerminated,
		}
	default:
		return Message{}, wxerr.Violation(state, "no frame is accepted in this state")
	}
}

// IsExit reports whether frame is the disconnect token.
func IsExit(frame string) bool { return strings.EqualFold(frame, ExitToken) }

// Ack renders an authentication acknowledgment.
func Ack(ok bool) string {
	if ok {
		return AckTrue
	}
	return AckFalse
}

// ParseAck reads an authentication acknowledgment on the client side.
func ParseAck(frame string) (bool, error) {
	switch frame {
	case AckTrue:
		return true, nil
	case AckFalse:
		return false, nil
	}
	return false, wxerr.Violation(AwaitingCredentials, "acknowledgment is neither True nor False")
}
