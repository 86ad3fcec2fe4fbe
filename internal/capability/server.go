package capability

import (
	"context"
	"time"

	"wxcipher/internal/cipher"
	wxerr "wxcipher/internal/errors"
	"wxcipher/internal/metrics"
	"wxcipher/internal/protocol"
	"wxcipher/internal/provider"
	"wxcipher/internal/session"
	"wxcipher/internal/userdb"
)

// Server drives the server side of the session protocol.  One Server
// is shared by every session; it holds no per-session state.
type Server struct {
	Auth     userdb.Authenticator
	Provider provider.Provider
	Metrics  *metrics.Collector

	// Defaults fill in a cipher parameter the client left out.
	Defaults cipher.Params

	// FetchTimeout bounds each provider lookup.  Zero means no bound
	// beyond the session's context.
	FetchTimeout time.Duration
}

// Handle authenticates the client, settles the cipher and answers
// queries until the client exits or hangs up.  Out-of-turn or
// malformed frames end the session without a response.
func (s *Server) Handle(ctx context.Context, sess *session.Session) error {
	ok, err := s.authenticate(ctx, sess)
	if err != nil || !ok {
		return err
	}

	spec, err := s.negotiate(ctx, sess)
	if err != nil {
		return err
	}
	return s.serve(ctx, sess, spec)
}

func (s *Server) authenticate(ctx context.Context, sess *session.Session) (bool, error) {
	frame, err := readFrame(ctx, sess)
	if err != nil {
		return false, s.ended(sess, err)
	}
	s.Metrics.BytesReceived(len(frame))

	msg, err := protocol.Decode(sess.Machine.State(), frame)
	if err != nil {
		return false, s.violation(sess, err)
	}

	user := msg.Credentials.Username
	ok, err := s.Auth.Verify(ctx, user, msg.Credentials.Secret)
	switch {
	case err != nil:
		sess.Logger.Error("session %d: credential store: %v", sess.ID, err)
		s.Metrics.AuthResult(metrics.AuthError)
		ok = false
	case ok:
		s.Metrics.AuthResult(metrics.AuthAccepted)
	default:
		s.Metrics.AuthResult(metrics.AuthRejected)
	}

	if err := sess.Machine.Authenticate(ok); err != nil {
		return false, s.violation(sess, err)
	}
	if err := s.send(ctx, sess, protocol.Ack(ok)); err != nil {
		return false, err
	}

	if !ok {
		sess.Logger.Warn("session %d: authentication failed for user %q", sess.ID, user)
		return false, wxerr.ErrAuthFailed
	}
	sess.Logger.Info("session %d: user %q authenticated", sess.ID, user)
	return true, nil
}

// negotiate reads the selection.  An unknown variant or unusable
// parameter does not end the session: it falls back to no cipher.
func (s *Server) negotiate(ctx context.Context, sess *session.Session) (cipher.Spec, error) {
	frame, err := readFrame(ctx, sess)
	if err != nil {
		return cipher.Spec{}, s.ended(sess, err)
	}
	s.Metrics.BytesReceived(len(frame))

	msg, err := protocol.Decode(sess.Machine.State(), frame)
	if err != nil {
		return cipher.Spec{}, s.violation(sess, err)
	}

	spec, err := cipher.ParseSelection(msg.Selection, s.Defaults)
	if err != nil {
		if !wxerr.IsNegotiationError(err) {
			return cipher.Spec{}, err
		}
		reason := "invalid_parameter"
		var uc *wxerr.UnsupportedCipherError
		if wxerr.As(err, &uc) {
			reason = "unsupported"
		}
		sess.Logger.Warn("session %d: %v; continuing without a cipher", sess.ID, err)
		s.Metrics.CipherFallback(reason)
		spec = cipher.Plain
	}

	if err := sess.Machine.SelectCipher(spec); err != nil {
		return cipher.Spec{}, s.violation(sess, err)
	}
	s.Metrics.CipherNegotiated(string(spec.Variant))
	sess.Logger.Verbose("session %d: cipher %s", sess.ID, spec)
	return spec, nil
}

func (s *Server) serve(ctx context.Context, sess *session.Session, spec cipher.Spec) error {
	for {
		frame, err := readFrame(ctx, sess)
		if err != nil {
			return s.ended(sess, err)
		}
		s.Metrics.BytesReceived(len(frame))

		msg, err := protocol.Decode(sess.Machine.State(), frame)
		if err != nil {
			return s.violation(sess, err)
		}
		if msg.Kind == protocol.KindExit {
			if err := sess.Machine.Exit(); err != nil {
				return s.violation(sess, err)
			}
			sess.Logger.Verbose("session %d: client exited", sess.ID)
			return nil
		}

		if err := sess.Machine.Query(); err != nil {
			return s.violation(sess, err)
		}
		out, err := spec.Encode(s.lookup(ctx, sess, msg.Query))
		if err != nil {
			// The spec was validated during negotiation.
			sess.Machine.Terminate()
			return err
		}
		if err := s.send(ctx, sess, out); err != nil {
			return err
		}
		s.Metrics.QueryAnswered()
	}
}

// lookup returns the record for key, or the failure text if the
// provider cannot supply one.
func (s *Server) lookup(ctx context.Context, sess *session.Session, key string) string {
	if s.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.FetchTimeout)
		defer cancel()
	}

	rec, err := s.Provider.Fetch(ctx, key)
	if err != nil {
		sess.Logger.Warn("session %d: %v", sess.ID, err)
		s.Metrics.ProviderFailure(provider.FailureKind(err))
		return provider.FailureText(key)
	}
	sess.Logger.Debug("session %d: record for %q (%d bytes)", sess.ID, key, len(rec))
	return rec
}

func (s *Server) send(ctx context.Context, sess *session.Session, payload string) error {
	if err := writeFrame(ctx, sess, payload); err != nil {
		s.Metrics.TransportError("write")
		return err
	}
	s.Metrics.BytesSent(len(payload))
	return nil
}

// ended classifies a failed read.  A hangup between frames is a normal
// end of session.
func (s *Server) ended(sess *session.Session, err error) error {
	if wxerr.IsProtocolViolation(err) {
		return s.violation(sess, err)
	}
	if isHangup(err) {
		sess.Logger.Verbose("session %d: peer closed the connection", sess.ID)
		return nil
	}
	s.Metrics.TransportError("read")
	return wxerr.Wrap("read", sess.Conn.RemoteAddr(), err)
}

func (s *Server) violation(sess *session.Session, err error) error {
	state := sess.Machine.State().String()
	var pv *wxerr.ProtocolViolationError
	if wxerr.As(err, &pv) && pv.State != "" {
		state = pv.State
	}
	sess.Machine.Terminate()
	s.Metrics.ProtocolViolation(state)
	return err
}
