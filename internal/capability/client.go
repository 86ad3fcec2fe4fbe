package capability

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"wxcipher/internal/cipher"
	wxerr "wxcipher/internal/errors"
	"wxcipher/internal/protocol"
	"wxcipher/internal/session"
)

// Client is the interactive side of the protocol: it logs in, selects
// a cipher, then sends each line of Stdin as a query and prints the
// decoded response to Stdout.  "exit" or end of input disconnects.
type Client struct {
	Username string
	Secret   string
	Cipher   cipher.Spec

	// Prompt, if set, is written to Stdout before each query.
	Prompt string
}

// Handle runs one client session.  A refused login returns an error
// wrapping errors.ErrAuthFailed.
func (c *Client) Handle(ctx context.Context, sess *session.Session) error {
	if err := c.Cipher.Validate(); err != nil {
		sess.Machine.Terminate()
		return err
	}
	if err := c.login(ctx, sess); err != nil {
		return err
	}

	if err := writeFrame(ctx, sess, c.Cipher.String()); err != nil {
		return err
	}
	if err := sess.Machine.SelectCipher(c.Cipher); err != nil {
		return err
	}
	sess.Logger.Verbose("cipher %s selected", c.Cipher)

	lines := readLines(ctx, sess.Stdin)
	for {
		c.prompt(sess)
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			c.exit(sess)
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			return c.exit(sess)
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if protocol.IsExit(line) {
			return c.exit(sess)
		}
		if err := c.query(ctx, sess, line); err != nil {
			return err
		}
	}
}

func (c *Client) login(ctx context.Context, sess *session.Session) error {
	creds := protocol.Credentials{Username: c.Username, Secret: c.Secret}
	if err := writeFrame(ctx, sess, creds.Frame()); err != nil {
		return err
	}
	frame, err := readFrame(ctx, sess)
	if err != nil {
		return fmt.Errorf("waiting for authentication: %w", err)
	}
	ok, err := protocol.ParseAck(frame)
	if err != nil {
		sess.Machine.Terminate()
		return err
	}
	if err := sess.Machine.Authenticate(ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %q: %w", c.Username, wxerr.ErrAuthFailed)
	}
	sess.Logger.Verbose("authenticated as %q", c.Username)
	return nil
}

func (c *Client) query(ctx context.Context, sess *session.Session, key string) error {
	if err := sess.Machine.Query(); err != nil {
		return err
	}
	if err := writeFrame(ctx, sess, key); err != nil {
		return err
	}
	resp, err := readFrame(ctx, sess)
	if err != nil {
		return fmt.Errorf("waiting for response: %w", err)
	}
	text, err := c.Cipher.Decode(resp)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err = io.WriteString(sess.Stdout, text)
	return err
}

// exit sends the disconnect token.  The server closes without replying.
func (c *Client) exit(sess *session.Session) error {
	err := sess.Conn.WriteFrame(context.Background(), protocol.ExitToken)
	if mErr := sess.Machine.Exit(); mErr != nil {
		sess.Machine.Terminate()
	}
	if err != nil {
		return wxerr.Wrap("write", sess.Conn.RemoteAddr(), err)
	}
	return nil
}

func (c *Client) prompt(sess *session.Session) {
	if c.Prompt != "" && sess.Stdout != nil {
		io.WriteString(sess.Stdout, c.Prompt) //nolint:errcheck
	}
}

// readLines feeds r's lines to a channel that closes at end of input.
// The reader goroutine may outlive ctx while blocked on r.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		if r == nil {
			return
		}
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
