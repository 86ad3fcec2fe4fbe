// Package userdb defines the credential store consulted during session
// authentication.
package userdb

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/secure/precis"
)

// MaxUsernameSize is the maximum normalized username length in bytes.
const MaxUsernameSize = 64

var (
	// ErrNoSuchUser is returned when an operation names a user that is
	// not in the database.
	ErrNoSuchUser = errors.New("userdb: no such user")

	// ErrUserExists is returned by Add for an existing user unless an
	// update was requested.
	ErrUserExists = errors.New("userdb: user already exists")

	// ErrInvalidUsername is returned for a username that cannot appear
	// in a credential frame.
	ErrInvalidUsername = errors.New("userdb: invalid username")
)

// Authenticator decides whether a username/secret pair is valid.  An
// unknown user and a wrong secret are both (false, nil); a non-nil
// error means the store itself failed.  Implementations must be safe
// for concurrent use.
type Authenticator interface {
	Verify(ctx context.Context, username, secret string) (bool, error)
}

// UserDB is the interface provided by all persistent user database
// implementations.
type UserDB interface {
	Authenticator

	// Exists returns true iff the user exists.
	Exists(username string) bool

	// Add stores the user's secret.  Existing users have their secret
	// replaced if update is set, otherwise ErrUserExists is returned.
	Add(username, secret string, update bool) error

	// Remove deletes the user.
	Remove(username string) error

	// Users lists all usernames in sorted order.
	Users() ([]string, error)

	// Close releases the database.
	Close() error
}

// NormalizeUsername applies the PRECIS username profile (case
// preserved) and rejects names that could not be carried in a
// credential frame.
func NormalizeUsername(u string) (string, error) {
	n, err := precis.UsernameCasePreserved.String(u)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidUsername, u, err)
	}
	if n == "" {
		return "", fmt.Errorf("%w %q: empty", ErrInvalidUsername, u)
	}
	if len(n) > MaxUsernameSize {
		return "", fmt.Errorf("%w %q: longer than %d bytes", ErrInvalidUsername, u, MaxUsernameSize)
	}
	if strings.Contains(n, ",") {
		return "", fmt.Errorf("%w %q: contains ','", ErrInvalidUsername, u)
	}
	return n, nil
}

// Static is a fixed in-memory table of usernames to plaintext secrets.
// It is meant for tests and local demos.
type Static map[string]string

// Verify implements [Authenticator].
func (s Static) Verify(ctx context.Context, username, secret string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	want, ok := s[username]
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(secret)) == 1, nil
}

// Users lists the table's usernames in sorted order.
func (s Static) Users() []string {
	users := make([]string, 0, len(s))
	for u := range s {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}
