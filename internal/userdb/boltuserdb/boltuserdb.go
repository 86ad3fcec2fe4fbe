// Package boltuserdb implements the user database with a bbolt backend.
// Secrets are stored as salted scrypt hashes in CBOR-encoded records.
package boltuserdb

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/scrypt"

	"wxcipher/internal/userdb"
)

const (
	metadataBucket = "metadata"
	usersBucket    = "users"
	versionKey     = "version"
	dbVersion      = 0

	saltSize = 16
	hashSize = 32

	openTimeout = 2 * time.Second
)

// record is the value stored per user.
type record struct {
	Salt []byte `cbor:"salt"`
	Hash []byte `cbor:"hash"`
	N    int    `cbor:"n"`
	R    int    `cbor:"r"`
	P    int    `cbor:"p"`
}

// Option configures a database.
type Option func(*boltUserDB)

// WithScryptParams overrides the cost parameters used for newly added
// secrets.  Existing records keep the parameters they were hashed with.
func WithScryptParams(n, r, p int) Option {
	return func(d *boltUserDB) {
		d.n, d.r, d.p = n, r, p
	}
}

type boltUserDB struct {
	sync.RWMutex

	db        *bolt.DB
	userCache map[string]bool

	n, r, p int

	// dummy is hashed against when the user is unknown so that a
	// failed lookup costs the same as a wrong secret.
	dummy record
}

func (d *boltUserDB) Exists(u string) bool {
	u, err := userdb.NormalizeUsername(u)
	if err != nil {
		return false
	}

	d.RLock()
	defer d.RUnlock()

	return d.userCache[u]
}

func (d *boltUserDB) Verify(ctx context.Context, u, secret string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	rec := d.dummy
	known := false
	if n, err := userdb.NormalizeUsername(u); err == nil {
		if err := d.db.View(func(tx *bolt.Tx) error {
			raw := tx.Bucket([]byte(usersBucket)).Get([]byte(n))
			if raw == nil {
				return nil
			}
			known = true
			return cbor.Unmarshal(raw, &rec)
		}); err != nil {
			return false, fmt.Errorf("userdb: lookup: %w", err)
		}
	}

	hash, err := scrypt.Key([]byte(secret), rec.Salt, rec.N, rec.R, rec.P, hashSize)
	if err != nil {
		return false, fmt.Errorf("userdb: hash: %w", err)
	}
	match := subtle.ConstantTimeCompare(hash, rec.Hash) == 1
	return known && match, nil
}

func (d *boltUserDB) Add(u, secret string, update bool) error {
	u, err := userdb.NormalizeUsername(u)
	if err != nil {
		return err
	}
	switch d.Exists(u) {
	case true:
		if !update {
			return userdb.ErrUserExists
		}
	case false:
		if update {
			return userdb.ErrNoSuchUser
		}
	}

	rec, err := d.hash(secret)
	if err != nil {
		return err
	}
	raw, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}

	err = d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(usersBucket)).Put([]byte(u), raw)
	})
	if err == nil {
		d.Lock()
		defer d.Unlock()

		d.userCache[u] = true
	}
	return err
}

func (d *boltUserDB) Remove(u string) error {
	u, err := userdb.NormalizeUsername(u)
	if err != nil {
		return err
	}

	err = d.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(usersBucket))

		// Delete the user's entry iff it exists.
		if ent := bkt.Get([]byte(u)); ent == nil {
			return userdb.ErrNoSuchUser
		}
		return bkt.Delete([]byte(u))
	})
	if err == nil {
		d.Lock()
		defer d.Unlock()

		delete(d.userCache, u)
	}
	return err
}

func (d *boltUserDB) Users() ([]string, error) {
	var users []string
	err := d.db.View(func(tx *bolt.Tx) error {
		// bbolt iterates keys in byte order.
		return tx.Bucket([]byte(usersBucket)).ForEach(func(k, _ []byte) error {
			users = append(users, string(k))
			return nil
		})
	})
	return users, err
}

func (d *boltUserDB) Close() error {
	d.db.Sync() //nolint:errcheck
	return d.db.Close()
}

func (d *boltUserDB) hash(secret string) (record, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return record{}, err
	}
	h, err := scrypt.Key([]byte(secret), salt, d.n, d.r, d.p, hashSize)
	if err != nil {
		return record{}, fmt.Errorf("userdb: hash: %w", err)
	}
	return record{Salt: salt, Hash: h, N: d.n, R: d.r, P: d.p}, nil
}

// New creates (or loads) a user database with the given file name f.
func New(f string, opts ...Option) (userdb.UserDB, error) {
	var err error

	d := &boltUserDB{
		userCache: make(map[string]bool),
		n:         1 << 15,
		r:         8,
		p:         1,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.dummy, err = d.hash(""); err != nil {
		return nil, err
	}

	d.db, err = bolt.Open(f, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("userdb: open %s: %w", f, err)
	}

	if err = d.db.Update(func(tx *bolt.Tx) error {
		// Ensure that all the buckets exists, and grab the metadata bucket.
		bkt, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		uBkt, err := tx.CreateBucketIfNotExists([]byte(usersBucket))
		if err != nil {
			return err
		}

		if b := bkt.Get([]byte(versionKey)); b != nil {
			// Loaded as opposed to created.
			if len(b) != 1 || b[0] != dbVersion {
				return fmt.Errorf("userdb: incompatible version: %v", b)
			}
			return uBkt.ForEach(func(k, _ []byte) error {
				d.userCache[string(k)] = true
				return nil
			})
		}

		return bkt.Put([]byte(versionKey), []byte{dbVersion})
	}); err != nil {
		// The struct isn't getting returned so clean up the database.
		d.db.Close()
		return nil, err
	}

	return d, nil
}
