package boltuserdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxcipher/internal/userdb"
)

var testUsers = map[string]string{
	"alice": "correct horse",
	"bob":   "pass,with,commas",
}

// Cheap scrypt parameters keep the tests fast.
func openTestDB(t *testing.T, path string) userdb.UserDB {
	t.Helper()
	d, err := New(path, WithScryptParams(1<<4, 1, 1))
	require.NoError(t, err, "New()")
	return d
}

func TestBoltUserDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")

	ok := t.Run("create", func(t *testing.T) { doTestCreate(t, path) })
	if !ok {
		t.Errorf("test failed, skipping load test")
		return
	}
	t.Run("load", func(t *testing.T) { doTestLoad(t, path) })
}

func doTestCreate(t *testing.T, path string) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	d := openTestDB(t, path)
	defer d.Close()

	for u, s := range testUsers {
		require.NoErrorf(d.Add(u, s, false), "Add(%v, s, false)", u)
	}

	for u, s := range testUsers {
		assert.True(d.Exists(u), "Exists('%s')", u)
		ok, err := d.Verify(ctx, u, s)
		require.NoError(err)
		assert.True(ok, "Verify('%s', s)", u)

		ok, err = d.Verify(ctx, u, s+"x")
		require.NoError(err)
		assert.False(ok)
	}

	assert.False(d.Exists("mallory"))
	ok, err := d.Verify(ctx, "mallory", testUsers["alice"])
	require.NoError(err)
	assert.False(ok)

	assert.ErrorIs(d.Add("alice", "other", false), userdb.ErrUserExists)
	assert.ErrorIs(d.Add("carol", "other", true), userdb.ErrNoSuchUser)
}

func doTestLoad(t *testing.T, path string) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	d := openTestDB(t, path)
	defer d.Close()

	users, err := d.Users()
	require.NoError(err)
	assert.Equal([]string{"alice", "bob"}, users)

	for u, s := range testUsers {
		assert.True(d.Exists(u), "Exists('%s')", u)
		ok, err := d.Verify(ctx, u, s)
		require.NoError(err)
		assert.True(ok)
	}

	require.NoError(d.Add("alice", "new secret", true))
	ok, err := d.Verify(ctx, "alice", "new secret")
	require.NoError(err)
	assert.True(ok)
	ok, err = d.Verify(ctx, "alice", testUsers["alice"])
	require.NoError(err)
	assert.False(ok)

	require.NoError(d.Remove("bob"))
	assert.False(d.Exists("bob"))
	assert.ErrorIs(d.Remove("bob"), userdb.ErrNoSuchUser)
}

func TestBoltUserDB_InvalidUsername(t *testing.T) {
	d := openTestDB(t, filepath.Join(t.TempDir(), "users.db"))
	defer d.Close()

	assert.ErrorIs(t, d.Add("a,b", "s", false), userdb.ErrInvalidUsername)
	assert.ErrorIs(t, d.Add("", "s", false), userdb.ErrInvalidUsername)

	ok, err := d.Verify(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, ok, "the empty secret must not match the dummy record")
}
