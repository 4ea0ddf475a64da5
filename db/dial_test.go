package db

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	cases := []struct {
		target string
		want   any
	}{
		{"memory://", &MemoryStore{}},
		{"pebble://" + filepath.Join(dir, "p"), &PebbleDB{}},
		{"sqlite://" + filepath.Join(dir, "s.db"), &SQLiteStore{}},
		{"sqlite://:memory:", &SQLiteStore{}},
		{"redis://" + mr.Addr() + "/0", &RedisStore{}},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			st, err := Dial(ctx, tc.target)
			require.NoError(t, err)
			defer st.Close()
			assert.IsType(t, tc.want, st)

			require.NoError(t, st.Set(ctx, "k:1", []byte("v")))
			v, err := st.Get(ctx, "k:1")
			require.NoError(t, err)
			assert.Equal(t, "v", string(v))
		})
	}
}

func TestDialRejectsUnknownTargets(t *testing.T) {
	for _, target := range []string{"localhost:6379", "mongodb://x", "pebble://"} {
		st, err := Dial(ctx, target)
		assert.Error(t, err, target)
		assert.Nil(t, st, target)
	}

	_, err := Dial(ctx, "ftp://x")
	assert.ErrorIs(t, err, ErrUnsupportedTarget)
}

func TestNamespacesAreIsolated(t *testing.T) {
	dir := t.TempDir()

	t.Run("Pebble", func(t *testing.T) {
		path := filepath.Join(dir, "pebble")
		a, err := OpenPebble(path, WithNamespace("a"))
		require.NoError(t, err)
		require.NoError(t, a.Set(ctx, "users:1", []byte("a")))
		require.NoError(t, a.Close())

		b, err := OpenPebble(path, WithNamespace("b"))
		require.NoError(t, err)
		defer b.Close()

		_, err = b.Get(ctx, "users:1")
		assert.ErrorIs(t, err, ErrKeyNotFound)
		require.NoError(t, b.Set(ctx, "users:1", []byte("b")))
		require.NoError(t, b.FlushAll(ctx))
		require.NoError(t, b.Close())

		a, err = OpenPebble(path, WithNamespace("a"))
		require.NoError(t, err)
		defer a.Close()
		v, err := a.Get(ctx, "users:1")
		require.NoError(t, err)
		assert.Equal(t, "a", string(v))
	})

	t.Run("SQLite", func(t *testing.T) {
		path := filepath.Join(dir, "kv.db")
		a, err := OpenSQLite(path, WithNamespace("a"))
		require.NoError(t, err)
		defer a.Close()
		b, err := OpenSQLite(path, WithNamespace("b"))
		require.NoError(t, err)
		defer b.Close()

		require.NoError(t, a.Set(ctx, "users:1", []byte("a")))
		require.NoError(t, b.FlushAll(ctx))

		keys, err := scanAll(b, "")
		require.NoError(t, err)
		assert.Empty(t, keys)

		v, err := a.Get(ctx, "users:1")
		require.NoError(t, err)
		assert.Equal(t, "a", string(v))
	})
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("ab"), prefixUpperBound([]byte("aa")))
	assert.Equal(t, []byte{'a', 0x01}, prefixUpperBound([]byte{'a', 0x00}))
	assert.Equal(t, []byte("b"), prefixUpperBound([]byte{'a', 0xff}))
	assert.Nil(t, prefixUpperBound([]byte{0xff, 0xff}))
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `users:`, globEscape("users:"))
	assert.Equal(t, `a\*b\?\[c\]\\`, globEscape(`a*b?[c]\`))
}

func scanAll(s Store, prefix string) ([]string, error) {
	it, err := s.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return CollectKeys(it)
}
