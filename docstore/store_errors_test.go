package docstore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beyondbrewing/brewery-docstore/db"
)

// mockStore is a db.Store whose behaviour is scripted per test.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	raw, _ := args.Get(0).([]byte)
	return raw, args.Error(1)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Scan(ctx context.Context, prefix string) (db.KeyIterator, error) {
	args := m.Called(ctx, prefix)
	switch it := args.Get(0).(type) {
	case db.KeyIterator:
		return it, args.Error(1)
	case func() db.KeyIterator:
		return it(), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) FlushAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// failingIterator yields keys and then reports err.
type failingIterator struct {
	keys []string
	pos  int
	err  error
}

func (it *failingIterator) Next() bool {
	if it.pos >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}

func (it *failingIterator) Key() string  { return it.keys[it.pos-1] }
func (it *failingIterator) Err() error   { return it.err }
func (it *failingIterator) Close() error { return nil }

var errConnRefused = errors.New("dial tcp 127.0.0.1:6379: connection refused")

func TestStoreFailuresSurface(t *testing.T) {
	t.Run("Get", func(t *testing.T) {
		st := new(mockStore)
		st.On("Get", mock.Anything, "users:1").Return(nil, errConnRefused)
		c, err := New(st, "users")
		require.NoError(t, err)

		_, _, err = c.GetByID(ctx, "1")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, errConnRefused)

		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "get", se.Op)
		assert.Equal(t, "users:1", se.Key)
		st.AssertExpectations(t)
	})

	t.Run("Set", func(t *testing.T) {
		st := new(mockStore)
		st.On("Set", mock.Anything, "users:1", mock.Anything).Return(errConnRefused)
		c, err := New(st, "users")
		require.NoError(t, err)

		_, err = c.Insert(ctx, Document{"id": "1"})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		st.AssertExpectations(t)
	})

	t.Run("ScanOpen", func(t *testing.T) {
		st := new(mockStore)
		st.On("Scan", mock.Anything, "users:").Return(nil, errConnRefused)
		c, err := New(st, "users")
		require.NoError(t, err)

		_, err = c.Filter(ctx, Filter{"a": 1})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		_, err = c.Keys(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("ScanMidway", func(t *testing.T) {
		st := new(mockStore)
		st.On("Scan", mock.Anything, "users:").
			Return(&failingIterator{keys: []string{"users:1"}, err: errConnRefused}, nil)
		st.On("Get", mock.Anything, "users:1").Return([]byte(`{"id":"1","a":1}`), nil)
		c, err := New(st, "users")
		require.NoError(t, err)

		docs, err := c.Filter(ctx, Filter{"a": 1})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Nil(t, docs)
	})

	t.Run("ScanKeyVanished", func(t *testing.T) {
		st := new(mockStore)
		st.On("Scan", mock.Anything, "users:").Return(func() db.KeyIterator {
			return &failingIterator{keys: []string{"users:a", "users:b"}}
		}, nil)
		st.On("Get", mock.Anything, "users:a").Return(nil, db.ErrKeyNotFound)
		st.On("Get", mock.Anything, "users:b").Return([]byte(`{"id":"b"}`), nil)
		st.On("Delete", mock.Anything, "users:b").Return(1, nil).Once()
		c, err := New(st, "users")
		require.NoError(t, err)

		docs, err := c.Filter(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []Document{{"id": "b"}}, docs)

		n, err := c.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		var buf bytes.Buffer
		n, err = c.Export(ctx, &buf)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.JSONEq(t, `{"id":"b"}`, buf.String())

		n, err = c.Delete(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		st.AssertExpectations(t)
		st.AssertNotCalled(t, "Delete", mock.Anything, "users:a")
	})

	t.Run("Delete", func(t *testing.T) {
		st := new(mockStore)
		st.On("Delete", mock.Anything, "users:1").Return(0, errConnRefused)
		c, err := New(st, "users")
		require.NoError(t, err)

		_, err = c.Delete(ctx, Filter{"id": "1"})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("FlushAll", func(t *testing.T) {
		st := new(mockStore)
		st.On("FlushAll", mock.Anything).Return(errConnRefused)
		c, err := New(st, "users")
		require.NoError(t, err)

		assert.ErrorIs(t, c.DropDatabase(ctx), ErrStoreUnavailable)
	})

	t.Run("CorruptValue", func(t *testing.T) {
		st := new(mockStore)
		st.On("Get", mock.Anything, "users:1").Return([]byte("not json"), nil)
		c, err := New(st, "users")
		require.NoError(t, err)

		_, _, err = c.GetByID(ctx, "1")
		assert.ErrorIs(t, err, ErrInvalidDocument)
		assert.NotErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("NullValueIsAbsent", func(t *testing.T) {
		st := new(mockStore)
		st.On("Get", mock.Anything, "users:1").Return([]byte("null"), nil)
		c, err := New(st, "users")
		require.NoError(t, err)

		_, found, err := c.GetByID(ctx, "1")
		assert.NoError(t, err)
		assert.False(t, found)
	})
}

func TestCloseOwnedStore(t *testing.T) {
	st := new(mockStore)
	st.On("Close").Return(nil).Once()
	c, err := New(st, "users", WithOwnedStore())
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClosed)
	st.AssertExpectations(t)

	st = new(mockStore)
	st.On("Close").Return(errConnRefused)
	c, err = New(st, "users", WithOwnedStore())
	require.NoError(t, err)
	assert.ErrorIs(t, c.Close(), ErrStoreUnavailable)
}

func TestGetOrCreateLeavesBytesAlone(t *testing.T) {
	store := db.NewMemoryStore()
	c, err := New(store, "users")
	require.NoError(t, err)

	// Deliberately non-canonical JSON, as another writer might store it.
	raw := []byte(`{ "name" : "Ann",  "id":"a1" }`)
	require.NoError(t, store.Set(ctx, "users:a1", raw))

	doc, created, err := c.GetOrCreate(ctx, Filter{"name": "Ann"}, Document{"age": 1})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "a1", doc.ID())
	assert.Equal(t, raw, store.Raw("users:a1"))
	assert.Equal(t, 1, store.Len())
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, "users")
	assert.Error(t, err)

	for _, name := range []string{"", "a:b"} {
		_, err := New(db.NewMemoryStore(), name)
		assert.ErrorIs(t, err, ErrInvalidCollection)
	}
}
