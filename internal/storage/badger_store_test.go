package storage

import (
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func (r *record) GetID() string {
	return r.ID
}

func setupTestDB(t *testing.T) (*badger.DB, func()) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Disable logging for tests

	db, err := badger.Open(opts)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}

	return db, cleanup
}

func TestBadgerStore(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBadgerStore(db, "record")

	t.Run("Create", func(t *testing.T) {
		require.NoError(t, store.Create(&record{ID: "a", Value: 1}))

		// Try to create duplicate
		err := store.Create(&record{ID: "a", Value: 2})
		assert.True(t, errors.Is(err, ErrAlreadyExists))

		assert.Error(t, store.Create(&record{}))
	})

	t.Run("Get", func(t *testing.T) {
		var got record
		require.NoError(t, store.Get("a", &got))
		assert.Equal(t, 1, got.Value)

		err := store.Get("does-not-exist", &got)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Put", func(t *testing.T) {
		require.NoError(t, store.Put(&record{ID: "a", Value: 5}))

		var got record
		require.NoError(t, store.Get("a", &got))
		assert.Equal(t, 5, got.Value)
	})

	t.Run("Modify", func(t *testing.T) {
		var r record
		require.NoError(t, store.Modify("m", &r, func() error {
			r.ID = "m"
			r.Value += 10
			return nil
		}))

		var again record
		require.NoError(t, store.Modify("m", &again, func() error {
			again.Value += 10
			return nil
		}))

		var got record
		require.NoError(t, store.Get("m", &got))
		assert.Equal(t, 20, got.Value)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Put(&record{ID: "x:1", Value: 1}))
		require.NoError(t, store.Put(&record{ID: "x:2", Value: 2}))

		var list []record
		require.NoError(t, store.List("x:", &list))
		require.Len(t, list, 2)
		assert.Equal(t, "x:1", list[0].ID)
		assert.Equal(t, "x:2", list[1].ID)

		var none []record
		require.NoError(t, store.List("nothing:", &none))
		assert.Empty(t, none)
	})

	t.Run("prefixes are isolated", func(t *testing.T) {
		other := NewBadgerStore(db, "other")
		var list []record
		require.NoError(t, other.List("", &list))
		assert.Empty(t, list)
	})
}
