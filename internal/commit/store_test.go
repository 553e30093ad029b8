package commit

import (
	"os"
	"path/filepath"
	"testing"

	"minivcs/internal/errors"
	"minivcs/internal/ignore"
	"minivcs/internal/index"
	"minivcs/internal/layout"
	"minivcs/internal/staging"
	"minivcs/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	root  layout.Root
	work  string
	area  *staging.Area
	index *index.Index
	store *Store
}

func setupStore(t *testing.T) *fixture {
	base := t.TempDir()
	root := layout.Root(filepath.Join(base, ".vcs"))
	work := filepath.Join(base, "work")
	require.NoError(t, os.MkdirAll(work, 0755))

	idx, err := index.Open(root.Index(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	area := staging.New(root.Staging(), ignore.NewMatcher(root.Ignore()), zap.NewNop())
	store, err := NewStore(root, area, idx, 0, zap.NewNop())
	require.NoError(t, err)

	return &fixture{root: root, work: work, area: area, index: idx, store: store}
}

func (f *fixture) stage(t *testing.T, name, content string) {
	path := filepath.Join(f.work, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	_, err := f.area.Stage(path)
	require.NoError(t, err)
}

func (f *fixture) commit(t *testing.T, message string, files map[string]string) string {
	for name, content := range files {
		f.stage(t, name, content)
	}
	id, err := f.store.Commit("main", message)
	require.NoError(t, err)
	return id
}

func TestCommit(t *testing.T) {
	t.Run("snapshot matches staged content", func(t *testing.T) {
		f := setupStore(t)
		content := "line one\r\nline two\n\x00binary-ish"
		id := f.commit(t, "first", map[string]string{"a.txt": content, "b.txt": ""})
		assert.Equal(t, "0000", id)

		snap, err := f.store.Snapshot("main", id)
		require.NoError(t, err)
		assert.Equal(t, []byte(content), snap["a.txt"])
		assert.Equal(t, []byte{}, snap["b.txt"])
		assert.NotContains(t, snap, layout.MessageFile)

		message, err := f.store.Message("main", id)
		require.NoError(t, err)
		assert.Equal(t, "first", message)

		empty, err := f.area.Empty()
		require.NoError(t, err)
		assert.True(t, empty, "staging is drained after commit")
	})

	t.Run("empty staging writes nothing", func(t *testing.T) {
		f := setupStore(t)
		f.commit(t, "first", map[string]string{"a.txt": "a"})

		_, err := f.store.Commit("main", "nothing")
		assert.True(t, errors.IsType(err, errors.ErrorTypeEmptyStaging))

		ids, err := f.store.List("main")
		require.NoError(t, err)
		assert.Equal(t, []string{"0000"}, ids)
		assert.NoDirExists(t, f.root.Commit("main", "0001"))
	})

	t.Run("ids are sequential without gaps", func(t *testing.T) {
		f := setupStore(t)
		for i := 0; i < 12; i++ {
			f.commit(t, "c", map[string]string{"a.txt": string(rune('a' + i))})
		}

		ids, err := f.store.List("main")
		require.NoError(t, err)
		require.Len(t, ids, 12)
		for i, id := range ids {
			want, err := layout.FormatID(i)
			require.NoError(t, err)
			assert.Equal(t, want, id)
		}
	})

	t.Run("removed commits do not free their id", func(t *testing.T) {
		f := setupStore(t)
		f.commit(t, "one", map[string]string{"a.txt": "1"})
		f.commit(t, "two", map[string]string{"a.txt": "2"})
		require.NoError(t, os.RemoveAll(f.root.Commit("main", "0001")))

		id := f.commit(t, "three", map[string]string{"a.txt": "3"})
		assert.Equal(t, "0002", id)
	})

	t.Run("stale counter is repaired from the directory", func(t *testing.T) {
		f := setupStore(t)
		require.NoError(t, os.MkdirAll(f.root.Commit("main", "0004"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(f.root.Commit("main", "0004"), "message"), []byte("x"), 0644))

		id := f.commit(t, "next", map[string]string{"a.txt": "a"})
		assert.Equal(t, "0005", id)
	})

	t.Run("failed write keeps staging", func(t *testing.T) {
		f := setupStore(t)
		require.NoError(t, os.MkdirAll(f.root.Branches(), 0755))
		// A file where the branch directory should be
		require.NoError(t, os.WriteFile(f.root.Branch("main"), []byte("x"), 0644))
		f.stage(t, "a.txt", "a")

		_, err := f.store.Commit("main", "fails")
		assert.Error(t, err)

		names, err := f.area.Names()
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt"}, names)
	})

	t.Run("id space is bounded to four digits", func(t *testing.T) {
		f := setupStore(t)
		require.NoError(t, f.index.RaiseCounter("main", layout.MaxID+1))
		f.stage(t, "a.txt", "a")

		_, err := f.store.Commit("main", "too many")
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

		empty, err := f.area.Empty()
		require.NoError(t, err)
		assert.False(t, empty)
	})
}

func TestLog(t *testing.T) {
	f := setupStore(t)

	log, err := f.store.Log("main")
	require.NoError(t, err)
	assert.Empty(t, log)

	f.commit(t, "first\n", map[string]string{"a.txt": "1"})
	f.commit(t, "second", map[string]string{"a.txt": "2"})
	f.commit(t, "third", map[string]string{"a.txt": "3"})

	// Stray entries are not commits
	require.NoError(t, os.WriteFile(filepath.Join(f.root.Branch("main"), "notes"), []byte("x"), 0644))

	log, err = f.store.Log("main")
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "0002", log[0].ID)
	assert.Equal(t, "third", log[0].Message)
	assert.Equal(t, "0001", log[1].ID)
	assert.Equal(t, "0000", log[2].ID)
	assert.Equal(t, "first", log[2].Message)
}

func TestSnapshot(t *testing.T) {
	f := setupStore(t)
	id := f.commit(t, "first", map[string]string{"a.txt": "hello\n"})

	t.Run("missing commit", func(t *testing.T) {
		_, err := f.store.Snapshot("main", "0009")
		assert.True(t, errors.IsType(err, errors.ErrorTypeCommitNotFound))

		_, err = f.store.Snapshot("nope", id)
		assert.True(t, errors.IsType(err, errors.ErrorTypeCommitNotFound))

		_, err = f.store.Snapshot("main", "../x")
		assert.True(t, errors.IsType(err, errors.ErrorTypeCommitNotFound))
	})

	t.Run("callers cannot mutate the cached copy", func(t *testing.T) {
		snap, err := f.store.Snapshot("main", id)
		require.NoError(t, err)
		snap["a.txt"][0] = 'j'
		snap["extra"] = []byte("x")

		again, err := f.store.Snapshot("main", id)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello\n"), again["a.txt"])
		assert.NotContains(t, again, "extra")
	})
}

func TestIncompleteCommit(t *testing.T) {
	f := setupStore(t)
	f.commit(t, "first", map[string]string{"a.txt": "1"})

	// Interrupted commit: directory and a file, but no message record
	partial := f.root.Commit("main", "0001")
	require.NoError(t, os.MkdirAll(partial, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(partial, "a.txt"), []byte("half"), 0644))

	log, err := f.store.Log("main")
	require.NoError(t, err)
	assert.Equal(t, []types.LogEntry{{ID: "0000", Message: "first"}}, log)

	assert.False(t, f.store.Exists("main", "0001"))
	_, err = f.store.Snapshot("main", "0001")
	assert.True(t, errors.IsType(err, errors.ErrorTypeCommitNotFound))

	id := f.commit(t, "retry", map[string]string{"a.txt": "2"})
	assert.Equal(t, "0002", id, "the incomplete directory keeps its id")

	log, err = f.store.Log("main")
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "0002", log[0].ID)
	assert.Equal(t, "0000", log[1].ID)
}
