package export

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"minivcs/internal/commit"
	"minivcs/internal/errors"
	"minivcs/internal/ignore"
	"minivcs/internal/index"
	"minivcs/internal/layout"
	"minivcs/internal/staging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	base     string
	root     layout.Root
	idx      *index.Index
	exporter *Exporter
}

func setupExport(t *testing.T) *fixture {
	base := t.TempDir()
	root := layout.Root(filepath.Join(base, ".vcs"))
	work := filepath.Join(base, "work")
	require.NoError(t, os.MkdirAll(work, 0755))
	require.NoError(t, os.MkdirAll(root.Branch(layout.DefaultBranch), 0755))
	require.NoError(t, os.WriteFile(root.Head(), []byte("main"), 0644))
	require.NoError(t, os.WriteFile(root.Ignore(), []byte(".log\n"), 0644))

	idx, err := index.Open(root.Index(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	_, err = idx.InitRepository()
	require.NoError(t, err)

	area := staging.New(root.Staging(), ignore.NewMatcher(root.Ignore()), zap.NewNop())
	commits, err := commit.NewStore(root, area, idx, 0, zap.NewNop())
	require.NoError(t, err)

	for i, content := range []string{"hello\n", "hello\nworld\n"} {
		path := filepath.Join(work, "a.txt")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		_, err := area.Stage(path)
		require.NoError(t, err)
		_, err = commits.Commit("main", []string{"first", "second"}[i])
		require.NoError(t, err)
	}

	exporter, err := NewExporter(root, idx, 3, zap.NewNop())
	require.NoError(t, err)

	return &fixture{base: base, root: root, idx: idx, exporter: exporter}
}

// tree maps every file below dir, except the index database, to its content.
func tree(t *testing.T, dir string) map[string]string {
	files := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		if d.IsDir() {
			if rel == layout.IndexDir {
				return filepath.SkipDir
			}
			files[rel+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func assertSameIndex(t *testing.T, want *index.Index, dir string) {
	restored, err := index.Open(dir, zap.NewNop())
	require.NoError(t, err)
	defer restored.Close()

	wantRepo, err := want.Repository()
	require.NoError(t, err)
	gotRepo, err := restored.Repository()
	require.NoError(t, err)
	assert.Equal(t, wantRepo.ID, gotRepo.ID)

	next, err := restored.NextCommit("main")
	require.NoError(t, err)
	assert.Equal(t, 2, next)
}

func TestClone(t *testing.T) {
	t.Run("copies the tree verbatim", func(t *testing.T) {
		f := setupExport(t)
		dest := filepath.Join(f.base, "copy")

		require.NoError(t, f.exporter.Clone(dest))
		assert.Equal(t, tree(t, f.root.Path()), tree(t, dest))
		assertSameIndex(t, f.idx, layout.Root(dest).Index())
	})

	t.Run("clone is independent of the source", func(t *testing.T) {
		f := setupExport(t)
		dest := filepath.Join(f.base, "copy")
		require.NoError(t, f.exporter.Clone(dest))

		require.NoError(t, os.RemoveAll(f.root.Branch("main")))

		data, err := os.ReadFile(filepath.Join(layout.Root(dest).Commit("main", "0001"), "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hello\nworld\n", string(data))
	})

	t.Run("destination inside the repository", func(t *testing.T) {
		f := setupExport(t)
		dest := filepath.Join(f.root.Path(), "branches", "copy")

		err := f.exporter.Clone(dest)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		assert.NoDirExists(t, dest)
	})

	t.Run("sibling with a shared name prefix is allowed", func(t *testing.T) {
		f := setupExport(t)
		dest := f.root.Path() + "-copy"

		require.NoError(t, f.exporter.Clone(dest))
		assert.DirExists(t, layout.Root(dest).Commit("main", "0001"))
	})

	t.Run("existing destination", func(t *testing.T) {
		f := setupExport(t)
		dest := filepath.Join(f.base, "taken")
		require.NoError(t, os.Mkdir(dest, 0755))

		err := f.exporter.Clone(dest)
		assert.True(t, errors.IsType(err, errors.ErrorTypeDestinationExists))
	})
}

func TestBundle(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		f := setupExport(t)

		var buf bytes.Buffer
		require.NoError(t, f.exporter.Bundle(&buf))
		assert.Equal(t, []byte{0x28, 0xB5, 0x2F, 0xFD}, buf.Bytes()[:4], "zstd magic")

		dest := filepath.Join(f.base, "restored")
		require.NoError(t, f.exporter.Unbundle(&buf, dest))
		assert.Equal(t, tree(t, f.root.Path()), tree(t, dest))
		assertSameIndex(t, f.idx, layout.Root(dest).Index())
	})

	t.Run("existing destination", func(t *testing.T) {
		f := setupExport(t)
		err := f.exporter.Unbundle(strings.NewReader(""), f.root.Path())
		assert.True(t, errors.IsType(err, errors.ErrorTypeDestinationExists))
	})

	t.Run("corrupt bundle leaves nothing behind", func(t *testing.T) {
		f := setupExport(t)
		dest := filepath.Join(f.base, "broken")

		err := f.exporter.Unbundle(strings.NewReader("not a bundle"), dest)
		assert.Error(t, err)
		assert.NoDirExists(t, dest)
	})
}
