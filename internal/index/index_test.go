package index

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupIndex(t *testing.T) (*Index, string) {
	dir := filepath.Join(t.TempDir(), "index")
	x, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { x.Close() })
	return x, dir
}

func TestCounters(t *testing.T) {
	x, _ := setupIndex(t)

	next, err := x.NextCommit("main")
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	require.NoError(t, x.RaiseCounter("main", 3))
	require.NoError(t, x.RaiseCounter("main", 1))

	next, err = x.NextCommit("main")
	require.NoError(t, err)
	assert.Equal(t, 3, next, "counter never goes down")
}

func TestOrigins(t *testing.T) {
	x, _ := setupIndex(t)

	require.NoError(t, x.RecordOrigin(Origin{Branch: "main", CommitID: "0002", SourceBranch: "feature"}))
	require.NoError(t, x.RecordOrigin(Origin{Branch: "main", CommitID: "0001", SourceBranch: "feature"}))
	require.NoError(t, x.RecordOrigin(Origin{Branch: "mainline", CommitID: "0001", SourceBranch: "x"}))

	o, err := x.Origin("main", "0002")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "feature", o.SourceBranch)
	assert.False(t, o.MergedAt.IsZero())

	missing, err := x.Origin("main", "0000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := x.Origins("main")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0001", list[0].CommitID)
	assert.Equal(t, "0002", list[1].CommitID)
}

func TestCopyBranch(t *testing.T) {
	x, _ := setupIndex(t)

	require.NoError(t, x.RaiseCounter("main", 4))
	require.NoError(t, x.RecordOrigin(Origin{Branch: "main", CommitID: "0003", SourceBranch: "old"}))
	require.NoError(t, x.CopyBranch("main", "feature"))

	next, err := x.NextCommit("feature")
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	o, err := x.Origin("feature", "0003")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "old", o.SourceBranch)
}

func TestRepositoryRecord(t *testing.T) {
	x, _ := setupIndex(t)

	rec, err := x.Repository()
	require.NoError(t, err)
	assert.Nil(t, rec)

	created, err := x.InitRepository()
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = x.InitRepository()
	assert.Error(t, err)

	rec, err = x.Repository()
	require.NoError(t, err)
	assert.Equal(t, created.ID, rec.ID)
}

func TestBackupRestore(t *testing.T) {
	x, _ := setupIndex(t)

	created, err := x.InitRepository()
	require.NoError(t, err)
	require.NoError(t, x.RaiseCounter("main", 2))

	var buf bytes.Buffer
	require.NoError(t, x.Backup(&buf))

	dst := filepath.Join(t.TempDir(), "restored")
	require.NoError(t, Restore(dst, &buf, zap.NewNop()))

	restored, err := Open(dst, zap.NewNop())
	require.NoError(t, err)
	defer restored.Close()

	next, err := restored.NextCommit("main")
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	rec, err := restored.Repository()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, created.ID, rec.ID)
}
