package gitstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// testRepoPath creates an on-disk repository.
func testRepoPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func TestIntegration_New_NotGitRepo(t *testing.T) {
	_, err := New(t.TempDir(), "projex", "")
	assert.Error(t, err)
}

func TestIntegration_Persistence(t *testing.T) {
	// Setup
	dir := testRepoPath(t)
	lock := filepath.Join(dir, ".projex", "git.lock")
	store, err := New(dir, "projex", lock)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())

	// Execute
	require.NoError(t, store.SaveTask(&domain.TaskRecord{ID: "t1", Title: "Persisted", Dependencies: domain.Refs("t0")}))
	require.NoError(t, store.SaveUser(&domain.UserRecord{ID: "u1", Name: "Ada"}))

	// Assert: a fresh handle sees the data
	reopened, err := New(dir, "projex", lock)
	require.NoError(t, err)
	assert.True(t, reopened.IsInitialized())
	task, err := reopened.GetTask("t1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Persisted", task.Title)
	assert.Equal(t, domain.Refs("t0"), task.Dependencies)

	_, err = os.Stat(lock)
	assert.NoError(t, err, "lock file is created by writers")
}

func TestIntegration_RefsVisible(t *testing.T) {
	dir := testRepoPath(t)
	store, err := New(dir, "projex", "")
	require.NoError(t, err)
	require.NoError(t, store.SaveTask(&domain.TaskRecord{ID: "t1", Title: "Visible"}))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.ReferenceName("refs/projex/tasks/t1"), true)
	require.NoError(t, err)

	blob, err := repo.BlobObject(ref.Hash())
	require.NoError(t, err)
	assert.Positive(t, blob.Size)
}

func TestIntegration_OpensFromSubdirectory(t *testing.T) {
	dir := testRepoPath(t)
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	store, err := New(sub, "projex", "")
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	assert.True(t, store.IsInitialized())
}
