package repo

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gitapply/gitapply/assert"
	"github.com/gitapply/gitapply/require"
)

func TestReadWorkingFileRegular(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello\n"), 0o644))

	r := &Repository{Path: dir}
	data, mode, err := r.ReadWorkingFile("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
	assert.Equal(t, uint32(0o100644), mode)
}

func TestReadWorkingFileExecutableBit(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(full, []byte("#!/bin/sh\n"), 0o755))

	r := &Repository{Path: dir}
	_, mode, err := r.ReadWorkingFile("run.sh")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o100755), mode)
}

func TestReadWorkingFileSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "target.txt"), []byte("content"), 0o644))
	require.NoError(t, os.Symlink("target.txt", filepath.Join(dir, "link.txt")))

	r := &Repository{Path: dir}
	data, mode, err := r.ReadWorkingFile("link.txt")
	require.NoError(t, err)
	assert.Equal(t, "target.txt", string(data))
	assert.True(t, mode&0o170000 != 0)
}

func TestWriteFileCreatesLeadingDirectories(t *testing.T) {
	dir := t.TempDir()
	r := &Repository{Path: dir}
	err := r.WriteFile(context.Background(), "a/b/c/new.txt", []byte("body\n"), 0o100644, false)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "a/b/c/new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "body\n", string(got))
}

func TestWriteFileRemovesStaleDirectoryAtTargetPath(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "target")
	require.NoError(t, os.MkdirAll(stale, 0o755))

	r := &Repository{Path: dir}
	err := r.WriteFile(context.Background(), "target", []byte("replaced\n"), 0o100644, false)
	require.NoError(t, err)

	got, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.Equal(t, "replaced\n", string(got))
}

func TestWriteFileCachedSkipsWorkingTree(t *testing.T) {
	dir := t.TempDir()
	r := &Repository{Path: dir}
	err := r.WriteFile(context.Background(), "cached-only.txt", []byte("x"), 0o100644, true)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "cached-only.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteFilePrunesEmptyParents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a/b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a/b/leaf.txt"), []byte("x"), 0o644))

	r := &Repository{Path: dir}
	err := r.DeleteFile(context.Background(), "a/b/leaf.txt", false, true)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "a"))
	assert.True(t, os.IsNotExist(err), "empty parent directories should be pruned")
}

func TestDeleteFileWithoutPruneLeavesEmptyParents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a/leaf.txt"), []byte("x"), 0o644))

	r := &Repository{Path: dir}
	err := r.DeleteFile(context.Background(), "a/leaf.txt", false, false)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDeleteFileNonexistentIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	r := &Repository{Path: dir}
	err := r.DeleteFile(context.Background(), "never-existed.txt", false, false)
	assert.NoError(t, err)
}

func TestWriteRejectWritesVerbatimHunkText(t *testing.T) {
	dir := t.TempDir()
	r := &Repository{Path: dir}
	err := r.WriteReject("sub/file.txt", "diff a/file.txt b/file.txt\t(rejected hunks)\n", [][]byte{
		[]byte("@@ -1,1 +1,1 @@\n-old\n+new\n"),
	})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "sub/file.txt.rej"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "rejected hunks")
	assert.Contains(t, string(got), "-old\n+new\n")
}

func TestDirectoryOptionPrependsBeforeWorkingTreeAccess(t *testing.T) {
	dir := t.TempDir()
	r := &Repository{Path: dir, Directory: "nested"}
	err := r.WriteFile(context.Background(), "f.txt", []byte("y"), 0o100644, false)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "nested", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "y", string(got))
}

func TestLockIndexRejectsWhenAlreadyLocked(t *testing.T) {
	gitDir := t.TempDir()
	r1 := &Repository{Path: gitDir, GitDir: gitDir}
	require.NoError(t, r1.LockIndex())
	defer r1.UnlockIndex()

	r2 := &Repository{Path: gitDir, GitDir: gitDir}
	err := r2.LockIndex()
	assert.Error(t, err)
}

func TestUnlockIndexIsIdempotent(t *testing.T) {
	r := &Repository{}
	assert.NoError(t, r.UnlockIndex())
}

func TestOpenRejectsNonRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	assert.ErrorIs(t, err, ErrNotRepository)
}
