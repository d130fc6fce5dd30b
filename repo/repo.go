// Package repo implements the File-State Manager's external
// collaborator: reading a path's current index or working-tree blob,
// writing postimages out as create/delete/rewrite operations, and
// writing `.rej` reject files and the `--build-fake-ancestor` manifest.
//
// Grounded on the teacher's git.Repository (Path/GitDir, run/runLines
// via exec.CommandContext), repurposed from history/branch plumbing to
// index and working-tree I/O.
package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gitapply/gitapply/apply"
	"github.com/gitapply/gitapply/retry"
)

// ErrNotRepository is returned by Open when path is not inside a git
// working tree.
var ErrNotRepository = errors.New("repo: not a git repository")

// Repository is a handle on a git working tree and its index,
// providing the preimage/postimage I/O the File-State Manager needs.
type Repository struct {
	// Path is the root of the working tree.
	Path string
	// GitDir is the repository's .git directory.
	GitDir string
	// Directory, if set, is prepended to every target path before it
	// touches the working tree or index (the `--directory=<root>` flag).
	Directory string
	// UpdateIndex controls whether WriteFile/DeleteFile also touch the
	// git index (the `--index`/`--cached` flags); false for a plain
	// working-tree-only apply.
	UpdateIndex bool

	lockPath string
}

// Open opens the repository containing path.
func Open(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("repo: resolving path: %w", err)
	}

	cmd := exec.Command("git", "-C", absPath, "rev-parse", "--show-toplevel", "--git-dir")
	out, err := cmd.Output()
	if err != nil {
		return nil, ErrNotRepository
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return nil, ErrNotRepository
	}
	gitDir := lines[1]
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(lines[0], gitDir)
	}
	return &Repository{Path: lines[0], GitDir: gitDir}, nil
}

func (r *Repository) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.Path}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

func (r *Repository) resolve(path string) string {
	if r.Directory != "" {
		path = filepath.Join(r.Directory, path)
	}
	return path
}

func (r *Repository) abs(path string) string {
	return filepath.Join(r.Path, r.resolve(path))
}

// ReadIndexBlob implements apply.Repo.
func (r *Repository) ReadIndexBlob(ctx context.Context, path string) ([]byte, uint32, bool, error) {
	path = r.resolve(path)
	out, err := r.run(ctx, "ls-files", "--stage", "--", path)
	if err != nil {
		return nil, 0, false, err
	}
	line := strings.TrimSpace(string(out))
	if line == "" {
		return nil, 0, false, nil
	}
	fields := strings.Fields(strings.SplitN(line, "\n", 2)[0])
	if len(fields) < 2 {
		return nil, 0, false, fmt.Errorf("repo: malformed ls-files --stage output %q", line)
	}
	mode64, err := strconv.ParseUint(fields[0], 8, 32)
	if err != nil {
		return nil, 0, false, fmt.Errorf("repo: malformed index mode %q: %w", fields[0], err)
	}
	data, err := r.run(ctx, "cat-file", "blob", fields[1])
	if err != nil {
		return nil, 0, false, err
	}
	return data, uint32(mode64), true, nil
}

// ReadWorkingFile implements apply.Repo. A symlink's "content" is its
// target string, per spec.md §4.3.
func (r *Repository) ReadWorkingFile(path string) ([]byte, uint32, error) {
	full := r.abs(path)
	info, err := os.Lstat(full)
	if err != nil {
		return nil, 0, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(full)
		if err != nil {
			return nil, 0, err
		}
		return []byte(target), apply.ModeSymlink | 0o777, nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, 0, err
	}
	return data, modeOf(info), nil
}

func modeOf(info os.FileInfo) uint32 {
	if info.Mode()&0o111 != 0 {
		return 0o100755
	}
	return 0o100644
}

// WriteFile implements apply.Repo: writes the postimage to the working
// tree (honoring symlink mode), creating leading directories on
// ENOENT and clearing a stale directory on EEXIST (the working tree is
// not written when cached is set), then updates the index when
// UpdateIndex is set.
func (r *Repository) WriteFile(ctx context.Context, path string, data []byte, mode uint32, cached bool) error {
	if !cached {
		if err := r.writeWorkingFile(path, data, mode); err != nil {
			return err
		}
	}
	if r.UpdateIndex {
		return r.updateIndexEntry(ctx, path, data, mode)
	}
	return nil
}

// writeWorkingFile writes a postimage with O_CREAT|O_EXCL semantics,
// retrying past the two recoverable failures spec.md §4.3 names: a
// missing leading directory (create it and retry) and a stale
// directory occupying the target path from an earlier, now-removed
// patch (remove it and retry).
func (r *Repository) writeWorkingFile(path string, data []byte, mode uint32) error {
	full := r.abs(path)
	perm := os.FileMode(0o644)
	if mode&0o111 != 0 {
		perm = 0o755
	}

	create := func() (struct{}, error) {
		if mode&apply.ModeSymlink == apply.ModeSymlink {
			if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
				return struct{}{}, err
			}
			return struct{}{}, os.Symlink(string(data), full)
		}
		f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
		if err != nil {
			return struct{}{}, err
		}
		defer f.Close()
		_, werr := f.Write(data)
		return struct{}{}, werr
	}

	_, err := retry.Do(context.Background(), func() (struct{}, error) {
		res, err := create()
		if err == nil {
			return res, nil
		}
		switch {
		case isENOENT(err):
			if mkErr := os.MkdirAll(filepath.Dir(full), 0o755); mkErr != nil {
				return struct{}{}, retry.MarkPermanent(mkErr)
			}
		case isEEXIST(err):
			if info, statErr := os.Stat(full); statErr == nil && info.IsDir() {
				if rmErr := os.RemoveAll(full); rmErr != nil {
					return struct{}{}, retry.MarkPermanent(rmErr)
				}
			} else {
				return struct{}{}, retry.MarkPermanent(err)
			}
		}
		return struct{}{}, err
	}, retry.WithMaxAttempts(2), retry.WithRetryIf(func(err error) bool {
		return isENOENT(err) || isEEXIST(err)
	}))
	return err
}

func (r *Repository) updateIndexEntry(ctx context.Context, path string, data []byte, mode uint32) error {
	cmd := exec.CommandContext(ctx, "git", "-C", r.Path, "hash-object", "-w", "--stdin")
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("git hash-object: %s", strings.TrimSpace(stderr.String()))
	}
	hash := strings.TrimSpace(string(out))
	modeStr := fmt.Sprintf("%06o", mode&0o177777)
	_, err = r.run(ctx, "update-index", "--add", "--cacheinfo", modeStr+","+hash+","+r.resolve(path))
	return err
}

// DeleteFile implements apply.Repo.
func (r *Repository) DeleteFile(ctx context.Context, path string, cached bool, prune bool) error {
	if !cached {
		full := r.abs(path)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return err
		}
		if prune {
			pruneEmptyParents(r.Path, filepath.Dir(full))
		}
	}
	if r.UpdateIndex {
		if _, err := r.run(ctx, "update-index", "--remove", "--", r.resolve(path)); err != nil {
			return err
		}
	}
	return nil
}

// pruneEmptyParents removes dir and its ancestors, stopping at root or
// at the first non-empty directory, matching the rename-cleanup rule
// of spec.md §4.3.
func pruneEmptyParents(root, dir string) {
	for {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) != 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// WriteReject implements apply.Repo.
func (r *Repository) WriteReject(path string, header string, rejected [][]byte) error {
	full := r.abs(path) + ".rej"
	var buf bytes.Buffer
	buf.WriteString(header)
	for _, h := range rejected {
		buf.Write(h)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, buf.Bytes(), 0o644)
}

// LockIndex takes the exclusive index lock (git's own `index.lock`
// convention), held from the first preimage check through either a
// successful commit or a caller-visible failure, per spec.md §5.
func (r *Repository) LockIndex() error {
	path := filepath.Join(r.GitDir, "index.lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if isEEXIST(err) {
			return fmt.Errorf("repo: index is locked (stale %s?)", path)
		}
		return err
	}
	f.Close()
	r.lockPath = path
	return nil
}

// UnlockIndex releases the index lock without committing, the
// interrupt-safety guarantee of spec.md §5: callers should defer this
// immediately after a successful LockIndex.
func (r *Repository) UnlockIndex() error {
	if r.lockPath == "" {
		return nil
	}
	err := os.Remove(r.lockPath)
	r.lockPath = ""
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// AncestorEntry is one preimage blob recorded by WriteFakeAncestor.
type AncestorEntry struct {
	Path string
	Mode uint32
	Data []byte
}

// WriteFakeAncestor implements `--build-fake-ancestor=<file>`: it
// hashes every preimage blob touched by the patch set into the object
// store and writes a flat `path\0mode\0oid\n` manifest a downstream
// 3-way-merge tool can use to locate them, a simplified stand-in for a
// full git index (spec.md's Non-goals exclude 3-way merge itself; only
// enumerating the preimage blobs is in scope here).
func (r *Repository) WriteFakeAncestor(ctx context.Context, outPath string, entries []AncestorEntry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		cmd := exec.CommandContext(ctx, "git", "-C", r.Path, "hash-object", "-w", "--stdin")
		cmd.Stdin = bytes.NewReader(e.Data)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			return fmt.Errorf("git hash-object %s: %s", e.Path, strings.TrimSpace(stderr.String()))
		}
		oid := strings.TrimSpace(string(out))
		fmt.Fprintf(&buf, "%s\x00%06o\x00%s\n", e.Path, e.Mode, oid)
	}
	return os.WriteFile(outPath, buf.Bytes(), 0o644)
}

func isENOENT(err error) bool { return errors.Is(err, fs.ErrNotExist) }
func isEEXIST(err error) bool { return errors.Is(err, fs.ErrExist) }

var _ apply.Repo = (*Repository)(nil)
