// File-State Manager: sequences patches across a run, resolving each
// patch's preimage source (disk, index, or a prior patch's in-memory
// result), tracking the Path State Table, and handing postimages to a
// Repo collaborator for write-out.
package apply

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gitapply/gitapply/patch"
)

// modeTypeMask isolates the POSIX file-type bits (S_IFMT) of a mode
// value, used to detect a type change (regular file <-> symlink)
// between old_mode and new_mode.
const modeTypeMask = 0o170000

// ModeSymlink is the S_IFLNK type bits, used to decide whether a
// postimage should be written as a symlink target rather than regular
// file content.
const ModeSymlink = 0o120000

// Repo is the File-State Manager's external collaborator: the
// index/working-tree object store spec.md §1 places outside the core.
// A concrete implementation lives in package repo.
type Repo interface {
	// ReadIndexBlob returns a path's current index content and mode,
	// or found=false if the path is not in the index.
	ReadIndexBlob(ctx context.Context, path string) (data []byte, mode uint32, found bool, err error)
	// ReadWorkingFile returns a path's current working-tree content
	// (the symlink target bytes, for a symlink) and mode.
	ReadWorkingFile(path string) (data []byte, mode uint32, err error)
	// WriteFile writes a postimage to the working tree (and, unless
	// cached, the index), creating leading directories and retrying
	// past a stale directory at the target path as needed.
	WriteFile(ctx context.Context, path string, data []byte, mode uint32, cached bool) error
	// DeleteFile removes a path from the working tree (unless cached)
	// and the index, pruning emptied parent directories when prune is
	// set (the rename-source cleanup case).
	DeleteFile(ctx context.Context, path string, cached bool, prune bool) error
	// WriteReject writes the verbatim text of rejected hunks to
	// "<path>.rej".
	WriteReject(path string, header string, rejected [][]byte) error
}

// Result summarizes one run of Apply across a patch list.
type Result struct {
	Applied  []*patch.Patch
	Rejected []*patch.Patch
}

// Run sequences every patch in patches against repo, in the three
// phases described by spec.md §4.3: Prepare (seed the Path State
// Table), Check & Apply (resolve preimages and run the Applier in
// memory), and Write-out (deletions, then creations/rewrites).
//
// Any semantic or application failure not eligible for --reject aborts
// the whole run and returns the first error encountered; no partial
// write-out occurs in that case, matching spec.md §5's no-partial-commit
// guarantee.
func (sess *Session) Run(ctx context.Context, patches []*patch.Patch, repo Repo) (*Result, error) {
	table := NewPathStateTable()
	table.Prepare(patches)

	for _, p := range patches {
		if err := sess.checkAndApply(ctx, p, table, repo); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	for _, p := range patches {
		if p.IsDelete == patch.Yes || p.IsRename {
			if err := sess.writeOutDeletion(ctx, p, repo); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range patches {
		if p.IsDelete == patch.Yes && !p.IsRename {
			continue
		}
		if err := sess.writeOutCreate(ctx, p, repo); err != nil {
			return nil, err
		}
		if p.Rejected {
			res.Rejected = append(res.Rejected, p)
		} else {
			res.Applied = append(res.Applied, p)
		}
	}
	return res, nil
}

// checkAndApply resolves p's preimage, runs the Applier, and records
// the patch's effect on the Path State Table.
func (sess *Session) checkAndApply(ctx context.Context, p *patch.Patch, table *PathStateTable, repo Repo) error {
	var preimage []byte
	var observedMode uint32

	if p.OldPath != "" {
		status, prior := table.Lookup(p.OldPath)
		if status == StatusWasDeleted {
			return fmt.Errorf("%w: %s: no such file or directory (already removed by an earlier patch)", ErrSemantic, p.OldPath)
		}

		switch {
		case status == StatusPatched:
			preimage = prior.ResultBytes
			observedMode = prior.NewMode
		case sess.Index:
			data, mode, found, err := repo.ReadIndexBlob(ctx, p.OldPath)
			if err != nil {
				return fmt.Errorf("%w: %s: %s", ErrSemantic, p.OldPath, err)
			}
			if !found {
				return fmt.Errorf("%w: %s: not found in index", ErrSemantic, p.OldPath)
			}
			preimage, observedMode = data, mode
			if err := sess.verifyAgainstWorkingTree(p.OldPath, preimage, repo); err != nil {
				return err
			}
		default:
			data, mode, err := repo.ReadWorkingFile(p.OldPath)
			if err != nil {
				return fmt.Errorf("%w: %s: %s", ErrSemantic, p.OldPath, err)
			}
			preimage, observedMode = data, mode
		}

		if p.OldMode != 0 && observedMode != 0 {
			if (p.OldMode&modeTypeMask) != (observedMode & modeTypeMask) {
				return fmt.Errorf("%w: %s: file-type mismatch between patch and working tree", ErrSemantic, p.OldPath)
			}
			if p.OldMode != observedMode {
				slog.Warn("file mode mismatch", "path", p.OldPath, "declared", p.OldMode, "observed", observedMode)
			}
		}
	}

	result, err := sess.ApplyPatch(p, preimage)
	if err != nil {
		return err
	}
	p.ResultBytes = result

	if p.IsDelete == patch.Yes && len(p.ResultBytes) != 0 {
		return fmt.Errorf("%w: %s: declared deletion produced non-empty content", ErrSemantic, p.OldPath)
	}

	if p.NewMode == 0 {
		p.NewMode = observedMode
	}
	if p.NewMode == 0 {
		p.NewMode = 0o100644
	}

	if p.NewPath != "" {
		table.MarkPatched(p.NewPath, p)
	}
	if p.OldPath != "" && (p.IsRename || p.NewPath == "") {
		table.MarkDeleted(p.OldPath)
	}
	return nil
}

// verifyAgainstWorkingTree enforces the --index consistency rule: the
// on-disk content must match what the index says, or the patch is
// rejected as not applying.
func (sess *Session) verifyAgainstWorkingTree(path string, indexData []byte, repo Repo) error {
	wtData, _, err := repo.ReadWorkingFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: does not apply: %s", ErrSemantic, path, err)
	}
	if string(wtData) != string(indexData) {
		return fmt.Errorf("%w: %s: does not apply (working tree differs from index)", ErrSemantic, path)
	}
	return nil
}

func (sess *Session) writeOutDeletion(ctx context.Context, p *patch.Patch, repo Repo) error {
	if p.OldPath == "" {
		return nil
	}
	return repo.DeleteFile(ctx, p.OldPath, sess.Cached, p.IsRename)
}

func (sess *Session) writeOutCreate(ctx context.Context, p *patch.Patch, repo Repo) error {
	if p.NewPath == "" {
		return nil
	}

	if len(p.Hunks) > 0 {
		rejected := rejectedHunkTexts(p.Hunks)
		if len(rejected) > 0 {
			header := fmt.Sprintf("diff a/%s b/%s\t(rejected hunks)\n", p.NewPath, p.NewPath)
			if err := repo.WriteReject(p.NewPath, header, rejected); err != nil {
				return fmt.Errorf("writing reject file for %s: %w", p.NewPath, err)
			}
		}
	}

	return repo.WriteFile(ctx, p.NewPath, p.ResultBytes, p.NewMode, sess.Cached)
}

func rejectedHunkTexts(hunks []*patch.Hunk) [][]byte {
	var out [][]byte
	for _, h := range hunks {
		if h.Rejected {
			out = append(out, h.RawText())
		}
	}
	return out
}
