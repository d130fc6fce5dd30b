package apply

import "github.com/gitapply/gitapply/patch"

// PathStatus is the state of one path as earlier patches in the same
// run have left it, modeled as a proper sum type in place of the C
// source's sentinel-pointer reuse (spec.md §9).
type PathStatus int

const (
	// StatusNone means no earlier patch in this run touched the path.
	StatusNone PathStatus = iota
	// StatusPatched means an earlier patch produced an in-memory
	// postimage for this path; later reads should use it instead of
	// going to disk or the index.
	StatusPatched
	// StatusWasDeleted means an earlier patch deleted or renamed away
	// this path.
	StatusWasDeleted
	// StatusToBeDeleted means a later patch in the same run will
	// delete or rename this path; pre-announced during Prepare so a
	// create over the same path is allowed (a type change).
	StatusToBeDeleted
)

type pathEntry struct {
	status PathStatus
	patch  *patch.Patch
}

// PathStateTable tracks, per path, whether an earlier or later patch
// in the same run has patched, deleted, or will delete that path.
type PathStateTable struct {
	entries map[string]pathEntry
}

// NewPathStateTable returns an empty table.
func NewPathStateTable() *PathStateTable {
	return &PathStateTable{entries: make(map[string]pathEntry)}
}

// Prepare scans the patch list once and marks every path that some
// patch will rename-away or delete as StatusToBeDeleted, so that an
// earlier-in-order create over the same path (a type change) is
// permitted rather than rejected as a spurious conflict.
func (t *PathStateTable) Prepare(patches []*patch.Patch) {
	for _, p := range patches {
		if p.OldPath == "" {
			continue
		}
		if p.IsRename || p.NewPath == "" {
			t.entries[p.OldPath] = pathEntry{status: StatusToBeDeleted}
		}
	}
}

// Lookup returns the current status of path and, if StatusPatched, the
// patch that produced its postimage.
func (t *PathStateTable) Lookup(path string) (PathStatus, *patch.Patch) {
	e, ok := t.entries[path]
	if !ok {
		return StatusNone, nil
	}
	return e.status, e.patch
}

// MarkPatched records that p produced a postimage for path.
func (t *PathStateTable) MarkPatched(path string, p *patch.Patch) {
	if path == "" {
		return
	}
	t.entries[path] = pathEntry{status: StatusPatched, patch: p}
}

// MarkDeleted records that path was removed (by deletion or rename)
// and is no longer available as a preimage source.
func (t *PathStateTable) MarkDeleted(path string) {
	if path == "" {
		return
	}
	t.entries[path] = pathEntry{status: StatusWasDeleted}
}
