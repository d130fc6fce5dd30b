// Package apply implements the Hunk Locator & Applier and the
// File-State Manager: locating each hunk's position in a file's
// Line-Image with fuzzy fallbacks, producing postimages, and
// sequencing patches across a run with path-state tracking for
// renames and deletions.
package apply

import (
	"errors"

	"github.com/gitapply/gitapply/wsrule"
)

// Sentinel errors, checkable with errors.Is; the functions of this
// package wrap them with %w to add the path and detail.
var (
	ErrParse         = errors.New("apply: parse error")
	ErrSemantic      = errors.New("apply: semantic error")
	ErrNoMatch       = errors.New("apply: hunk does not match")
	ErrUnreversible  = errors.New("apply: cannot reverse-apply a binary patch without a reverse hunk")
	ErrHashMismatch  = errors.New("apply: postimage hash does not match index line")
)

// Session carries the per-run options that the original tool keeps as
// module-level mutable state: path-strip depth, whitespace policy,
// reject/reverse/no-add flags, and the running whitespace error
// counter.
type Session struct {
	PStrip        int
	Context       int // -C<N>, minimum required context; 0 means unconstrained
	UnidiffZero   bool
	InaccurateEOF bool
	Reverse       bool
	AllowReject   bool
	NoAdd         bool
	Cached        bool
	Index         bool

	WS *wsrule.Counter
}

// NewSession returns a Session with reasonable defaults matching the
// tool's own defaults (warn-mode whitespace checking, p=1).
func NewSession() *Session {
	return &Session{PStrip: 1, WS: wsrule.NewCounter(wsrule.Warn)}
}
