// Package patch implements the stateful parser that turns a unified
// diff byte stream into an ordered list of Patch records, each
// carrying its text or binary hunks.
package patch

import "github.com/gitapply/gitapply/wsrule"

// Tri is a tri-state flag: unknown, no, or yes. Several metadata
// fields start unknown and are resolved once the hunk body has been
// read.
type Tri int

const (
	Unknown Tri = iota
	No
	Yes
)

// BinaryMethod identifies how a binary hunk's payload was encoded.
type BinaryMethod int

const (
	BinaryNone BinaryMethod = iota
	BinaryLiteral
	BinaryDelta
)

// BinaryHunk is one base85-encoded, deflated binary patch block.
type BinaryHunk struct {
	Method      BinaryMethod
	Payload     []byte // deflated bytes, after base85 decoding
	OriginalLen int    // declared inflated length
}

// LineOp classifies one line of a text hunk body.
type LineOp int

const (
	OpContext LineOp = iota
	OpAdd
	OpDelete
)

// Line is one body line of a text hunk.
type Line struct {
	Op      LineOp
	Data    []byte // raw content, including trailing '\n' if present
	NoEOL   bool   // this line was followed by "\ No newline at end of file"
}

// Hunk is one `@@ -a,b +c,d @@` region and its body lines.
type Hunk struct {
	OldPos, OldLines int
	NewPos, NewLines int
	LeadingContext   int
	TrailingContext  int
	Header           []byte
	Lines            []Line
	Rejected         bool
}

// Patch describes a single file change: rename/copy/mode metadata,
// the text or binary hunks that make up its content change, and the
// runtime fields populated once the Applier runs.
type Patch struct {
	OldPath, NewPath string
	DefPath          string

	// oldPathFromSideLine/newPathFromSideLine record whether OldPath/
	// NewPath came from a traditional "--- "/"+++ " line, which is the
	// only path source the configured -p strip count applies to.
	// Rename/copy/def-path-derived paths are never p-stripped, per
	// git_header_name already stripping exactly one a/ or b/ prefix at
	// header-parse time.
	oldPathFromSideLine, newPathFromSideLine bool

	OldMode, NewMode uint32

	IsNew, IsDelete       Tri
	IsRename, IsCopy      bool
	IsBinary              bool
	InaccurateEOF         bool
	Recount               bool

	OldHashPrefix, NewHashPrefix string

	WSRule wsrule.RuleSet

	Hunks []*Hunk

	BinaryForward *BinaryHunk
	BinaryReverse *BinaryHunk

	ResultBytes []byte
	Rejected    bool
}

// TargetPath returns the path this patch ultimately refers to for
// write-out purposes: the new path, or the old path for a pure
// deletion.
func (p *Patch) TargetPath() string {
	if p.NewPath != "" {
		return p.NewPath
	}
	return p.OldPath
}

// RawText reconstructs the verbatim hunk text (the `@@ ... @@` header
// followed by its body lines with the op-prefix byte restored), the
// form written to a ".rej" file for a hunk the Applier could not
// locate.
func (h *Hunk) RawText() []byte {
	var buf []byte
	buf = append(buf, h.Header...)
	for _, l := range h.Lines {
		switch l.Op {
		case OpContext:
			buf = append(buf, ' ')
		case OpAdd:
			buf = append(buf, '+')
		case OpDelete:
			buf = append(buf, '-')
		}
		buf = append(buf, l.Data...)
		if l.NoEOL {
			buf = append(buf, "\\ No newline at end of file\n"...)
		}
	}
	return buf
}
