// Package lineimage implements the in-memory representation of a file
// being patched: a byte buffer paired with a per-line index carrying
// length, a whitespace-insensitive hash, and a small flag set.
package lineimage

import "fmt"

// Flag marks properties of a single line entry.
type Flag uint8

const (
	// Common marks a line that is shared between the pre- and
	// post-image of a hunk (a context line).
	Common Flag = 1 << iota
)

// Entry describes one line within an Image's buffer.
type Entry struct {
	Len   int
	Hash  uint32 // low 24 bits significant
	Flags Flag
}

// Image is a byte buffer plus a parallel line table. It is used both
// for whole-file content (the subject of a patch) and for the smaller
// preimage/postimage fragments built while walking a hunk body.
type Image struct {
	Buf   []byte
	Lines []Entry
}

// HashLine folds the non-whitespace bytes of line into a 24-bit hash,
// matching the original tool's line-hash fold exactly: whitespace
// bytes are skipped entirely rather than normalized.
func HashLine(line []byte) uint32 {
	var h uint32
	for _, b := range line {
		if isSpace(b) {
			continue
		}
		h = h*3 + uint32(b)
	}
	return h & 0xffffff
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// New builds an Image from raw file bytes, splitting on '\n' and
// retaining the terminator with each line except possibly the final
// unterminated line.
func New(buf []byte) *Image {
	im := &Image{Buf: buf}
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			line := buf[start : i+1]
			im.Lines = append(im.Lines, Entry{Len: len(line), Hash: HashLine(line)})
			start = i + 1
		}
	}
	if start < len(buf) {
		line := buf[start:]
		im.Lines = append(im.Lines, Entry{Len: len(line), Hash: HashLine(line)})
	}
	return im
}

// NumLines returns the number of line entries.
func (im *Image) NumLines() int { return len(im.Lines) }

// LineOffset returns the byte offset of the start of line i.
func (im *Image) LineOffset(i int) int {
	off := 0
	for j := 0; j < i; j++ {
		off += im.Lines[j].Len
	}
	return off
}

// Line returns the raw bytes of line i.
func (im *Image) Line(i int) []byte {
	off := im.LineOffset(i)
	return im.Buf[off : off+im.Lines[i].Len]
}

// Validate checks the Image's core invariant: the sum of line lengths
// equals the buffer length, and every recorded hash reproduces from
// the buffer.
func (im *Image) Validate() error {
	total := 0
	for i, e := range im.Lines {
		total += e.Len
		off := im.LineOffset(i)
		if HashLine(im.Buf[off:off+e.Len]) != e.Hash {
			return fmt.Errorf("lineimage: stale hash at line %d", i)
		}
	}
	if total != len(im.Buf) {
		return fmt.Errorf("lineimage: sum(len)=%d != len(buf)=%d", total, len(im.Buf))
	}
	return nil
}

// AppendLine appends one line (including its terminator, if any) to
// the image, recomputing its hash.
func (im *Image) AppendLine(b []byte) {
	im.Buf = append(im.Buf, b...)
	im.Lines = append(im.Lines, Entry{Len: len(b), Hash: HashLine(b)})
}

// PrependTrim drops the first n lines from the image. Used by the
// context-reduction fallback to shrink leading context.
func (im *Image) PrependTrim(n int) {
	if n <= 0 {
		return
	}
	if n > len(im.Lines) {
		n = len(im.Lines)
	}
	off := im.LineOffset(n)
	im.Buf = im.Buf[off:]
	im.Lines = im.Lines[n:]
}

// AppendTrim drops the last n lines from the image. Used by the
// context-reduction fallback to shrink trailing context.
func (im *Image) AppendTrim(n int) {
	if n <= 0 {
		return
	}
	if n > len(im.Lines) {
		n = len(im.Lines)
	}
	keep := len(im.Lines) - n
	off := im.LineOffset(keep)
	im.Buf = im.Buf[:off]
	im.Lines = im.Lines[:keep]
}

// Splice replaces the nr lines starting at pos with repl, a set of
// whole lines (each including its own terminator, if any), rebuilding
// the byte buffer and line table around the change.
func (im *Image) Splice(pos, nr int, repl *Image) {
	startOff := im.LineOffset(pos)
	endOff := im.LineOffset(pos + nr)

	newBuf := make([]byte, 0, len(im.Buf)-(endOff-startOff)+len(repl.Buf))
	newBuf = append(newBuf, im.Buf[:startOff]...)
	newBuf = append(newBuf, repl.Buf...)
	newBuf = append(newBuf, im.Buf[endOff:]...)

	newLines := make([]Entry, 0, len(im.Lines)-nr+len(repl.Lines))
	newLines = append(newLines, im.Lines[:pos]...)
	newLines = append(newLines, repl.Lines...)
	newLines = append(newLines, im.Lines[pos+nr:]...)

	im.Buf = newBuf
	im.Lines = newLines
}

// ReplaceLine overwrites line i's bytes in place. newData must be no
// longer than the line it replaces; this is the operation whitespace
// fuzz-matching uses to substitute a corrected spelling, and its
// length-monotone contract is what keeps it safe.
func (im *Image) ReplaceLine(i int, newData []byte) error {
	if len(newData) > im.Lines[i].Len {
		return fmt.Errorf("lineimage: replacement for line %d grows length (%d > %d)", i, len(newData), im.Lines[i].Len)
	}
	off := im.LineOffset(i)
	old := im.Lines[i].Len
	buf := make([]byte, 0, len(im.Buf)-old+len(newData))
	buf = append(buf, im.Buf[:off]...)
	buf = append(buf, newData...)
	buf = append(buf, im.Buf[off+old:]...)
	im.Buf = buf
	im.Lines[i].Len = len(newData)
	im.Lines[i].Hash = HashLine(newData)
	return nil
}

// Clone returns a deep copy of the image, used before a speculative
// match attempt that might need to be discarded.
func (im *Image) Clone() *Image {
	buf := make([]byte, len(im.Buf))
	copy(buf, im.Buf)
	lines := make([]Entry, len(im.Lines))
	copy(lines, im.Lines)
	return &Image{Buf: buf, Lines: lines}
}
