package apply

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gitapply/gitapply/base85"
	"github.com/gitapply/gitapply/lineimage"
	"github.com/gitapply/gitapply/patch"
	"github.com/gitapply/gitapply/wsrule"
)

// ApplyHunk locates and applies a single text hunk to img, mutating it
// in place on success. On failure it returns ErrNoMatch and leaves img
// unchanged, so the caller (ApplyPatch) can decide whether to reject
// the hunk or abort the whole patch.
func (sess *Session) ApplyHunk(img *lineimage.Image, h *patch.Hunk, ws wsrule.RuleSet) error {
	sess.checkWhitespace(h, ws)

	m, err := sess.Locate(img, h, ws)
	if err != nil {
		return err
	}

	if m.ReducedContext {
		slog.Warn("context reduced to apply hunk",
			"leading", m.Leading, "trailing", m.Trailing)
	}

	post := m.Post
	if sess.WS != nil && sess.WS.Mode == wsrule.Fix {
		post = trimTrailingBlankAdds(img, m.Pos, m.Pre, post)
	}

	img.Splice(m.Pos, m.Pre.NumLines(), post)
	return nil
}

// trimTrailingBlankAdds drops blank lines added at the very end of the
// file by this hunk, active only under the fix whitespace policy (the
// source's "recovered missing blank line at EOF" special case).
func trimTrailingBlankAdds(img *lineimage.Image, pos int, pre, post *lineimage.Image) *lineimage.Image {
	if pos+pre.NumLines() != img.NumLines() {
		return post
	}
	n := post.NumLines()
	for n > 0 && isBlankLine(post.Line(n-1)) && post.Lines[n-1].Flags&lineimage.Common == 0 {
		n--
	}
	if n == post.NumLines() {
		return post
	}
	trimmed := &lineimage.Image{}
	for i := 0; i < n; i++ {
		trimmed.AppendLine(post.Line(i))
		trimmed.Lines[i].Flags = post.Lines[i].Flags
	}
	return trimmed
}

func isBlankLine(b []byte) bool {
	t := bytes.TrimRight(b, "\n")
	return len(t) == 0
}

// checkWhitespace runs the whitespace rule engine over every added
// line of the hunk (or, in reverse mode, the lines that end up on the
// introducing side), recording violations on the session counter and
// rewriting the hunk's line data in place under the fix policy so that
// the fixed spelling is what ends up in the postimage.
func (sess *Session) checkWhitespace(h *patch.Hunk, ws wsrule.RuleSet) {
	if sess.WS == nil || sess.WS.Mode == wsrule.NoWarn {
		return
	}
	introducing := patch.OpAdd
	if sess.Reverse {
		introducing = patch.OpDelete
	}
	for i := range h.Lines {
		l := &h.Lines[i]
		if l.Op != introducing {
			continue
		}
		v := wsrule.Check(ws, l.Data)
		if v == 0 {
			continue
		}
		where := fmt.Sprintf("line %q", bytes.TrimRight(l.Data, "\n"))
		if sess.WS.Record(where, v) {
			slog.Warn("whitespace violation", "where", where)
		}
		if sess.WS.Mode == wsrule.Fix {
			dst := make([]byte, len(l.Data))
			n := wsrule.FixCopy(dst, l.Data, ws)
			l.Data = dst[:n]
		}
	}
}

// ApplyPatch applies every hunk of p against preimage bytes and returns
// the resulting postimage bytes. Hunks that fail to locate are either
// marked Rejected and skipped (when allowReject is true) or cause the
// whole patch to fail.
func (sess *Session) ApplyPatch(p *patch.Patch, preimage []byte) ([]byte, error) {
	if p.IsBinary {
		return sess.applyBinaryPatch(p, preimage)
	}

	ws := p.WSRule
	if ws.Rules == 0 && ws.TabWidth == 0 {
		ws = wsrule.DefaultRuleSet()
	}

	img := lineimage.New(preimage)
	anyRejected := false
	for _, h := range p.Hunks {
		if err := sess.ApplyHunk(img, h, ws); err != nil {
			if !sess.AllowReject {
				return nil, fmt.Errorf("%w: %s", ErrNoMatch, describeHunk(h))
			}
			h.Rejected = true
			anyRejected = true
			continue
		}
	}
	if anyRejected {
		p.Rejected = true
	}
	return img.Buf, nil
}

func describeHunk(h *patch.Hunk) string {
	return fmt.Sprintf("hunk @%d,%d", h.OldPos, h.OldLines)
}

// applyBinaryPatch applies a binary hunk pair: LITERAL_DEFLATED
// replaces the image outright; DELTA_DEFLATED applies a binary delta
// against the current preimage. Reverse application requires the
// reverse hunk to be present.
func (sess *Session) applyBinaryPatch(p *patch.Patch, preimage []byte) ([]byte, error) {
	bh := p.BinaryForward
	wantHash := p.NewHashPrefix
	if sess.Reverse {
		bh = p.BinaryReverse
		wantHash = p.OldHashPrefix
	}
	if bh == nil {
		return nil, ErrUnreversible
	}

	raw, err := base85.Inflate(bh.Payload, bh.OriginalLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, err)
	}

	var result []byte
	switch bh.Method {
	case patch.BinaryLiteral:
		result = raw
	case patch.BinaryDelta:
		result, err = applyBinaryDelta(preimage, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSemantic, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown binary hunk method", ErrParse)
	}

	if err := checkBlobHash(wantHash, result); err != nil {
		return nil, err
	}
	return result, nil
}

// checkBlobHash verifies result hashes to the git blob object ID the
// patch declared for this side, short-circuiting when the patch
// carried no (or an abbreviated-to-nothing) hash to check against.
func checkBlobHash(wantPrefix string, result []byte) error {
	if wantPrefix == "" {
		return nil
	}
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(result))
	h.Write(result)
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.HasPrefix(got, wantPrefix) {
		return fmt.Errorf("%w: postimage hashes to %s, patch declared %s", ErrHashMismatch, got, wantPrefix)
	}
	return nil
}

// applyBinaryDelta applies the repository's standard compact binary
// delta format (as produced alongside git's zlib-deflated binary
// hunks): a varint source-size, a varint target-size, followed by a
// stream of copy/insert instructions.
//
//	insert:  0ccccccc <c bytes literal>
//	copy:    1ooooooo <offset bytes> <size bytes>, offset/size bytes
//	         present per set bit in the low/high nibble of the opcode
func applyBinaryDelta(base, delta []byte) ([]byte, error) {
	srcSize, n, err := readDeltaVarint(delta)
	if err != nil {
		return nil, err
	}
	if srcSize != len(base) {
		return nil, fmt.Errorf("delta: source size mismatch: delta expects %d, base is %d", srcSize, len(base))
	}
	delta = delta[n:]

	dstSize, n, err := readDeltaVarint(delta)
	if err != nil {
		return nil, err
	}
	delta = delta[n:]

	out := make([]byte, 0, dstSize)
	for len(delta) > 0 {
		op := delta[0]
		delta = delta[1:]
		if op&0x80 != 0 {
			var offset, size int
			if op&0x01 != 0 {
				offset |= int(delta[0])
				delta = delta[1:]
			}
			if op&0x02 != 0 {
				offset |= int(delta[0]) << 8
				delta = delta[1:]
			}
			if op&0x04 != 0 {
				offset |= int(delta[0]) << 16
				delta = delta[1:]
			}
			if op&0x08 != 0 {
				offset |= int(delta[0]) << 24
				delta = delta[1:]
			}
			if op&0x10 != 0 {
				size |= int(delta[0])
				delta = delta[1:]
			}
			if op&0x20 != 0 {
				size |= int(delta[0]) << 8
				delta = delta[1:]
			}
			if op&0x40 != 0 {
				size |= int(delta[0]) << 16
				delta = delta[1:]
			}
			if size == 0 {
				size = 0x10000
			}
			if offset+size > len(base) {
				return nil, fmt.Errorf("delta: copy instruction out of range")
			}
			out = append(out, base[offset:offset+size]...)
		} else if op != 0 {
			size := int(op)
			if len(delta) < size {
				return nil, fmt.Errorf("delta: truncated insert instruction")
			}
			out = append(out, delta[:size]...)
			delta = delta[size:]
		} else {
			return nil, fmt.Errorf("delta: reserved zero opcode")
		}
	}
	if len(out) != dstSize {
		return nil, fmt.Errorf("delta: result size mismatch: expected %d, got %d", dstSize, len(out))
	}
	return out, nil
}

// readDeltaVarint reads the delta format's base-128 size encoding:
// little-endian 7-bit groups, continuation in the high bit.
func readDeltaVarint(b []byte) (value, consumed int, err error) {
	shift := 0
	for i := 0; i < len(b); i++ {
		value |= int(b[i]&0x7f) << shift
		if b[i]&0x80 == 0 {
			return value, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("delta: truncated varint")
}
