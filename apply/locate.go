package apply

import (
	"github.com/gitapply/gitapply/lineimage"
	"github.com/gitapply/gitapply/patch"
	"github.com/gitapply/gitapply/wsrule"
)

// MatchResult describes where and how a hunk's preimage was found.
type MatchResult struct {
	Pos            int
	Pre, Post      *lineimage.Image
	ReducedContext bool
	FuzzMatched    bool
	Leading        int
	Trailing       int
}

// buildFragmentImages walks a hunk's body lines into preimage and
// postimage line-images. In reverse mode, add/delete are swapped
// before classification, matching the hunk-construction rule. Under
// noAdd, lines that end up classified as additions are left out of
// the postimage entirely, per the --no-add "discard + lines" rule:
// the hunk still locates and applies, it just never introduces new
// content.
func buildFragmentImages(h *patch.Hunk, reverse, noAdd bool) (pre, post *lineimage.Image) {
	pre = &lineimage.Image{}
	post = &lineimage.Image{}
	for _, l := range h.Lines {
		op := l.Op
		if reverse {
			switch op {
			case patch.OpAdd:
				op = patch.OpDelete
			case patch.OpDelete:
				op = patch.OpAdd
			}
		}
		switch op {
		case patch.OpContext:
			pre.AppendLine(l.Data)
			post.AppendLine(l.Data)
			pre.Lines[len(pre.Lines)-1].Flags |= lineimage.Common
			post.Lines[len(post.Lines)-1].Flags |= lineimage.Common
		case patch.OpDelete:
			pre.AppendLine(l.Data)
		case patch.OpAdd:
			if noAdd {
				continue
			}
			post.AppendLine(l.Data)
		}
	}
	return pre, post
}

// Locate finds the application position for h within img, the
// target file's current Line-Image, trying an exact hashed match
// first, then (under the fix whitespace mode) a whitespace-fuzzy
// match, then progressively reduced context.
func (sess *Session) Locate(img *lineimage.Image, h *patch.Hunk, ws wsrule.RuleSet) (*MatchResult, error) {
	oldPos, newPos := h.OldPos, h.NewPos
	leading, trailing := h.LeadingContext, h.TrailingContext
	if sess.Reverse {
		oldPos, newPos = newPos, oldPos
	}
	pre, post := buildFragmentImages(h, sess.Reverse, sess.NoAdd)

	matchBeginning := oldPos == 0 || (oldPos == 1 && !sess.UnidiffZero)
	matchEnd := !sess.UnidiffZero && trailing == 0
	droppedAnchors := false

	anchorFor := func() int {
		a := newPos - 1
		if a < 0 {
			a = 0
		}
		if matchBeginning {
			a = 0
		}
		if matchEnd {
			a = img.NumLines() - pre.NumLines()
		}
		return a
	}

	tryAt := func() (int, bool, bool) {
		a := anchorFor()
		return sess.tryAllPositions(img, pre, ws, matchBeginning, matchEnd, a)
	}

	reducedAny := false
	for {
		if pos, fuzz, ok := tryAt(); ok {
			if fuzz {
				applyFuzzFix(img, pre, post, pos, ws)
			}
			return &MatchResult{Pos: pos, Pre: pre, Post: post, ReducedContext: reducedAny, FuzzMatched: fuzz, Leading: leading, Trailing: trailing}, nil
		}

		if leading <= sess.Context && trailing <= sess.Context {
			if matchBeginning && matchEnd && !droppedAnchors {
				matchBeginning, matchEnd = false, false
				droppedAnchors = true
				continue
			}
			break
		}
		if matchBeginning && matchEnd && !droppedAnchors {
			matchBeginning, matchEnd = false, false
			droppedAnchors = true
			continue
		}
		if leading >= trailing && leading > sess.Context {
			pre.PrependTrim(1)
			post.PrependTrim(1)
			leading--
		} else if trailing > sess.Context {
			pre.AppendTrim(1)
			post.AppendTrim(1)
			trailing--
		} else {
			break
		}
		reducedAny = true
	}

	return nil, ErrNoMatch
}

// tryAllPositions runs the interleaved forward/backward scan from
// anchor, matching at each trial position with an exact hashed
// comparison first and, if that fails everywhere and the whitespace
// mode is Fix, a whitespace-fuzzy comparison pass over the same
// position range.
func (sess *Session) tryAllPositions(img *lineimage.Image, pre *lineimage.Image, ws wsrule.RuleSet, matchBeginning, matchEnd bool, anchor int) (pos int, fuzz bool, ok bool) {
	maxPos := img.NumLines() - pre.NumLines()
	if maxPos < 0 {
		return 0, false, false
	}
	if matchBeginning {
		if matchExact(img, pre, 0) {
			return 0, false, true
		}
		if sess.WS != nil && sess.WS.Mode == wsrule.Fix && matchFuzzy(img, pre, 0, ws) {
			return 0, true, true
		}
		return 0, false, false
	}
	if matchEnd {
		if anchor >= 0 && anchor <= maxPos && matchExact(img, pre, anchor) {
			return anchor, false, true
		}
		if anchor >= 0 && anchor <= maxPos && sess.WS != nil && sess.WS.Mode == wsrule.Fix && matchFuzzy(img, pre, anchor, ws) {
			return anchor, true, true
		}
		return 0, false, false
	}

	if anchor < 0 {
		anchor = 0
	}
	if anchor > maxPos {
		anchor = maxPos
	}

	forward, backward := anchor, anchor-1
	for forward <= maxPos || backward >= 0 {
		for i := 0; i < 2; i++ {
			var try int
			var has bool
			if i == 0 && forward <= maxPos {
				try, has = forward, true
				forward++
			} else if i == 1 && backward >= 0 {
				try, has = backward, true
				backward--
			}
			if !has {
				continue
			}
			if matchExact(img, pre, try) {
				return try, false, true
			}
		}
	}

	if sess.WS != nil && sess.WS.Mode == wsrule.Fix {
		for try := 0; try <= maxPos; try++ {
			if matchFuzzy(img, pre, try, ws) {
				return try, true, true
			}
		}
	}
	return 0, false, false
}

// matchExact checks the quick 24-bit hash filter followed by a byte
// comparison at the trial position.
func matchExact(img *lineimage.Image, pre *lineimage.Image, pos int) bool {
	n := pre.NumLines()
	if pos < 0 || pos+n > img.NumLines() {
		return false
	}
	for i := 0; i < n; i++ {
		if img.Lines[pos+i].Hash != pre.Lines[i].Hash {
			return false
		}
	}
	for i := 0; i < n; i++ {
		if string(img.Line(pos+i)) != string(pre.Line(i)) {
			return false
		}
	}
	return true
}

// matchFuzzy retries the comparison with both sides whitespace-fixed,
// per the whitespace-fuzz fallback.
func matchFuzzy(img *lineimage.Image, pre *lineimage.Image, pos int, ws wsrule.RuleSet) bool {
	n := pre.NumLines()
	if pos < 0 || pos+n > img.NumLines() {
		return false
	}
	for i := 0; i < n; i++ {
		srcFixed := fixedCopy(pre.Line(i), ws)
		dstFixed := fixedCopy(img.Line(pos+i), ws)
		if string(srcFixed) != string(dstFixed) {
			return false
		}
	}
	return true
}

func fixedCopy(line []byte, ws wsrule.RuleSet) []byte {
	dst := make([]byte, len(line))
	n := wsrule.FixCopy(dst, line, ws)
	return dst[:n]
}

// applyFuzzFix replaces each common line of the postimage, in order,
// with the whitespace-fixed spelling of the target line it matched;
// the target image itself is left unchanged. A replacement that would
// make a line longer is refused by ReplaceLine and that line is kept.
func applyFuzzFix(img *lineimage.Image, pre, post *lineimage.Image, pos int, ws wsrule.RuleSet) {
	var postCommon []int
	for i, e := range post.Lines {
		if e.Flags&lineimage.Common != 0 {
			postCommon = append(postCommon, i)
		}
	}
	ci := 0
	for i := range pre.Lines {
		if pre.Lines[i].Flags&lineimage.Common == 0 {
			continue
		}
		if ci >= len(postCommon) {
			break
		}
		fixed := fixedCopy(img.Line(pos+i), ws)
		_ = post.ReplaceLine(postCommon[ci], fixed)
		ci++
	}
}
