package patch

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gitapply/gitapply/base85"
	"github.com/gitapply/gitapply/wsrule"
)

// Options configures parsing behavior, mirroring the CLI flags that
// affect how the stream is read rather than how hunks are applied.
type Options struct {
	PStrip        int // -1 means guess
	UnidiffZero   bool
	InaccurateEOF bool
	Recount       bool
	WSRuleSet     func(path string) wsrule.RuleSet
}

// ParseError carries the 1-based input line number of a fatal parse
// or semantic error, per the error taxonomy's "stderr message prefixed
// by the input line number" requirement.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

type parser struct {
	opts      Options
	lines     [][]byte
	idx       int
	guessedP  bool
}

// splitLines splits data into lines, each retaining its trailing '\n'
// except possibly the final line.
func splitLines(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			out = append(out, data[start:i+1])
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, data[start:])
	}
	return out
}

// Parse reads a full patch stream and returns every patch found in
// order, tolerating preamble garbage between patches.
func Parse(data []byte, opts Options) ([]*Patch, error) {
	if opts.PStrip == 0 {
		opts.PStrip = 1
	}
	p := &parser{opts: opts, lines: splitLines(data)}

	var patches []*Patch
	for p.idx < len(p.lines) {
		pt, err := p.nextPatch()
		if err != nil {
			return nil, err
		}
		if pt == nil {
			break
		}
		patches = append(patches, pt)
	}
	return patches, nil
}

func (p *parser) lineno() int { return p.idx + 1 }

func (p *parser) peek(off int) []byte {
	if p.idx+off >= len(p.lines) {
		return nil
	}
	return p.lines[p.idx+off]
}

func (p *parser) cur() []byte { return p.peek(0) }

func (p *parser) fatal(format string, a ...any) error {
	return &ParseError{Line: p.lineno(), Msg: fmt.Sprintf(format, a...)}
}

// nextPatch scans forward for the next recognizable header, then
// parses one full patch (header + body). Returns nil, nil at clean
// end of input.
func (p *parser) nextPatch() (*Patch, error) {
	for p.idx < len(p.lines) {
		line := p.cur()
		switch {
		case bytes.HasPrefix(line, []byte("diff --git ")):
			return p.parseGitPatch()
		case bytes.HasPrefix(line, []byte("--- ")):
			if next := p.peek(1); next != nil && bytes.HasPrefix(next, []byte("+++ ")) {
				if third := p.peek(2); third != nil && bytes.HasPrefix(third, []byte("@@ -")) {
					return p.parseTraditionalPatch()
				}
			}
			p.idx++
		case bytes.HasPrefix(line, []byte("@@ -")):
			return nil, p.fatal("hunk header without preceding patch header")
		default:
			p.idx++
		}
	}
	return nil, nil
}

func (p *parser) ruleSetFor(path string) wsrule.RuleSet {
	if p.opts.WSRuleSet != nil {
		return p.opts.WSRuleSet(path)
	}
	return wsrule.DefaultRuleSet()
}

// parseGitPatch handles the `diff --git a/X b/X` header form,
// including rename/copy/mode/index metadata lines.
func (p *parser) parseGitPatch() (*Patch, error) {
	header := p.cur()
	aPath, bPath, err := parseGitDiffLine(header)
	if err != nil {
		return nil, p.fatal("%s", err)
	}
	p.idx++

	pt := &Patch{DefPath: bPath, Recount: p.opts.Recount, InaccurateEOF: p.opts.InaccurateEOF}
	_ = aPath

	for p.idx < len(p.lines) {
		line := p.cur()
		text := string(line)

		switch {
		case strings.HasPrefix(text, "old mode "):
			pt.OldMode = parseOctalMode(strings.TrimSpace(text[len("old mode "):]))
		case strings.HasPrefix(text, "new mode "):
			pt.NewMode = parseOctalMode(strings.TrimSpace(text[len("new mode "):]))
		case strings.HasPrefix(text, "deleted file mode "):
			pt.IsDelete = Yes
			pt.OldMode = parseOctalMode(strings.TrimSpace(text[len("deleted file mode "):]))
		case strings.HasPrefix(text, "new file mode "):
			pt.IsNew = Yes
			pt.NewMode = parseOctalMode(strings.TrimSpace(text[len("new file mode "):]))
		case strings.HasPrefix(text, "copy from "):
			pt.IsCopy = true
			pt.OldPath = strings.TrimSpace(text[len("copy from "):])
		case strings.HasPrefix(text, "copy to "):
			pt.NewPath = strings.TrimSpace(text[len("copy to "):])
		case strings.HasPrefix(text, "rename from "):
			pt.IsRename = true
			pt.OldPath = strings.TrimSpace(text[len("rename from "):])
		case strings.HasPrefix(text, "rename to "):
			pt.NewPath = strings.TrimSpace(text[len("rename to "):])
		case strings.HasPrefix(text, "similarity index "),
			strings.HasPrefix(text, "dissimilarity index "):
			// recorded only for --summary reporting; not needed by the core.
		case strings.HasPrefix(text, "index "):
			if err := parseIndexLine(pt, text); err != nil {
				return nil, p.fatal("%s", err)
			}
		case strings.HasPrefix(text, "--- "):
			np, err := parseTraditionalSidePath(text[4:])
			if err != nil {
				return nil, p.fatal("%s", err)
			}
			if np != "" {
				alreadySet := pt.OldPath != ""
				if alreadySet && pt.OldPath != np {
					return nil, p.fatal("old path mismatch: %q vs %q", pt.OldPath, np)
				}
				pt.OldPath = np
				if !alreadySet {
					pt.oldPathFromSideLine = true
				}
			}
		case strings.HasPrefix(text, "+++ "):
			np, err := parseTraditionalSidePath(text[4:])
			if err != nil {
				return nil, p.fatal("%s", err)
			}
			if np != "" {
				alreadySet := pt.NewPath != ""
				if alreadySet && pt.NewPath != np {
					return nil, p.fatal("new path mismatch: %q vs %q", pt.NewPath, np)
				}
				pt.NewPath = np
				if !alreadySet {
					pt.newPathFromSideLine = true
				}
			}
		default:
			goto doneMeta
		}
		p.idx++
	}
doneMeta:

	if pt.OldPath == "" && pt.NewPath == "" {
		pt.OldPath = pt.DefPath
		pt.NewPath = pt.DefPath
	}
	if pt.IsNew == Yes {
		pt.OldPath = ""
	}
	if pt.IsDelete == Yes {
		pt.NewPath = ""
	}

	pt.WSRule = p.ruleSetFor(pt.TargetPath())

	if err := p.parseBody(pt); err != nil {
		return nil, err
	}
	if err := finalizePatch(pt); err != nil {
		return nil, p.fatal("%s", err)
	}
	return pt, nil
}

// parseTraditionalPatch handles the `--- a/X` / `+++ b/X` / `@@ ...`
// fallback form with no `diff --git` header.
func (p *parser) parseTraditionalPatch() (*Patch, error) {
	oldText := string(p.cur()[4:])
	p.idx++
	newText := string(p.cur()[4:])
	p.idx++

	oldPath, err := parseTraditionalSidePath(oldText)
	if err != nil {
		return nil, p.fatal("%s", err)
	}
	newPath, err := parseTraditionalSidePath(newText)
	if err != nil {
		return nil, p.fatal("%s", err)
	}

	pt := &Patch{Recount: p.opts.Recount, InaccurateEOF: p.opts.InaccurateEOF}
	if isDevNull(oldPath) {
		pt.IsNew = Yes
		pt.NewPath = newPath
		pt.newPathFromSideLine = true
	} else if isDevNull(newPath) {
		pt.IsDelete = Yes
		pt.OldPath = oldPath
		pt.oldPathFromSideLine = true
	} else {
		pt.OldPath = oldPath
		pt.NewPath = newPath
		pt.oldPathFromSideLine = true
		pt.newPathFromSideLine = true
	}

	pt.WSRule = p.ruleSetFor(pt.TargetPath())

	if err := p.parseBody(pt); err != nil {
		return nil, err
	}
	if err := finalizePatch(pt); err != nil {
		return nil, p.fatal("%s", err)
	}
	return pt, nil
}

// parseBody reads the hunk list (text) or triggers binary parsing,
// applying the configured path-strip count to both sides first.
func (p *parser) parseBody(pt *Patch) error {
	pStrip := p.opts.PStrip
	if pStrip < 0 {
		pStrip = guessPStrip(pt.OldPath, pt.NewPath)
	}
	if pt.OldPath != "" && !isDevNull(pt.OldPath) && pt.oldPathFromSideLine {
		pt.OldPath = stripPath(pt.OldPath, pStrip)
	}
	if pt.NewPath != "" && !isDevNull(pt.NewPath) && pt.newPathFromSideLine {
		pt.NewPath = stripPath(pt.NewPath, pStrip)
	}

	if p.idx >= len(p.lines) {
		return nil
	}
	line := p.cur()

	switch {
	case bytes.HasPrefix(line, []byte("@@ -")):
		return p.parseHunks(pt)
	case bytes.Equal(line, []byte("GIT binary patch\n")) || bytes.Equal(line, []byte("GIT binary patch")):
		p.idx++
		return p.parseBinary(pt)
	case bytes.Contains(line, []byte(" differ")):
		pt.IsBinary = true
		p.idx++
		return nil
	default:
		// pure metadata patch (mode/rename/copy with no content change).
		return nil
	}
}

func (p *parser) parseHunks(pt *Patch) error {
	for p.idx < len(p.lines) && bytes.HasPrefix(p.cur(), []byte("@@ -")) {
		h, err := p.parseOneHunk(pt)
		if err != nil {
			return err
		}
		pt.Hunks = append(pt.Hunks, h)
	}
	return nil
}

var hunkHeaderPrefix = []byte("@@ -")

func (p *parser) parseOneHunk(pt *Patch) (*Hunk, error) {
	header := p.cur()
	oldPos, oldLines, newPos, newLines, err := parseHunkHeader(header)
	if err != nil {
		return nil, p.fatal("%s", err)
	}
	h := &Hunk{OldPos: oldPos, OldLines: oldLines, NewPos: newPos, NewLines: newLines, Header: header}
	p.idx++

	remainingOld, remainingNew := oldLines, newLines
	var leading, trailing int
	sawNonContext := false

	for p.idx < len(p.lines) {
		line := p.cur()
		if !pt.Recount && remainingOld <= 0 && remainingNew <= 0 && (len(line) == 0 || line[0] != '\\') {
			break
		}
		if len(line) == 0 {
			break
		}
		if bytes.HasPrefix(line, []byte("@@ -")) || bytes.HasPrefix(line, []byte("diff --git ")) {
			break
		}

		switch line[0] {
		case ' ':
			h.Lines = append(h.Lines, Line{Op: OpContext, Data: line[1:]})
			remainingOld--
			remainingNew--
			if sawNonContext {
				trailing++
			} else {
				leading++
			}
		case '\n':
			// lenient empty-context line, per the accepted producer quirk.
			slog.Debug("accepting bare empty context line", "line", p.idx+1)
			h.Lines = append(h.Lines, Line{Op: OpContext, Data: line})
			remainingOld--
			remainingNew--
			if sawNonContext {
				trailing++
			} else {
				leading++
			}
		case '-':
			h.Lines = append(h.Lines, Line{Op: OpDelete, Data: line[1:]})
			remainingOld--
			sawNonContext = true
			trailing = 0
		case '+':
			h.Lines = append(h.Lines, Line{Op: OpAdd, Data: line[1:]})
			remainingNew--
			sawNonContext = true
			trailing = 0
		case '\\':
			if len(h.Lines) > 0 {
				h.Lines[len(h.Lines)-1].NoEOL = true
			}
		default:
			return nil, p.fatal("invalid hunk body line starting with %q", string(line[0]))
		}
		p.idx++
	}

	h.LeadingContext = leading
	h.TrailingContext = trailing

	if pt.Recount {
		recountHunk(h)
	}
	return h, nil
}

// recountHunk ignores the declared @@ counters and recomputes them
// from the body, per --recount.
func recountHunk(h *Hunk) {
	var oldN, newN int
	for _, l := range h.Lines {
		switch l.Op {
		case OpContext:
			oldN++
			newN++
		case OpDelete:
			oldN++
		case OpAdd:
			newN++
		}
	}
	h.OldLines = oldN
	h.NewLines = newN
}

// parseBinary handles the "GIT binary patch" body: one forward block
// and an optional reverse block, each base85-encoded and deflated.
func (p *parser) parseBinary(pt *Patch) error {
	pt.IsBinary = true

	bh, err := p.parseBinaryBlock()
	if err != nil {
		return err
	}
	pt.BinaryForward = bh

	// optional blank separator, then an optional reverse block.
	if p.idx < len(p.lines) && isBlank(p.cur()) {
		p.idx++
	}
	if p.idx < len(p.lines) && (bytes.HasPrefix(p.cur(), []byte("literal ")) || bytes.HasPrefix(p.cur(), []byte("delta "))) {
		rh, err := p.parseBinaryBlock()
		if err != nil {
			return err
		}
		pt.BinaryReverse = rh
	}
	return nil
}

func (p *parser) parseBinaryBlock() (*BinaryHunk, error) {
	if p.idx >= len(p.lines) {
		return nil, p.fatal("truncated binary patch block")
	}
	line := string(p.cur())
	var method BinaryMethod
	var nStr string
	switch {
	case strings.HasPrefix(line, "literal "):
		method = BinaryLiteral
		nStr = strings.TrimSpace(line[len("literal "):])
	case strings.HasPrefix(line, "delta "):
		method = BinaryDelta
		nStr = strings.TrimSpace(line[len("delta "):])
	default:
		return nil, p.fatal("expected literal/delta binary block header, got %q", line)
	}
	n, err := strconv.Atoi(nStr)
	if err != nil {
		return nil, p.fatal("bad binary block length %q: %v", nStr, err)
	}
	p.idx++

	var dataLines [][]byte
	for p.idx < len(p.lines) && !isBlank(p.cur()) {
		l := bytes.TrimSuffix(p.cur(), []byte("\n"))
		dataLines = append(dataLines, l)
		p.idx++
	}

	raw, err := base85.DecodeLines(dataLines)
	if err != nil {
		return nil, p.fatal("%s", err)
	}
	return &BinaryHunk{Method: method, Payload: raw, OriginalLen: n}, nil
}

func isBlank(line []byte) bool {
	t := bytes.TrimRight(line, "\n")
	return len(t) == 0
}

// finalizePatch resolves still-unknown is_new/is_delete flags from the
// body contents and enforces the create/delete content invariants.
func finalizePatch(pt *Patch) error {
	hasOldSide, hasNewSide := false, false
	for _, h := range pt.Hunks {
		for _, l := range h.Lines {
			switch l.Op {
			case OpDelete, OpContext:
				hasOldSide = true
			}
			if l.Op == OpAdd || l.Op == OpContext {
				hasNewSide = true
			}
		}
	}

	if pt.IsNew == Unknown && (hasOldSide || len(pt.Hunks) > 1) {
		pt.IsNew = No
	}
	if pt.IsDelete == Unknown && (hasNewSide || len(pt.Hunks) > 1) {
		pt.IsDelete = No
	}

	if pt.IsNew == Yes && hasOldSide {
		return fmt.Errorf("new file %s depends on old file contents", pt.TargetPath())
	}
	if pt.IsDelete == Yes && hasNewSide {
		return fmt.Errorf("deleted file %s still has contents", pt.OldPath)
	}
	return nil
}

func parseOctalMode(s string) uint32 {
	v, _ := strconv.ParseUint(strings.TrimSpace(s), 8, 32)
	return uint32(v)
}

// parseGitDiffLine parses `diff --git a/X b/X`, handling C-style
// quoted paths on either side.
func parseGitDiffLine(line []byte) (aPath, bPath string, err error) {
	s := strings.TrimSuffix(string(line), "\n")
	s = strings.TrimPrefix(s, "diff --git ")

	a, rest, ok := splitGitHeaderPaths(s)
	if !ok {
		return "", "", fmt.Errorf("malformed diff --git line: %q", line)
	}
	a, err = dequoteCPath(a)
	if err != nil {
		return "", "", err
	}
	b, err := dequoteCPath(rest)
	if err != nil {
		return "", "", err
	}
	a = strings.TrimPrefix(a, "a/")
	b = strings.TrimPrefix(b, "b/")
	return a, b, nil
}

// splitGitHeaderPaths splits "a/foo b/foo" (or quoted variants) into
// its two halves. Since paths may contain spaces, it anchors on the
// conventional a/ ... b/ prefix pair.
func splitGitHeaderPaths(s string) (string, string, bool) {
	if strings.HasPrefix(s, `"`) {
		// quoted first path: find the matching close-quote.
		end := findUnescapedQuote(s[1:])
		if end < 0 {
			return "", "", false
		}
		first := s[:end+2]
		rest := strings.TrimPrefix(s[end+2:], " ")
		return first, rest, rest != ""
	}
	idx := strings.Index(s, " b/")
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}

func findUnescapedQuote(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '"' {
			return i
		}
	}
	return -1
}

// parseTraditionalSidePath parses the path portion of a `--- ` / `+++
// ` line, stripping an optional trailing tab-separated timestamp and
// dequoting if needed.
func parseTraditionalSidePath(rest string) (string, error) {
	rest = strings.TrimSuffix(rest, "\n")
	if idx := strings.IndexByte(rest, '\t'); idx >= 0 {
		rest = rest[:idx]
	}
	if strings.HasPrefix(rest, `"`) {
		return dequoteCPath(rest)
	}
	return rest, nil
}

func parseIndexLine(pt *Patch, text string) error {
	rest := strings.TrimSuffix(strings.TrimPrefix(text, "index "), "\n")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return fmt.Errorf("malformed index line: %q", text)
	}
	hashes := strings.SplitN(fields[0], "..", 2)
	if len(hashes) != 2 {
		return fmt.Errorf("malformed index hashes: %q", fields[0])
	}
	pt.OldHashPrefix, pt.NewHashPrefix = hashes[0], hashes[1]
	return nil
}

// parseHunkHeader parses "@@ -a,b +c,d @@" (the comment suffix, if
// any, is ignored beyond being retained in the raw header bytes). A
// missing ",b"/",d" count defaults to 1, per unified-diff convention.
func parseHunkHeader(line []byte) (oldPos, oldLines, newPos, newLines int, err error) {
	s := string(line)
	end := strings.Index(s, " @@")
	if !strings.HasPrefix(s, "@@ -") || end < 0 {
		return 0, 0, 0, 0, fmt.Errorf("malformed hunk header: %q", line)
	}
	body := s[len("@@ -"):end]
	parts := strings.SplitN(body, " +", 2)
	if len(parts) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("malformed hunk header: %q", line)
	}
	oldPos, oldLines, err = parseRange(parts[0])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	newPos, newLines, err = parseRange(parts[1])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return oldPos, oldLines, newPos, newLines, nil
}

func parseRange(s string) (pos, n int, err error) {
	parts := strings.SplitN(s, ",", 2)
	pos, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad range %q: %w", s, err)
	}
	if len(parts) == 2 {
		n, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("bad range %q: %w", s, err)
		}
	} else {
		n = 1
	}
	return pos, n, nil
}
