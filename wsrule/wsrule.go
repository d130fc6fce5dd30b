// Package wsrule implements the whitespace rule engine: per-path
// violation checking, length-monotone fixing, and the squelch policy
// that caps reported errors per run.
package wsrule

import (
	"bytes"
	"fmt"
)

// Mode selects how whitespace violations are treated.
type Mode int

const (
	// NoWarn disables whitespace checking entirely.
	NoWarn Mode = iota
	// Warn reports violations but never fails the run.
	Warn
	// Error reports violations and fails the run at the end (but
	// still applies the patch).
	Error
	// ErrorAll behaves like Error but additionally disables the
	// squelch cap, so every violation is reported.
	ErrorAll
	// Fix reports violations and rewrites offending lines, shortening
	// or preserving their length but never growing them.
	Fix
)

// ParseMode maps a --whitespace=<mode> argument to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "nowarn":
		return NoWarn, nil
	case "warn":
		return Warn, nil
	case "error":
		return Error, nil
	case "error-all":
		return ErrorAll, nil
	case "fix":
		return Fix, nil
	default:
		return 0, fmt.Errorf("wsrule: unknown whitespace mode %q", s)
	}
}

// Violation is a bitmask of whitespace rule violations found on a
// single line.
type Violation uint8

const (
	TrailingSpace Violation = 1 << iota
	SpaceBeforeTab
	IndentWithNonTab
	TabInIndent
	CRAtEOL
)

// RuleSet is the set of checks active for a given path, plus the
// configured indentation tab width.
type RuleSet struct {
	Rules    Violation
	TabWidth int
}

// DefaultRuleSet matches the common default: trailing whitespace and
// space-before-tab are flagged, indentation style is not enforced.
func DefaultRuleSet() RuleSet {
	return RuleSet{Rules: TrailingSpace | SpaceBeforeTab, TabWidth: 8}
}

// Check scans one line (including its terminator, if any) and returns
// the set of violations present under rs.
func Check(rs RuleSet, line []byte) Violation {
	var v Violation
	body := bytes.TrimRight(line, "\n")
	body = bytes.TrimSuffix(body, "\r")
	if bytes.HasSuffix(line, []byte("\r\n")) && rs.Rules&CRAtEOL != 0 {
		v |= CRAtEOL
	}

	if rs.Rules&TrailingSpace != 0 {
		trimmed := bytes.TrimRight(body, " \t")
		if len(trimmed) != len(body) {
			v |= TrailingSpace
		}
	}

	if rs.Rules&SpaceBeforeTab != 0 {
		seenSpace := false
		for _, c := range body {
			if c == ' ' {
				seenSpace = true
				continue
			}
			if c == '\t' && seenSpace {
				v |= SpaceBeforeTab
				break
			}
			break
		}
	}

	if rs.Rules&IndentWithNonTab != 0 {
		i := 0
		for i < len(body) && body[i] == ' ' {
			i++
		}
		if i >= rs.TabWidth {
			v |= IndentWithNonTab
		}
	}

	if rs.Rules&TabInIndent != 0 {
		for _, c := range body {
			if c == ' ' {
				continue
			}
			if c == '\t' {
				v |= TabInIndent
			}
			break
		}
	}

	return v
}

// FixCopy writes a corrected copy of src into dst, returning the
// number of bytes written. The contract is that the result never
// grows: trailing whitespace is stripped, and a leading space-before-tab
// run is collapsed to a single tab, which can only shrink or preserve
// length.
func FixCopy(dst []byte, src []byte, rs RuleSet) int {
	nl := bytes.HasSuffix(src, []byte("\n"))
	body := src
	if nl {
		body = src[:len(src)-1]
	}
	cr := bytes.HasSuffix(body, []byte("\r"))
	if cr {
		body = body[:len(body)-1]
	}

	if rs.Rules&TrailingSpace != 0 {
		body = bytes.TrimRight(body, " \t")
	}

	if rs.Rules&SpaceBeforeTab != 0 {
		body = collapseSpaceBeforeTab(body)
	}

	n := copy(dst, body)
	if cr {
		dst[n] = '\r'
		n++
	}
	if nl {
		dst[n] = '\n'
		n++
	}
	return n
}

// collapseSpaceBeforeTab rewrites leading "<spaces><tab>" runs down to
// a single leading tab, which is always shorter or equal in length.
func collapseSpaceBeforeTab(body []byte) []byte {
	i := 0
	for i < len(body) && body[i] == ' ' {
		i++
	}
	if i > 0 && i < len(body) && body[i] == '\t' {
		out := make([]byte, 0, len(body)-i+1)
		out = append(out, '\t')
		out = append(out, body[i+1:]...)
		return out
	}
	return body
}

// Counter tracks violations across a run, applying the squelch cap
// and mode-dependent pass/fail decision described in the engine's
// contract.
type Counter struct {
	Mode    Mode
	Squelch int // 0 means use the default cap of 5

	seen      int
	reported  int
	firstErrs []string
}

// NewCounter returns a Counter configured with the default squelch
// cap (5) unless overridden.
func NewCounter(mode Mode) *Counter {
	return &Counter{Mode: mode, Squelch: 5}
}

// Record registers one violation occurrence at the given location
// description, returning true if it should be emitted (not squelched).
func (c *Counter) Record(where string, v Violation) bool {
	if v == 0 || c.Mode == NoWarn {
		return false
	}
	c.seen++
	cap := c.Squelch
	if cap <= 0 {
		cap = 5
	}
	if c.Mode == ErrorAll || c.reported < cap {
		c.reported++
		c.firstErrs = append(c.firstErrs, where)
		return true
	}
	return false
}

// Seen returns the total number of violations recorded, including
// those squelched from individual reporting.
func (c *Counter) Seen() int { return c.seen }

// Squelched returns how many violations were recorded but not
// individually reported.
func (c *Counter) Squelched() int {
	if c.seen > c.reported {
		return c.seen - c.reported
	}
	return 0
}

// ShouldFail reports whether the accumulated violations should cause
// the run to exit non-zero, per the Error/ErrorAll contract.
func (c *Counter) ShouldFail() bool {
	return (c.Mode == Error || c.Mode == ErrorAll) && c.seen > 0
}
