package wsrule

import "path/filepath"

// PathRule is one entry of a per-path whitespace rule-set table, the
// shape read from an optional `.gitapply.yml` config file with
// gopkg.in/yaml.v3 (see the yaml struct tags).
type PathRule struct {
	Glob           string `yaml:"glob"`
	TrailingSpace  bool   `yaml:"trailing_space"`
	SpaceBeforeTab bool   `yaml:"space_before_tab"`
	IndentWithTabs bool   `yaml:"indent_with_non_tab"`
	TabInIndent    bool   `yaml:"tab_in_indent"`
	CRAtEOL        bool   `yaml:"cr_at_eol"`
	TabWidth       int    `yaml:"tab_width"`
}

// Config is the root of the whitespace-rule-set config file: an
// ordered list of glob-matched rule sets, first match wins, falling
// back to DefaultRuleSet when nothing matches.
type Config struct {
	Rules []PathRule `yaml:"rules"`
}

// RuleSetFor resolves the rule set that applies to path, matching
// Rules in order and defaulting to DefaultRuleSet if none match.
func (c *Config) RuleSetFor(path string) RuleSet {
	if c == nil {
		return DefaultRuleSet()
	}
	for _, r := range c.Rules {
		ok, err := filepath.Match(r.Glob, path)
		if err != nil || !ok {
			continue
		}
		return r.ruleSet()
	}
	return DefaultRuleSet()
}

func (r PathRule) ruleSet() RuleSet {
	var v Violation
	if r.TrailingSpace {
		v |= TrailingSpace
	}
	if r.SpaceBeforeTab {
		v |= SpaceBeforeTab
	}
	if r.IndentWithTabs {
		v |= IndentWithNonTab
	}
	if r.TabInIndent {
		v |= TabInIndent
	}
	if r.CRAtEOL {
		v |= CRAtEOL
	}
	tw := r.TabWidth
	if tw == 0 {
		tw = 8
	}
	return RuleSet{Rules: v, TabWidth: tw}
}
