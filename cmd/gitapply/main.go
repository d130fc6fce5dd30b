// Command gitapply reads one or more unified diffs and applies them to
// a git working tree and, optionally, its index.
//
// Usage:
//
//	gitapply apply [flags] [patchfile...]
//
// With no patchfile arguments the patch stream is read from stdin.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gitapply/gitapply/apply"
	"github.com/gitapply/gitapply/cli"
	"github.com/gitapply/gitapply/env"
	"github.com/gitapply/gitapply/patch"
	"github.com/gitapply/gitapply/repo"
	gitapplyslog "github.com/gitapply/gitapply/slog"
	"github.com/gitapply/gitapply/wsrule"
	"gopkg.in/yaml.v3"
)

var version = "dev"

func main() {
	slog.SetDefault(slog.New(gitapplyslog.NewHandler(os.Stderr, gitapplyslog.DefaultOptions())))

	// An optional .env file lets GITAPPLY_CONTEXT / GITAPPLY_WHITESPACE
	// be set without exporting them; a missing file just means no
	// defaults are overridden.
	_ = env.LoadEnvFile()

	app := buildApp()
	err := app.Run()
	if err != nil && !cli.IsHelpRequested(err) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}

func buildApp() *cli.App {
	app := cli.New("gitapply", "apply unified diffs to a git working tree").
		Version(version)

	app.Command("apply", "apply a patch to files and/or the index").
		Flags(
			cli.Int("p", "p").Default(1).Help("strip N leading path components from diff paths"),
			cli.Int("context", "C").Default(0).Env("GITAPPLY_CONTEXT").Help("require at least N lines of context before fuzzy-reducing a hunk"),
			cli.String("whitespace", "").Default("warn").Env("GITAPPLY_WHITESPACE").
				Enum("nowarn", "warn", "error", "error-all", "fix").
				Help("how to treat whitespace errors in new lines"),
			cli.Bool("unidiff-zero", "").Help("accept hunks with zero lines of context"),
			cli.Bool("inaccurate-eof", "").Help("tolerate a missing trailing newline"),
			cli.Bool("recount", "").Help("ignore the hunk header's line counts and recompute them"),
			cli.Bool("reverse", "R").Help("apply the patch in reverse"),
			cli.Bool("reject", "").Help("write rejected hunks to .rej files instead of aborting"),
			cli.Bool("check", "").Help("verify the patch applies cleanly without writing anything"),
			cli.Bool("stat", "").Help("show a diffstat summary instead of applying"),
			cli.Bool("numstat", "").Help("show added/removed line counts instead of applying"),
			cli.Bool("summary", "").Help("show a one-line summary of file operations instead of applying"),
			cli.Bool("apply", "").Help("force apply even with --stat/--check/--summary"),
			cli.Bool("index", "").Help("also apply the patch to the index, requiring a working-tree match"),
			cli.Bool("cached", "").Help("apply only to the index, not the working tree"),
			cli.Bool("no-add", "").Help("discard + lines from every hunk instead of applying them"),
			cli.Strings("include", "").Help("only apply to paths matching this glob (repeatable)"),
			cli.Strings("exclude", "").Help("skip paths matching this glob (repeatable)"),
			cli.String("directory", "").Help("prepend this directory to every target path"),
			cli.String("build-fake-ancestor", "").Help("write a preimage manifest to this file instead of applying"),
		).
		Run(runApply)

	return app
}

func runApply(ctx *cli.Context) error {
	data, err := readPatchInput(ctx)
	if err != nil {
		return cli.Errorf("reading patch input: %s", err)
	}

	wsMode, err := wsrule.ParseMode(ctx.String("whitespace"))
	if err != nil {
		return cli.Errorf("%s", err)
	}

	wsConfig := loadWhitespaceConfig(ctx.String("directory"))

	pStrip := ctx.Int("p")
	patches, err := patch.Parse(data, patch.Options{
		PStrip:        pStrip,
		UnidiffZero:   ctx.Bool("unidiff-zero"),
		InaccurateEOF: ctx.Bool("inaccurate-eof"),
		Recount:       ctx.Bool("recount"),
		WSRuleSet:     wsConfig.RuleSetFor,
	})
	if err != nil {
		return cli.Errorf("%s", err)
	}

	patches, err = filterPatches(patches, ctx.StringSlice("include"), ctx.StringSlice("exclude"))
	if err != nil {
		return cli.Errorf("%s", err)
	}

	if len(patches) == 0 {
		ctx.Info("no patches to apply")
		return nil
	}

	if ctx.String("build-fake-ancestor") != "" {
		return buildFakeAncestor(ctx, patches)
	}

	if (ctx.Bool("stat") || ctx.Bool("numstat") || ctx.Bool("summary")) && !ctx.Bool("apply") {
		printReport(ctx, patches)
		return nil
	}

	sess := apply.NewSession()
	sess.PStrip = pStrip
	sess.Context = ctx.Int("context")
	sess.UnidiffZero = ctx.Bool("unidiff-zero")
	sess.InaccurateEOF = ctx.Bool("inaccurate-eof")
	sess.Reverse = ctx.Bool("reverse")
	sess.AllowReject = ctx.Bool("reject")
	sess.Cached = ctx.Bool("cached")
	sess.Index = ctx.Bool("index")
	sess.NoAdd = ctx.Bool("no-add")
	sess.WS = wsrule.NewCounter(wsMode)

	gitRepo, err := repo.Open(".")
	if err != nil {
		return cli.Errorf("%s", err).Hint("gitapply must run inside a git working tree")
	}
	gitRepo.Directory = ctx.String("directory")
	gitRepo.UpdateIndex = sess.Index || sess.Cached

	var backend apply.Repo = gitRepo
	if ctx.Bool("check") {
		backend = &dryRunRepo{Repo: gitRepo}
	} else {
		if err := gitRepo.LockIndex(); err != nil {
			return cli.Errorf("%s", err)
		}
		defer gitRepo.UnlockIndex()
	}

	result, err := sess.Run(ctx.Context(), patches, backend)
	if err != nil {
		return cli.Errorf("%s", err)
	}

	for _, p := range result.Rejected {
		ctx.Fail("%s: %d rejected hunk(s)", p.TargetPath(), countRejected(p))
	}

	if n := sess.WS.Squelched(); n > 0 {
		slog.Warn("further whitespace violations were squelched", "count", n)
	}

	if sess.WS.ShouldFail() {
		return cli.Exit(1)
	}
	if len(result.Rejected) > 0 {
		return cli.Exit(1)
	}
	return nil
}

// readPatchInput reads the concatenated bytes of every patch file
// argument, or stdin if none were given.
func readPatchInput(ctx *cli.Context) ([]byte, error) {
	if ctx.NArg() == 0 {
		return io.ReadAll(ctx.Stdin())
	}
	var out []byte
	for _, name := range ctx.Args() {
		b, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// loadWhitespaceConfig loads an optional .gitapply.yml whitespace
// rule-set file from dir (or the working directory); a missing or
// unparsable file is not an error, it just leaves every path on
// DefaultRuleSet. The config's nested Rules slice doesn't fit
// cli.LoadConfig's flat-struct field binding, so it's read directly
// the way the teacher's own config types parse a fixed YAML shape.
func loadWhitespaceConfig(dir string) *wsrule.Config {
	path := ".gitapply.yml"
	if dir != "" {
		path = filepath.Join(dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &wsrule.Config{}
	}
	var cfg wsrule.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &wsrule.Config{}
	}
	return &cfg
}

// filterPatches keeps only patches whose target path matches at least
// one include glob (when any are given) and no exclude glob.
func filterPatches(patches []*patch.Patch, include, exclude []string) ([]*patch.Patch, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return patches, nil
	}
	var out []*patch.Patch
	for _, p := range patches {
		target := p.TargetPath()
		if len(include) > 0 {
			matched, err := matchAny(include, target)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
		}
		if len(exclude) > 0 {
			matched, err := matchAny(exclude, target)
			if err != nil {
				return nil, err
			}
			if matched {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func matchAny(globs []string, target string) (bool, error) {
	for _, g := range globs {
		ok, err := filepath.Match(g, target)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func countRejected(p *patch.Patch) int {
	n := 0
	for _, h := range p.Hunks {
		if h.Rejected {
			n++
		}
	}
	return n
}

// printReport implements --stat/--numstat/--summary: a read-only
// accounting of what applying patches would do, grounded on the same
// hunk line-op counts the Applier itself walks.
func printReport(ctx *cli.Context, patches []*patch.Patch) {
	numstat := ctx.Bool("numstat")
	summary := ctx.Bool("summary")
	for _, p := range patches {
		added, removed := countLines(p)
		switch {
		case summary:
			ctx.Printf("%s  %s\n", summaryVerb(p), p.TargetPath())
		case numstat:
			ctx.Printf("%d\t%d\t%s\n", added, removed, p.TargetPath())
		default:
			ctx.Printf(" %s | %d %s\n", p.TargetPath(), added+removed, bars(added, removed))
		}
	}
}

func countLines(p *patch.Patch) (added, removed int) {
	for _, h := range p.Hunks {
		for _, l := range h.Lines {
			switch l.Op {
			case patch.OpAdd:
				added++
			case patch.OpDelete:
				removed++
			}
		}
	}
	return added, removed
}

func bars(added, removed int) string {
	const width = 40
	total := added + removed
	if total == 0 {
		return ""
	}
	plus := added * width / total
	minus := width - plus
	s := make([]byte, 0, width)
	for i := 0; i < plus; i++ {
		s = append(s, '+')
	}
	for i := 0; i < minus; i++ {
		s = append(s, '-')
	}
	return string(s)
}

func summaryVerb(p *patch.Patch) string {
	switch {
	case p.IsNew == patch.Yes:
		return "create"
	case p.IsDelete == patch.Yes:
		return "delete"
	case p.IsRename:
		return "rename"
	case p.IsCopy:
		return "copy"
	default:
		return "modify"
	}
}

// buildFakeAncestor implements --build-fake-ancestor=<file>: reads
// every patch's declared preimage from the index (under --index or
// --cached) or else from the working tree, and writes the manifest
// without applying anything.
func buildFakeAncestor(ctx *cli.Context, patches []*patch.Patch) error {
	gitRepo, err := repo.Open(".")
	if err != nil {
		return cli.Errorf("%s", err).Hint("gitapply must run inside a git working tree")
	}
	gitRepo.Directory = ctx.String("directory")

	var entries []repo.AncestorEntry
	for _, p := range patches {
		if p.OldPath == "" || p.IsNew == patch.Yes {
			continue
		}
		var data []byte
		var mode uint32
		if ctx.Bool("index") || ctx.Bool("cached") {
			data, mode, _, err = gitRepo.ReadIndexBlob(ctx.Context(), p.OldPath)
		} else {
			data, mode, err = gitRepo.ReadWorkingFile(p.OldPath)
		}
		if err != nil {
			return cli.Errorf("reading preimage for %s: %s", p.OldPath, err)
		}
		entries = append(entries, repo.AncestorEntry{Path: p.OldPath, Mode: mode, Data: data})
	}

	if err := gitRepo.WriteFakeAncestor(ctx.Context(), ctx.String("build-fake-ancestor"), entries); err != nil {
		return cli.Errorf("%s", err)
	}
	return nil
}

// dryRunRepo backs --check: reads delegate to the real repository so
// the Applier sees real preimages, but every write is discarded.
type dryRunRepo struct {
	Repo *repo.Repository
}

func (d *dryRunRepo) ReadIndexBlob(ctx context.Context, path string) ([]byte, uint32, bool, error) {
	return d.Repo.ReadIndexBlob(ctx, path)
}

func (d *dryRunRepo) ReadWorkingFile(path string) ([]byte, uint32, error) {
	return d.Repo.ReadWorkingFile(path)
}

func (d *dryRunRepo) WriteFile(ctx context.Context, path string, data []byte, mode uint32, cached bool) error {
	return nil
}

func (d *dryRunRepo) DeleteFile(ctx context.Context, path string, cached bool, prune bool) error {
	return nil
}

func (d *dryRunRepo) WriteReject(path string, header string, rejected [][]byte) error {
	return nil
}

var _ apply.Repo = (*dryRunRepo)(nil)
