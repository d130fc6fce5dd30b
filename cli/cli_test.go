package cli

import (
	"testing"

	"github.com/gitapply/gitapply/assert"
	"github.com/gitapply/gitapply/require"
)

func TestCommandParsesFlagsAndArgs(t *testing.T) {
	var gotName string
	var gotPort int
	var gotVerbose bool

	app := TestApp("testapp")
	app.Command("greet", "greet someone").
		Args("name").
		Flags(
			Int("port", "p").Default(8080),
			Bool("verbose", "v"),
		).
		Run(func(ctx *Context) error {
			gotName = ctx.Arg(0)
			gotPort = ctx.Int("port")
			gotVerbose = ctx.Bool("verbose")
			return nil
		})

	res := app.Test(t, TestArgs("greet", "world", "--port", "9090", "-v"))
	require.NoError(t, res.Err)
	assert.Equal(t, "world", gotName)
	assert.Equal(t, 9090, gotPort)
	assert.True(t, gotVerbose)
}

func TestCommandDefaultsApplyWhenFlagOmitted(t *testing.T) {
	var gotPort int
	app := TestApp("testapp")
	app.Command("serve", "serve").
		Flags(Int("port", "p").Default(8080)).
		Run(func(ctx *Context) error {
			gotPort = ctx.Int("port")
			return nil
		})

	res := app.Test(t, TestArgs("serve"))
	require.NoError(t, res.Err)
	assert.Equal(t, 8080, gotPort)
}

func TestCommandMissingRequiredFlagFails(t *testing.T) {
	app := TestApp("testapp")
	app.Command("deploy", "deploy").
		Flags(String("env", "e").Required()).
		Run(func(ctx *Context) error { return nil })

	res := app.Test(t, TestArgs("deploy"))
	assert.Error(t, res.Err)
}

func TestCommandEnumRejectsInvalidValue(t *testing.T) {
	app := TestApp("testapp")
	app.Command("build", "build").
		Flags(String("mode", "").Enum("fast", "safe")).
		Run(func(ctx *Context) error { return nil })

	res := app.Test(t, TestArgs("build", "--mode", "bogus"))
	assert.Error(t, res.Err)

	res = app.Test(t, TestArgs("build", "--mode", "safe"))
	assert.NoError(t, res.Err)
}

func TestStringsFlagAccumulatesRepeatedValues(t *testing.T) {
	var got []string
	app := TestApp("testapp")
	app.Command("filter", "filter").
		Flags(Strings("include", "")).
		Run(func(ctx *Context) error {
			got = ctx.StringSlice("include")
			return nil
		})

	res := app.Test(t, TestArgs("filter", "--include", "a.go", "--include", "b.go"))
	require.NoError(t, res.Err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.go", got[0])
	assert.Equal(t, "b.go", got[1])
}

func TestIsSetDistinguishesExplicitFromDefault(t *testing.T) {
	var explicit bool
	app := TestApp("testapp")
	app.Command("run", "run").
		Flags(Int("port", "p").Default(8080)).
		Run(func(ctx *Context) error {
			explicit = ctx.IsSet("port")
			return nil
		})

	res := app.Test(t, TestArgs("run"))
	require.NoError(t, res.Err)
	assert.False(t, explicit)

	res = app.Test(t, TestArgs("run", "--port", "80"))
	require.NoError(t, res.Err)
	assert.True(t, explicit)
}

func TestUnknownFlagIsAnError(t *testing.T) {
	app := TestApp("testapp")
	app.Command("run", "run").Run(func(ctx *Context) error { return nil })

	res := app.Test(t, TestArgs("run", "--nope"))
	assert.Error(t, res.Err)
}

func TestUnknownCommandIsAnError(t *testing.T) {
	app := TestApp("testapp")
	app.Command("run", "run").Run(func(ctx *Context) error { return nil })

	res := app.Test(t, TestArgs("missing"))
	assert.Error(t, res.Err)
}

func TestExitErrorCarriesExitCode(t *testing.T) {
	app := TestApp("testapp")
	app.Command("fail", "fail").Run(func(ctx *Context) error { return Exit(3) })

	res := app.Test(t, TestArgs("fail"))
	assert.Equal(t, 3, res.ExitCode)
}

func TestCommandErrorFormatsHintAndDetail(t *testing.T) {
	err := Errorf("could not connect").Hint("check your network").Detail("host=%s", "example.com")
	msg := err.Error()
	assert.Contains(t, msg, "could not connect")
	assert.Contains(t, msg, "Hint: check your network")
	assert.Contains(t, msg, "host=example.com")
}

func TestGetExitCodeDefaultsToOneForPlainErrors(t *testing.T) {
	assert.Equal(t, 0, GetExitCode(nil))
	assert.Equal(t, 1, GetExitCode(Errorf("boom")))
	assert.Equal(t, 3, GetExitCode(Exit(3)))
	assert.Equal(t, 0, GetExitCode(&HelpRequested{}))
}

func TestArgsOptionalTrailingArgument(t *testing.T) {
	var dest string
	app := TestApp("testapp")
	app.Command("copy", "copy").
		Args("source", "dest?").
		Run(func(ctx *Context) error {
			dest = ctx.Arg(1)
			return nil
		})

	res := app.Test(t, TestArgs("copy", "a.txt"))
	require.NoError(t, res.Err)
	assert.Equal(t, "", dest)
}

func TestArgsMissingRequiredArgumentFails(t *testing.T) {
	app := TestApp("testapp")
	app.Command("copy", "copy").
		Args("source", "dest").
		Run(func(ctx *Context) error { return nil })

	res := app.Test(t, TestArgs("copy", "a.txt"))
	assert.Error(t, res.Err)
}
