package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbls/vbls/internal/system/process"
)

func TestCd(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)

	t.Cleanup(func() { _ = os.Chdir(orig) })
	t.Setenv("PWD", orig)
	t.Setenv("OLDPWD", "")

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	e := testEngine(t, Config{})

	ok := e.Eval("cd " + dir)
	assert.True(t, ok)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, dir, wd)
	assert.Equal(t, dir, os.Getenv("PWD"))
	assert.Equal(t, orig, os.Getenv("OLDPWD"))
}

func TestCdDash(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)

	t.Cleanup(func() { _ = os.Chdir(orig) })
	t.Setenv("PWD", orig)
	t.Setenv("OLDPWD", "")

	a, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	b, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	e := testEngine(t, Config{})

	require.True(t, e.Eval("cd "+a))
	require.True(t, e.Eval("cd "+b))
	require.True(t, e.Eval("cd -"))

	assert.Equal(t, a, os.Getenv("PWD"))
	assert.Equal(t, b, os.Getenv("OLDPWD"))
}

func TestCdFailureLeavesStateAlone(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)

	t.Cleanup(func() { _ = os.Chdir(orig) })
	t.Setenv("PWD", orig)
	t.Setenv("OLDPWD", "prior")

	e := testEngine(t, Config{})

	ok := e.Eval("cd /nonexistent-vbls-dir")
	assert.False(t, ok)
	assert.Contains(t, stderrText(t, e), "vbls: cd: /nonexistent-vbls-dir: ENOENT")

	// Neither PWD nor OLDPWD moved, and neither did the process.
	assert.Equal(t, orig, os.Getenv("PWD"))
	assert.Equal(t, "prior", os.Getenv("OLDPWD"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, orig, wd)
}

func TestAliasListing(t *testing.T) {
	e := testEngine(t, Config{})

	require.True(t, e.Eval("alias zz 'echo z'"))
	require.True(t, e.Eval("alias aa 'echo a'"))

	ok, out := e.Capture("alias")
	assert.True(t, ok)
	assert.Equal(t, "aa='echo a'\nzz='echo z'\n", out)

	ok, out = e.Capture("alias zz")
	assert.True(t, ok)
	assert.Equal(t, "zz='echo z'\n", out)

	require.True(t, e.Eval("unalias zz"))

	ok = e.Eval("alias zz")
	assert.False(t, ok)
	assert.Contains(t, stderrText(t, e), "alias: zz: not found")
}

func TestEquals(t *testing.T) {
	e := testEngine(t, Config{})

	assert.True(t, e.Eval("equals same same"))
	assert.False(t, e.Eval("equals one two"))
	assert.False(t, e.Eval("equals lonely"))
}

func TestEchoNl(t *testing.T) {
	e := testEngine(t, Config{})

	ok, out := e.Capture("echo_nl a b c")
	assert.True(t, ok)
	assert.Equal(t, "a\nb\nc\n", out)
}

func TestPrintf(t *testing.T) {
	e := testEngine(t, Config{})

	ok, out := e.Capture("printf '%s=%d\n' answer 42")
	assert.True(t, ok)
	assert.Equal(t, "answer=42\n", out)

	ok, out = e.Capture("printf '%05d' 3")
	assert.True(t, ok)
	assert.Equal(t, "00003", out)

	assert.False(t, e.Eval("printf '%d' not-a-number"))
	assert.Contains(t, stderrText(t, e), "usage: printf")
}

func TestSetOptions(t *testing.T) {
	e := testEngine(t, Config{})

	require.True(t, e.Eval("set -e"))
	assert.True(t, e.opts.Errexit)

	require.True(t, e.Eval("set -n -e"))
	assert.False(t, e.opts.Errexit)

	require.True(t, e.Eval("set --showcommand"))
	assert.True(t, e.opts.ShowCommands)

	require.True(t, e.Eval("set -n --showcommand"))
	assert.False(t, e.opts.ShowCommands)

	require.True(t, e.Eval("set --cachepaths"))
	assert.True(t, e.opts.CachePaths)
}

func TestSetVariable(t *testing.T) {
	e := testEngine(t, Config{})

	t.Setenv("VBLS_T_SET", "")

	require.True(t, e.Eval("set VBLS_T_SET one two"))
	assert.Equal(t, "one two", os.Getenv("VBLS_T_SET"))
}

func TestSetListingRendersControlCharacters(t *testing.T) {
	e := testEngine(t, Config{})

	t.Setenv("VBLS_T_CTRL", "a\tb\nc")

	ok, out := e.Capture("set")
	assert.True(t, ok)
	// TAB is 0x09 -> 'i', LF is 0x0a -> 'j'.
	assert.Contains(t, out, `VBLS_T_CTRL=a\ib\jc`)
}

func TestUmask(t *testing.T) {
	old := process.Umask(0o022)
	t.Cleanup(func() { process.Umask(old) })

	e := testEngine(t, Config{})

	ok, out := e.Capture("umask -s 027")
	assert.True(t, ok)
	assert.Equal(t, "0027\n", out)

	ok, out = e.Capture("umask -s a+r")
	assert.True(t, ok)
	assert.Equal(t, "0023\n", out)

	assert.False(t, e.Eval("umask not-a-mask"))
	assert.Contains(t, stderrText(t, e), "usage: umask")
}

func TestBuiltinsListing(t *testing.T) {
	e := testEngine(t, Config{})

	ok, out := e.Capture("builtins")
	assert.True(t, ok)

	for _, name := range []string{"alias", "cd", "echo", "echo_nl", "equals", "exit", "printf", "set", "source", "umask", "unalias"} {
		assert.Contains(t, out, name+"\n")
	}
}

func TestSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/lib.vbls", []byte("echo from-lib\n"), 0o644))

	e := testEngine(t, Config{Fs: fs})

	ok, out := e.Capture("source /lib.vbls")
	assert.True(t, ok)
	assert.Equal(t, "from-lib\n", out)

	ok, out = e.Capture(". /lib.vbls")
	assert.True(t, ok)
	assert.Equal(t, "from-lib\n", out)
}

func TestSourceMissingFile(t *testing.T) {
	e := testEngine(t, Config{Fs: afero.NewMemMapFs()})

	ok := e.Eval("source /nope.vbls")
	assert.False(t, ok)
	assert.Contains(t, stderrText(t, e), "vbls: source:")
}

func TestColon(t *testing.T) {
	e := testEngine(t, Config{})

	assert.True(t, e.Eval(":"))
}

func TestExit(t *testing.T) {
	var exited []int

	e := testEngine(t, Config{Exit: func(status int) { exited = append(exited, status) }})

	e.Eval("exit 3")
	assert.Equal(t, []int{3}, exited)

	e.Eval("exit")
	assert.Equal(t, []int{3, 0}, exited)

	assert.False(t, e.Eval("exit nope"))
	assert.Contains(t, stderrText(t, e), "usage: exit")
}

func TestFindCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/pbin/tool", []byte("#!"), 0o755))
	require.NoError(t, afero.WriteFile(fs, "/pbin/script.vbls", []byte("#!"), 0o755))

	t.Setenv("PATH", "/pbin")

	e := testEngine(t, Config{Fs: fs, Suffix: ".vbls"})

	path, err := e.findCommand("tool")
	require.NoError(t, err)
	assert.Equal(t, "/pbin/tool", path)

	// The configured suffix is tried for bare names.
	path, err = e.findCommand("script")
	require.NoError(t, err)
	assert.Equal(t, "/pbin/script.vbls", path)

	// Names with a slash resolve verbatim.
	path, err = e.findCommand("./relative/prog")
	require.NoError(t, err)
	assert.Equal(t, "./relative/prog", path)

	_, err = e.findCommand("absent")
	assert.Error(t, err)
}

func TestFindCommandCaches(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/pbin/tool", []byte("#!"), 0o755))

	t.Setenv("PATH", "/pbin")

	e := testEngine(t, Config{Fs: fs, Options: Options{CachePaths: true}})

	path, err := e.findCommand("tool")
	require.NoError(t, err)
	assert.Equal(t, "/pbin/tool", path)

	// The cached resolution survives the file going away.
	require.NoError(t, fs.Remove("/pbin/tool"))

	path, err = e.findCommand("tool")
	require.NoError(t, err)
	assert.Equal(t, "/pbin/tool", path)
}
