// Released under an MIT license. See LICENSE.

// Package engine evaluates vbls token streams: control flow, command
// chains, substitution, and the builtin set.
//
// One engine value owns all shell state (aliases, options, the command
// path cache) and is threaded explicitly through evaluation. Variables
// live in the real process environment so child processes inherit them.
package engine

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/vbls/vbls/internal/reader/lexer"
	"github.com/vbls/vbls/internal/reader/token"
	"github.com/vbls/vbls/internal/system/cache"
)

// Options are the mutable shell options. Errexit and ShowCommands are
// seeded from the -e and -x command-line flags; all three can be
// toggled with the set builtin.
type Options struct {
	Errexit      bool
	ShowCommands bool
	CachePaths   bool
}

// Config carries the knobs main and the tests care about. Zero values
// select the real process surfaces.
type Config struct {
	Options     Options
	Interactive bool

	Fs             afero.Fs     // Defaults to the OS filesystem.
	Stdout, Stderr *os.File     // Default to os.Stdout and os.Stderr.
	Exit           func(int)    // Defaults to os.Exit.
	Suffix         string       // Optional script suffix tried in PATH search.
}

// T (engine) evaluates vbls input.
type T struct {
	aliases     map[string]string
	cache       *cache.T
	exit        func(int)
	fs          afero.Fs
	interactive bool
	opts        Options
	stderr      *os.File
	stdout      *os.File
	suffix      string
}

type engine = T

// New creates a new engine.
func New(config Config) *engine {
	e := &engine{
		aliases:     map[string]string{},
		cache:       cache.New(),
		exit:        config.Exit,
		fs:          config.Fs,
		interactive: config.Interactive,
		opts:        config.Options,
		stderr:      config.Stderr,
		stdout:      config.Stdout,
		suffix:      config.Suffix,
	}

	if e.exit == nil {
		e.exit = os.Exit
	}

	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}

	if e.stdout == nil {
		e.stdout = os.Stdout
	}

	if e.stderr == nil {
		e.stderr = os.Stderr
	}

	return e
}

// Eval evaluates one chunk of input. It returns true on clean
// completion.
func (e *engine) Eval(chunk string) bool {
	ok, _ := e.eval(chunk, false)

	return ok
}

// Capture evaluates one chunk with output capture enabled and returns
// the captured output alongside the completion flag.
func (e *engine) Capture(chunk string) (bool, string) {
	return e.eval(chunk, true)
}

// Getenv looks up a shell variable.
func (e *engine) Getenv(name string) string {
	return os.Getenv(name)
}

// Setenv sets a shell variable. Children inherit it.
func (e *engine) Setenv(name, value string) {
	_ = os.Setenv(name, value)
}

// Environ returns the environment as sorted K=V strings.
func (e *engine) Environ() []string {
	env := os.Environ()
	sort.Strings(env)

	return env
}

func (e *engine) eval(chunk string, capture bool) (bool, string) {
	chunk = strings.TrimLeft(chunk, " ")
	if chunk == "" {
		return true, ""
	}

	ts, err := lexer.Tokenize(chunk)
	if err != nil {
		e.report(err)

		return false, ""
	}

	return e.evaluate(ts, capture)
}

// report writes a user-visible error in the one true format.
func (e *engine) report(err error) {
	fmt.Fprintf(e.stderr, "vbls: %v\n", err)
}

// evaluate walks a token stream. The returned string is the
// accumulated captured output when capture is set.
func (e *engine) evaluate(ts []*token.T, capture bool) (bool, string) {
	var out strings.Builder

	var cmd []*token.T

	fail := func(err error) (bool, string) {
		e.report(err)

		return false, out.String()
	}

	for i := 0; i < len(ts); i++ {
		t := ts[i]
		last := i == len(ts)-1

		switch {
		case t.IsKeyword("if") || t.IsKeyword("elseif"):
			cond, j, err := readTo(ts, i+1, "then")
			if err != nil {
				return fail(err)
			}

			i = j

			status, _, err := e.chain(e.aliased(cond), true)
			if err != nil {
				return fail(err)
			}

			if status == 0 {
				body, j, _, err := balance(ts, i+1, "else", "elseif", "end")
				if err != nil {
					return fail(err)
				}

				ok, c := e.evaluate(body, capture)
				out.WriteString(c)

				if !ok {
					return false, out.String()
				}

				i, err = seekEnd(ts, j)
				if err != nil {
					return fail(err)
				}
			} else {
				_, j, stop, err := balance(ts, i+1, "else", "elseif", "end")
				if err != nil {
					return fail(err)
				}

				switch stop {
				case "else":
					body, k, _, err := balance(ts, j+1, "end")
					if err != nil {
						return fail(err)
					}

					ok, c := e.evaluate(body, capture)
					out.WriteString(c)

					if !ok {
						return false, out.String()
					}

					i = k
				case "elseif":
					// Rewind so the outer loop re-enters
					// at the elseif.
					i = j - 1
				default:
					i = j
				}
			}

		case t.IsKeyword("else"):
			return fail(fmt.Errorf("unexpected 'else'"))

		case t.IsKeyword("end"):
			return fail(fmt.Errorf("unexpected 'end'"))

		case t.IsKeyword("for"):
			header, j, err := readTo(ts, i+1, "do")
			if err != nil {
				return fail(err)
			}

			i = j

			if len(header) < 3 || !header[0].Is(token.Word) || !header[1].IsKeyword("in") {
				return fail(fmt.Errorf("for: expected 'NAME in CHAIN'"))
			}

			// Feeding the header words through echo_nl lets
			// plain word lists iterate, not just commands
			// that produce output.
			seq := append([]*token.T{token.New(token.Word, "echo_nl")}, e.aliased(header[2:])...)

			_, lines, err := e.chain(seq, true)
			if err != nil {
				return fail(err)
			}

			body, k, _, err := balance(ts, i+1, "end")
			if err != nil {
				return fail(err)
			}

			i = k

			name := header[0].Value()
			prior, had := os.LookupEnv(name)

			failed := false

			for _, line := range splitLines(lines) {
				e.Setenv(name, line)

				ok, c := e.evaluate(body, capture)
				out.WriteString(c)

				if !ok {
					failed = true

					break
				}
			}

			if had {
				e.Setenv(name, prior)
			} else {
				_ = os.Unsetenv(name)
			}

			if failed {
				return false, out.String()
			}

		case t.Is(token.Sep) || last:
			if t.Is(token.Sep) {
				if len(cmd) == 0 && t.Value() == ";" {
					return fail(fmt.Errorf("unexpected ';'"))
				}
			} else {
				cmd = e.appendWord(cmd, t)
			}

			if len(cmd) == 0 {
				continue
			}

			status, c, err := e.chain(cmd, capture)
			out.WriteString(c)

			cmd = nil

			if err != nil {
				return fail(err)
			}

			if status != 0 {
				if e.opts.Errexit {
					e.exit(1)
				}

				return false, out.String()
			}

		default:
			cmd = e.appendWord(cmd, t)
		}
	}

	return true, out.String()
}

// aliased applies first-word alias expansion to a command chain the
// evaluator is about to run directly, such as an if condition or a
// for header.
func (e *engine) aliased(ts []*token.T) []*token.T {
	if len(ts) == 0 {
		return ts
	}

	return append(e.appendWord(nil, ts[0]), ts[1:]...)
}

// appendWord adds a token to the current command, applying alias
// expansion when the token is the command's first word. The alias
// value is re-tokenized but not expanded again.
func (e *engine) appendWord(cmd []*token.T, t *token.T) []*token.T {
	if len(cmd) == 0 && t.Is(token.Word) {
		if value, found := e.aliases[t.Value()]; found {
			expansion, err := lexer.Tokenize(value)
			if err == nil {
				return append(cmd, expansion...)
			}
		}
	}

	return append(cmd, t)
}

// readTo collects tokens up to (and not including) the keyword kw.
// It returns the collected tokens and the keyword's index.
func readTo(ts []*token.T, i int, kw string) ([]*token.T, int, error) {
	var collected []*token.T

	for ; i < len(ts); i++ {
		if ts[i].IsKeyword(kw) {
			return collected, i, nil
		}

		collected = append(collected, ts[i])
	}

	return nil, 0, fmt.Errorf("missing '%s'", kw)
}

// balance advances through ts tracking block nesting: if, for, and
// while open a block and end closes one. It stops at the first target
// keyword seen at the top level of the block being scanned, returning
// the skipped tokens (excluding the stopping keyword), the stopping
// keyword's index, and its name.
func balance(ts []*token.T, i int, targets ...string) ([]*token.T, int, string, error) {
	var skipped []*token.T

	level := 1

	for ; i < len(ts); i++ {
		t := ts[i]

		if t.Is(token.Keyword) {
			kw := t.Value()

			if level == 1 {
				for _, target := range targets {
					if kw == target {
						return skipped, i, kw, nil
					}
				}
			}

			switch kw {
			case "if", "for", "while":
				level++
			case "end":
				level--
			}
		}

		skipped = append(skipped, t)
	}

	return nil, 0, "", fmt.Errorf("unbalanced block")
}

// seekEnd skips from the stopping keyword at index j to the matching
// end of the enclosing block. When the block already stopped at its
// end there is nothing to do.
func seekEnd(ts []*token.T, j int) (int, error) {
	if ts[j].IsKeyword("end") {
		return j, nil
	}

	_, k, _, err := balance(ts, j+1, "end")
	if err != nil {
		return 0, err
	}

	return k, nil
}

// splitLines splits captured output into its LF-delimited lines.
// Trailing newlines do not contribute empty entries.
func splitLines(captured string) []string {
	captured = strings.TrimRight(captured, "\n")
	if captured == "" {
		return nil
	}

	return strings.Split(captured, "\n")
}
