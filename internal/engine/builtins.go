// Released under an MIT license. See LICENSE.

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/vbls/vbls/internal/system/process"
)

// A builtin runs in the parent with the command's argument tail and
// the optional pipe ends the chain wired up for it.
type builtin func(e *engine, args []string, in, out *os.File) int

//nolint:gochecknoglobals
var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		":":        colon,
		".":        source,
		"alias":    alias,
		"builtins": names,
		"cd":       cd,
		"echo":     echo,
		"echo_nl":  echoNl,
		"equals":   equals,
		"exit":     exitShell,
		"printf":   printfb,
		"set":      set,
		"source":   source,
		"umask":    umaskb,
		"unalias":  unalias,
	}
}

func (e *engine) out(out *os.File) *os.File {
	if out != nil {
		return out
	}

	return e.stdout
}

func (e *engine) usage(s string) int {
	fmt.Fprintf(e.stderr, "vbls: usage: %s\n", s)

	return 1
}

func alias(e *engine, args []string, in, out *os.File) int {
	w := e.out(out)

	switch len(args) {
	case 0:
		for _, name := range e.Aliases() {
			fmt.Fprintf(w, "%s='%s'\n", name, e.aliases[name])
		}

		return 0

	case 1:
		value, found := e.aliases[args[0]]
		if !found {
			fmt.Fprintf(e.stderr, "vbls: alias: %s: not found\n", args[0])

			return 1
		}

		fmt.Fprintf(w, "%s='%s'\n", args[0], value)

		return 0

	case 2:
		e.Alias(args[0], args[1])

		return 0
	}

	return e.usage("alias [NAME [VALUE]]")
}

func unalias(e *engine, args []string, in, out *os.File) int {
	if len(args) != 1 {
		return e.usage("unalias NAME")
	}

	e.Unalias(args[0])

	return 0
}

func cd(e *engine, args []string, in, out *os.File) int {
	if len(args) > 1 {
		return e.usage("cd [DIR]")
	}

	requested := e.Getenv("HOME")
	if len(args) == 1 {
		requested = args[0]
		if requested == "-" {
			requested = e.Getenv("OLDPWD")
		}
	}

	resolved, err := realpath(requested)
	if err == nil {
		err = os.Chdir(resolved)
	}

	if err != nil {
		// Errors name the path as requested, not as resolved.
		fmt.Fprintf(e.stderr, "vbls: cd: %s: %s\n", requested, process.ErrnoName(err))

		return 1
	}

	// PWD and OLDPWD move together or not at all.
	e.Setenv("OLDPWD", e.Getenv("PWD"))
	e.Setenv("PWD", resolved)

	return 0
}

func realpath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return filepath.EvalSymlinks(abs)
}

func colon(e *engine, args []string, in, out *os.File) int {
	return 0
}

func echo(e *engine, args []string, in, out *os.File) int {
	fmt.Fprintln(e.out(out), strings.Join(args, " "))

	return 0
}

func echoNl(e *engine, args []string, in, out *os.File) int {
	fmt.Fprintln(e.out(out), strings.Join(args, "\n"))

	return 0
}

func equals(e *engine, args []string, in, out *os.File) int {
	if len(args) != 2 {
		return e.usage("equals A B")
	}

	if args[0] == args[1] {
		return 0
	}

	return 1
}

func exitShell(e *engine, args []string, in, out *os.File) int {
	status := 0

	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return e.usage("exit [N]")
		}

		status = n
	}

	e.exit(status)

	return status
}

func names(e *engine, args []string, in, out *os.File) int {
	sorted := make([]string, 0, len(builtins))
	for name := range builtins {
		sorted = append(sorted, name)
	}

	sort.Strings(sorted)

	fmt.Fprintln(e.out(out), strings.Join(sorted, "\n"))

	return 0
}

func printfb(e *engine, args []string, in, out *os.File) int {
	if len(args) == 0 {
		return e.usage("printf FORMAT [ARGUMENTS...]")
	}

	formatted, err := hostFormat(args[0], args[1:])
	if err != nil {
		return e.usage("printf FORMAT [ARGUMENTS...]")
	}

	fmt.Fprint(e.out(out), formatted)

	return 0
}

// hostFormat renders a C-style format string with Go's formatter,
// converting arguments to the types the verbs expect. The %i and %u
// spellings are accepted as %d.
func hostFormat(format string, args []string) (string, error) {
	format = strings.ReplaceAll(format, "%i", "%d")
	format = strings.ReplaceAll(format, "%u", "%d")

	var values []interface{}

	next := 0

	take := func() string {
		if next < len(args) {
			s := args[next]
			next++

			return s
		}

		return ""
	}

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}

		// Skip flags, width, and precision.
		j := i + 1
		for j < len(format) && strings.ContainsRune("-+ #0123456789.", rune(format[j])) {
			j++
		}

		if j >= len(format) {
			return "", fmt.Errorf("printf: missing verb")
		}

		verb := format[j]
		i = j

		switch verb {
		case '%':
		case 'd', 'o', 'x', 'X', 'c', 'b':
			n, err := strconv.ParseInt(take(), 10, 64)
			if err != nil {
				return "", err
			}

			values = append(values, n)
		case 'e', 'E', 'f', 'g', 'G':
			f, err := strconv.ParseFloat(take(), 64)
			if err != nil {
				return "", err
			}

			values = append(values, f)
		case 's', 'q', 'v':
			values = append(values, take())
		default:
			return "", fmt.Errorf("printf: bad verb %%%c", verb)
		}
	}

	formatted := fmt.Sprintf(format, values...)
	if strings.Contains(formatted, "%!") {
		return "", fmt.Errorf("printf: bad format")
	}

	return formatted, nil
}

func set(e *engine, args []string, in, out *os.File) int {
	if len(args) == 0 {
		w := e.out(out)

		for _, kv := range e.Environ() {
			fmt.Fprintln(w, renderControl(kv))
		}

		return 0
	}

	value := true
	rest := args

	for len(rest) > 0 {
		switch rest[0] {
		case "-n":
			value = false
		case "-e", "--errexit":
			e.opts.Errexit = value
		case "-x", "--showcommand", "--showcommands":
			e.opts.ShowCommands = value
		case "--cachepaths":
			e.opts.CachePaths = value
		default:
			if strings.HasPrefix(rest[0], "-") {
				return e.usage("set [-n] [-e] [-x] [--errexit] [--showcommand] [--cachepaths] | set NAME VALUE...")
			}

			if len(rest) < 2 {
				return e.usage("set NAME VALUE...")
			}

			e.Setenv(rest[0], strings.Join(rest[1:], " "))

			return 0
		}

		rest = rest[1:]
	}

	return 0
}

// renderControl makes control characters printable: each byte below
// 0x20 becomes a backslash followed by the byte plus 96.
func renderControl(s string) string {
	var b strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 {
			b.WriteByte('\\')
			b.WriteByte(c + 96)

			continue
		}

		b.WriteByte(c)
	}

	return b.String()
}

func source(e *engine, args []string, in, out *os.File) int {
	if len(args) != 1 {
		return e.usage("source FILE")
	}

	chunk, err := afero.ReadFile(e.fs, args[0])
	if err != nil {
		fmt.Fprintf(e.stderr, "vbls: source: %s: %s\n", args[0], process.ErrnoName(err))

		return 1
	}

	if out != nil {
		// Commands in the sourced file inherit the chain's
		// output end.
		saved := e.stdout
		e.stdout = out

		defer func() { e.stdout = saved }()
	}

	if ok := e.Eval(string(chunk)); !ok {
		return 1
	}

	return 0
}

func umaskb(e *engine, args []string, in, out *os.File) int {
	show := false

	if len(args) > 0 && args[0] == "-s" {
		show = true
		args = args[1:]
	}

	if len(args) != 1 {
		return e.usage("umask [-s] MASK")
	}

	var mask int

	if n, err := strconv.ParseUint(args[0], 8, 32); err == nil {
		mask = int(n)
	} else {
		current := process.Umask(0)

		mask, err = symbolicMask(current, args[0])
		if err != nil {
			process.Umask(current)

			return e.usage("umask [-s] MASK")
		}
	}

	process.Umask(mask)

	if show {
		fmt.Fprintf(e.out(out), "%04o\n", mask)
	}

	return 0
}

// symbolicMask applies comma-separated [ugoa]*[+-=][rwx]* clauses to
// the current mask. Granting a permission clears its mask bits.
func symbolicMask(current int, s string) (int, error) {
	mask := current

	for _, clause := range strings.Split(s, ",") {
		who := 0

		i := 0
	scan:
		for ; i < len(clause); i++ {
			switch clause[i] {
			case 'u':
				who |= 0o700
			case 'g':
				who |= 0o070
			case 'o':
				who |= 0o007
			case 'a':
				who |= 0o777
			default:
				break scan
			}
		}

		if who == 0 {
			who = 0o777
		}

		if i >= len(clause) {
			return 0, fmt.Errorf("umask: bad clause %q", clause)
		}

		op := clause[i]
		i++

		perms := 0

		for ; i < len(clause); i++ {
			switch clause[i] {
			case 'r':
				perms |= 0o444
			case 'w':
				perms |= 0o222
			case 'x':
				perms |= 0o111
			default:
				return 0, fmt.Errorf("umask: bad clause %q", clause)
			}
		}

		perms &= who

		switch op {
		case '+':
			mask &^= perms
		case '-':
			mask |= perms
		case '=':
			mask = (mask &^ who) | (who &^ perms)
		default:
			return 0, fmt.Errorf("umask: bad clause %q", clause)
		}
	}

	return mask, nil
}
