// Released under an MIT license. See LICENSE.

// Package options parses the vbls command line.
package options

import (
	"os"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"
)

// Version is the vbls release. It is also published as VBLS_VERSION.
const Version = "0.3.1"

//nolint:gochecknoglobals
var (
	args        []string
	command     string
	errexit     bool
	interactive bool
	login       bool
	script      string
	show        bool
	usage       = `vbls

Usage:
  vbls [-ex] [--login] [SCRIPT [ARGUMENTS...]]
  vbls [-ex] -c COMMAND [ARGUMENTS...]
  vbls -h | --help
  vbls -v | --version

Arguments:
  SCRIPT     Path to a vbls script. Also used as the value for $0.
  ARGUMENTS  Positional parameters.

Options:
  -c COMMAND     Evaluate the specified command and exit.
  --login        Act as a login shell.
  -e             Exit on the first non-zero command status (errexit).
  -x             Print each command before executing it (showcommands).
  -h, --help     Display this help.
  -v, --version  Print the vbls version.

If vbls's stdin is a TTY and neither a script nor -c was given, the
shell runs interactively: startup files are sourced, the line editor is
enabled, and history is kept in $HOME/.vbls_history.
`
)

// Args returns $0 followed by the positional parameters.
func Args() []string {
	return args
}

// Command returns the -c string, if any.
func Command() string {
	return command
}

// Errexit returns true if -e was given.
func Errexit() bool {
	return errexit
}

// Interactive returns true if the shell is interactive.
func Interactive() bool {
	return interactive
}

// Login returns true if --login was given.
func Login() bool {
	return login
}

// Parse parses the command line.
func Parse() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], Version)
	if err != nil {
		// Error in the usage doc. This should never happen.
		panic(err.Error())
	}

	command, _ = opts.String("-c")
	errexit, _ = opts.Bool("-e")
	show, _ = opts.Bool("-x")
	login, _ = opts.Bool("--login")

	name := os.Args[0]

	script, _ = opts.String("SCRIPT")
	if script != "" {
		name = script
	} else if command == "" && isatty.IsTerminal(os.Stdin.Fd()) {
		interactive = true
	}

	args, _ = opts["ARGUMENTS"].([]string)
	args = append([]string{name}, args...)
}

// Script returns the script path, if any.
func Script() string {
	return script
}

// ShowCommands returns true if -x was given.
func ShowCommands() bool {
	return show
}
