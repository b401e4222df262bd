// Released under an MIT license. See LICENSE.

/*
Vbls is a small interactive Unix shell. The following commands behave
as expected:

    date
    echo hello world
    who | wc
    mkdir junk && cd junk
    rm -r junk || echo 'rm failed!'
    for f in *.go; do wc $f; end
    if equals $USER root; then echo careful; end

Quoting follows the Plan 9 rc convention: only single quotes, with ''
producing a literal quote inside a string.

Vbls is released under an MIT-style license.
*/
package main

import (
	"io"
	"os"
	"os/user"
	"strconv"

	"github.com/spf13/afero"

	"github.com/vbls/vbls/internal/engine"
	"github.com/vbls/vbls/internal/system/options"
	"github.com/vbls/vbls/internal/system/process"
	"github.com/vbls/vbls/internal/ui"
)

func main() {
	options.Parse()

	e := engine.New(engine.Config{
		Options: engine.Options{
			Errexit:      options.Errexit(),
			ShowCommands: options.ShowCommands(),
		},
		Interactive: options.Interactive(),
		Exit: func(status int) {
			ui.Shutdown()
			os.Exit(status)
		},
	})

	environment(e)

	switch {
	case options.Command() != "":
		exit(e.Eval(options.Command()))

	case options.Script() != "":
		exit(e.Eval(read(options.Script())))

	case options.Interactive():
		process.IgnoreTerminalSignals()
		startup(e)
		ui.Run(e)
		os.Exit(0)

	default:
		// Commands arrive on stdin.
		chunk, err := io.ReadAll(os.Stdin)
		if err != nil {
			os.Exit(1)
		}

		exit(e.Eval(string(chunk)))
	}
}

func exit(ok bool) {
	if ok {
		os.Exit(0)
	}

	os.Exit(1)
}

// environment establishes the variables the shell owns: HOME, SHLVL,
// VBLS_VERSION, and the positional parameters.
func environment(e *engine.T) {
	if options.Login() || e.Getenv("HOME") == "" {
		home := e.Getenv("HOME")

		if u, err := user.Current(); err == nil {
			home = u.HomeDir
		}

		if home == "" {
			home = "/"
		}

		e.Setenv("HOME", home)
	}

	level, _ := strconv.Atoi(e.Getenv("SHLVL"))
	e.Setenv("SHLVL", strconv.Itoa(level+1))

	e.Setenv("VBLS_VERSION", options.Version)

	if pwd, err := os.Getwd(); err == nil {
		e.Setenv("PWD", pwd)
	}

	for i, arg := range options.Args() {
		e.Setenv(strconv.Itoa(i), arg)
	}
}

// startup sources the profile files an interactive shell reads.
func startup(e *engine.T) {
	fs := afero.NewOsFs()

	for _, path := range startupFiles() {
		if found, _ := afero.Exists(fs, path); found {
			e.Eval("source " + path)
		}
	}
}

func startupFiles() []string {
	home := os.Getenv("HOME")

	if options.Login() {
		return []string{"/etc/profile", home + "/.profile"}
	}

	return []string{"/etc/profile", home + "/.vblsrc"}
}

func read(path string) string {
	chunk, err := os.ReadFile(path)
	if err != nil {
		os.Stderr.WriteString("vbls: " + path + ": " + err.Error() + "\n")
		os.Exit(127)
	}

	return string(chunk)
}
