// Released under an MIT license. See LICENSE.

// Package ui provides the interactive command line for vbls.
package ui

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/vbls/vbls/internal/system/history"
	"github.com/vbls/vbls/internal/system/options"
)

// Evaluator is the interface for things that want to process chunks
// of input.
type Evaluator interface {
	Eval(chunk string) bool
	Getenv(name string) string
}

//nolint:gochecknoglobals
var active *liner.State

// Shutdown restores the terminal and flushes history. The exit
// builtin ends the process without unwinding Run, so it is routed
// through here first. Safe to call when the UI never started.
func Shutdown() {
	if active == nil {
		return
	}

	_ = history.Save(active.WriteHistory)
	active.Close()
	active = nil
}

// Run launches the UI, which hands each accepted line to e. It
// returns when input is closed.
func Run(e Evaluator) {
	cli := liner.NewLiner()
	active = cli

	defer Shutdown()

	cli.SetCtrlCAborts(true)

	_ = history.Load(cli.ReadHistory)

	for {
		line, err := cli.Prompt(Prompt(e))

		switch err {
		case nil:
			if strings.TrimSpace(line) == "" {
				continue
			}

			cli.AppendHistory(line)
			e.Eval(line)

		case liner.ErrPromptAborted:
			// ctrl-C: drop the line, show a fresh prompt.
			continue

		case io.EOF:
			os.Stdout.WriteString("\n")

			return

		default:
			return
		}
	}
}

// Prompt renders PS1. Recognized escapes: \W (basename of the current
// directory), \w (current directory), \h (host node name), \v (shell
// version), \s (shell name), \u (user). Directories have a leading
// $HOME abbreviated to ~.
func Prompt(e Evaluator) string {
	ps1 := e.Getenv("PS1")
	if ps1 == "" {
		ps1 = "% "
	}

	pwd, _ := os.Getwd()
	abbreviated := abbreviate(pwd, e.Getenv("HOME"))

	host, _ := os.Hostname()

	r := strings.NewReplacer(
		`\W`, filepath.Base(abbreviated),
		`\w`, abbreviated,
		`\h`, host,
		`\v`, options.Version,
		`\s`, "vbls",
		`\u`, e.Getenv("USER"),
	)

	return r.Replace(ps1)
}

func abbreviate(pwd, home string) string {
	if home != "" && strings.HasPrefix(pwd, home) {
		return "~" + strings.TrimPrefix(pwd, home)
	}

	return pwd
}
