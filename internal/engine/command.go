// Released under an MIT license. See LICENSE.

package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"github.com/vbls/vbls/internal/reader/token"
	"github.com/vbls/vbls/internal/system/process"
)

// defaultPath is searched when PATH is unset.
const defaultPath = "/bin:/sbin:/usr/bin"

// command expands and runs a single command. Builtins run in the
// parent; anything else is resolved against PATH and started as a
// child with the optional in and out descriptors standing in for its
// stdin and stdout. The parent owns in and out and closes them here.
func (e *engine) command(ts []*token.T, in, out *os.File) int {
	argv := e.expand(ts)
	if len(argv) == 0 {
		closeFile(in)
		closeFile(out)

		return 0
	}

	if e.opts.ShowCommands {
		fmt.Fprintf(e.stderr, "+ '%s '\n", strings.Join(argv, " "))
	}

	if b, found := builtins[argv[0]]; found {
		status := b(e, argv[1:], in, out)

		closeFile(in)
		closeFile(out)

		return status
	}

	path, err := e.findCommand(argv[0])
	if err != nil {
		e.report(err)
		closeFile(in)
		closeFile(out)

		return 127
	}

	stdin := os.Stdin
	if in != nil {
		stdin = in
	}

	stdout := e.stdout
	if out != nil {
		stdout = out
	}

	attr := &os.ProcAttr{
		Files: []*os.File{stdin, stdout, e.stderr},
		Env:   os.Environ(),
		Sys:   process.SysProcAttr(e.interactive),
	}

	child, err := os.StartProcess(path, argv, attr)

	closeFile(in)
	closeFile(out)

	if err != nil {
		fmt.Fprintf(e.stderr, "vbls: %s: %v\n", path, err)

		return errnoStatus(err)
	}

	state, err := child.Wait()

	if e.interactive {
		process.RestoreForegroundGroup()
	}

	if err != nil {
		e.report(err)

		return 1
	}

	return process.ExitStatus(state)
}

// findCommand resolves a command name to the path handed to exec. A
// name containing a slash is used verbatim. Anything else is searched
// for along PATH, trying entry/name and, when a script suffix is
// configured, entry/name<suffix>. Resolutions are remembered while the
// cachepaths option is on.
func (e *engine) findCommand(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}

	if e.opts.CachePaths {
		if path, found := e.cache.Get(name); found {
			return path, nil
		}
	}

	path := e.Getenv("PATH")
	if path == "" {
		path = defaultPath
	}

	for _, dir := range strings.Split(path, ":") {
		if dir == "" {
			continue
		}

		candidates := []string{filepath.Join(dir, name)}
		if e.suffix != "" {
			candidates = append(candidates, filepath.Join(dir, name+e.suffix))
		}

		for _, candidate := range candidates {
			if found, _ := afero.Exists(e.fs, candidate); found {
				if e.opts.CachePaths {
					e.cache.Put(name, candidate)
				}

				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%s: command not found", name)
}

// errnoStatus maps a launch failure to the child's traditional exit
// status: the errno value when one can be found.
func errnoStatus(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}

	return 1
}
