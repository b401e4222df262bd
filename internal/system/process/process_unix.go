// Released under an MIT license. See LICENSE.

//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

// Package process wraps the Unix primitives vbls needs to run children
// in the foreground and to decode what happened to them.
package process

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

//nolint:gochecknoglobals
var (
	// Umask sets the umask and returns the previous one.
	Umask = unix.Umask

	id       = unix.Getpid()
	group, _ = unix.Getpgid(id)
	terminal = int(os.Stdin.Fd())
)

// ErrnoName returns the name (e.g. ENOENT) for the errno wrapped in
// err, or the plain error text when no errno can be found.
func ErrnoName(err error) string {
	var errno unix.Errno
	if errors.As(err, &errno) {
		if name := unix.ErrnoName(errno); name != "" {
			return name
		}
	}

	return err.Error()
}

// ExitStatus decodes a wait status: the exit code for a normal exit,
// the signal number plus 128 for a killed child.
func ExitStatus(state *os.ProcessState) int {
	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return state.ExitCode()
	}

	switch {
	case status.Exited():
		return status.ExitStatus()
	case status.Signaled():
		return int(status.Signal()) + 128
	}

	return int(status)
}

// ForegroundGroup returns the terminal's current foreground group ID.
func ForegroundGroup() int {
	g, err := unix.IoctlGetInt(terminal, unix.TIOCGPGRP)
	if err != nil {
		return 0
	}

	return g
}

// Group returns the group ID for the current process.
func Group() int {
	return group
}

// IgnoreTerminalSignals installs "ignore" for the terminal-control
// signals so background terminal operations do not suspend the shell.
func IgnoreTerminalSignals() {
	signal.Ignore(unix.SIGTTIN, unix.SIGTTOU, unix.SIGTSTP)
}

// RestoreForegroundGroup places the group for this process back in the
// foreground.
func RestoreForegroundGroup() {
	if group == ForegroundGroup() {
		return
	}

	SetForegroundGroup(group)
}

// SetForegroundGroup sets the terminal's foreground group to g.
func SetForegroundGroup(g int) {
	_ = unix.IoctlSetPointerInt(terminal, unix.TIOCSPGRP, g)
}

// SysProcAttr returns the attributes used to start a child. A
// foreground child is placed in its own process group and handed the
// controlling terminal.
func SysProcAttr(foreground bool) *syscall.SysProcAttr {
	if !foreground {
		return nil
	}

	return &syscall.SysProcAttr{
		Setpgid:    true,
		Foreground: true,
		Ctty:       terminal,
	}
}
