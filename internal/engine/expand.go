// Released under an MIT license. See LICENSE.

package engine

import (
	"regexp"
	"sort"
	"strings"

	"github.com/michaelmacinnis/adapted"

	"github.com/vbls/vbls/internal/reader/token"
)

var (
	bracket = regexp.MustCompile(`\[.\]`)
	braced  = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)
	plain   = regexp.MustCompile(`\$([A-Za-z0-9_]+)`)
)

// expand turns a command's tokens into its argv. Each word gets, in
// order: command substitution, separator stripping, glob expansion,
// and parameter expansion. Words produced by substitution or glob are
// final; parameter expansion does not run on them again.
func (e *engine) expand(ts []*token.T) []string {
	var argv []string

	for _, t := range ts {
		w := t.Value()

		switch {
		case strings.HasPrefix(w, "$(") && strings.HasSuffix(w, ")"):
			_, captured := e.eval(w[2:len(w)-1], true)

			// An empty capture removes the argument entirely.
			argv = append(argv, splitLines(captured)...)

		case t.Is(token.Sep):
			// A separator that survived to argv level. A
			// quoted ";" is a Word and is kept.

		case strings.ContainsAny(w, "*?") || bracket.MatchString(w):
			m, err := adapted.Glob(w)
			if err != nil || len(m) == 0 {
				argv = append(argv, w)

				continue
			}

			sort.Strings(m)
			argv = append(argv, m...)

		default:
			argv = append(argv, e.expandParameters(w))
		}
	}

	return argv
}

// expandParameters applies ${NAME} then $NAME textual substitution.
// Unset names expand to the empty string.
func (e *engine) expandParameters(w string) string {
	w = braced.ReplaceAllStringFunc(w, func(m string) string {
		return e.Getenv(m[2 : len(m)-1])
	})

	return plain.ReplaceAllStringFunc(w, func(m string) string {
		return e.Getenv(m[1:])
	})
}

// Alias records or replaces an alias.
func (e *engine) Alias(name, value string) {
	e.aliases[name] = value
}

// Unalias removes an alias.
func (e *engine) Unalias(name string) {
	delete(e.aliases, name)
}

// Aliases returns the alias names in sorted order.
func (e *engine) Aliases() []string {
	names := make([]string, 0, len(e.aliases))
	for name := range e.aliases {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
