// Released under an MIT license. See LICENSE.

package engine

import (
	"fmt"
	"os"
	"strings"

	"github.com/vbls/vbls/internal/reader/token"
)

// Capture pipes are drained in chunks of this size.
const captureChunk = 2048

// chain executes one command chain: elements joined by |, && and ||.
// Pipes are allocated lazily, only for | pairs. With capture set, one
// extra pipe collects the last element's standard output and the
// drained bytes are returned.
//
// Every pipe end allocated here is closed on every path: handed to a
// child and closed, or closed directly.
func (e *engine) chain(ts []*token.T, capture bool) (int, string, error) {
	elems, ops, err := split(ts)
	if err != nil {
		return 1, "", err
	}

	if len(elems) == 0 {
		return 0, "", nil
	}

	var captured strings.Builder

	var capR *os.File

	status := 0
	ran := true

	var prevRead *os.File

	for k, elem := range elems {
		in := prevRead
		prevRead = nil

		run := true
		if k > 0 {
			switch ops[k-1] {
			case "&&":
				run = status == 0
			case "||":
				run = status != 0
			case "|":
				// A pipe from a skipped command is skipped
				// with it.
				run = ran
			}
		}

		ran = run
		if !run {
			continue
		}

		var out *os.File

		switch {
		case k < len(ops) && ops[k] == "|":
			r, w, err := os.Pipe()
			if err != nil {
				closeFile(in)

				return status, captured.String(), err
			}

			out = w
			prevRead = r

		case k == len(elems)-1 && capture:
			r, w, err := os.Pipe()
			if err != nil {
				closeFile(in)

				return status, captured.String(), err
			}

			out = w
			capR = r
		}

		status = e.command(elem, in, out)
	}

	closeFile(prevRead)

	if capR != nil {
		buf := make([]byte, captureChunk)

		for {
			n, err := capR.Read(buf)
			captured.Write(buf[:n])

			if err != nil {
				break
			}
		}

		closeFile(capR)
	}

	return status, captured.String(), nil
}

// split breaks a token stream into chain elements and the operators
// joining them. An operator with no element before it, after another
// operator, or at the end of the chain is an error.
func split(ts []*token.T) ([][]*token.T, []string, error) {
	var elems [][]*token.T

	var ops []string

	var cur []*token.T

	for _, t := range ts {
		if t.Is(token.Op) {
			if len(cur) == 0 {
				return nil, nil, fmt.Errorf("unexpected '%s'", t.Value())
			}

			elems = append(elems, cur)
			ops = append(ops, t.Value())
			cur = nil

			continue
		}

		cur = append(cur, t)
	}

	if len(cur) == 0 {
		if len(ops) > 0 {
			return nil, nil, fmt.Errorf("unexpected '%s'", ops[len(ops)-1])
		}

		return nil, nil, nil
	}

	elems = append(elems, cur)

	return elems, ops, nil
}

func closeFile(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
