package engine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbls/vbls/internal/reader/lexer"
	"github.com/vbls/vbls/internal/reader/token"
)

func tokenize(t *testing.T, chunk string) ([]*token.T, error) {
	t.Helper()

	return lexer.Tokenize(chunk)
}

// openFds counts this process's open descriptors.
func openFds(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd on this system")
	}

	return len(entries)
}

func catPath(t *testing.T) string {
	t.Helper()

	for _, path := range []string{"/bin/cat", "/usr/bin/cat"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	t.Skip("no cat binary found")

	return ""
}

func TestPipeline(t *testing.T) {
	cat := catPath(t)
	e := testEngine(t, Config{})

	ok, out := e.Capture("echo one | " + cat)
	assert.True(t, ok)
	assert.Equal(t, "one\n", out)
}

func TestPipelineStages(t *testing.T) {
	cat := catPath(t)
	e := testEngine(t, Config{})

	ok, out := e.Capture("echo stage | " + cat + " | " + cat)
	assert.True(t, ok)
	assert.Equal(t, "stage\n", out)
}

func TestNoDescriptorLeaks(t *testing.T) {
	cat := catPath(t)
	e := testEngine(t, Config{})

	before := openFds(t)

	for i := 0; i < 3; i++ {
		_, _ = e.Capture("echo a | " + cat + " && echo b")
		_, _ = e.Capture("echo a | " + cat + " | " + cat)
		_, _ = e.Capture("equals a b || echo c")
		_ = e.Eval("| broken")
	}

	assert.Equal(t, before, openFds(t))
}

func TestSplitOperators(t *testing.T) {
	ts, err := tokenize(t, "a | b && c || d")
	require.NoError(t, err)

	elems, ops, err := split(ts)
	require.NoError(t, err)

	require.Len(t, elems, 4)
	assert.Equal(t, []string{"|", "&&", "||"}, ops)
}

func TestSplitErrors(t *testing.T) {
	for _, chunk := range []string{
		"| a",
		"a | | b",
		"a &&",
		"&& a",
	} {
		ts, err := tokenize(t, chunk)
		require.NoError(t, err)

		_, _, err = split(ts)
		assert.Error(t, err, "chunk %q", chunk)
		assert.Contains(t, err.Error(), "unexpected", "chunk %q", chunk)
	}
}

func TestSkippedPipeStage(t *testing.T) {
	cat := catPath(t)
	e := testEngine(t, Config{})

	// The failed && skips the pipeline that follows it, pipe
	// included.
	ok, out := e.Capture("equals a b && echo nope | " + cat)
	assert.False(t, ok)
	assert.Equal(t, "", out)
}

func TestChainStatusIsLastExecuted(t *testing.T) {
	e := testEngine(t, Config{})

	ts, err := tokenize(t, "equals a b || equals c c")
	require.NoError(t, err)

	status, _, err := e.chain(ts, false)
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	ts, err = tokenize(t, "equals a a && equals c d")
	require.NoError(t, err)

	status, _, err = e.chain(ts, false)
	require.NoError(t, err)
	assert.Equal(t, 1, status)
}
