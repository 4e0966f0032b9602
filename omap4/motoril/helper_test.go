package motoril

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecHelper(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := filepath.Join(dir, "motorilc")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" > "+argsFile+"\necho OK\n"), 0o755))

	hook := test.NewGlobal()
	defer hook.Reset()

	ExecHelper{Path: script}.Run("rmnet1", "10.0.0.1")

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "rmnet1 10.0.0.1\n", string(args))

	var lines []string
	for _, e := range hook.AllEntries() {
		if e.Level == log.InfoLevel {
			lines = append(lines, e.Message)
		}
	}
	assert.Equal(t, []string{"OK"}, lines)
}

func TestExecHelperLongLines(t *testing.T) {
	script := filepath.Join(t.TempDir(), "motorilc")
	long := "head -c 204800 /dev/zero | tr '\\0' x; echo\n"
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"+long+long+"echo OK\n"), 0o755))

	hook := test.NewGlobal()
	defer hook.Reset()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ExecHelper{Path: script}.Run("ring")
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("helper run did not return")
	}

	var lines []string
	for _, e := range hook.AllEntries() {
		if e.Level == log.InfoLevel {
			lines = append(lines, e.Message)
		}
	}
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Repeat("x", 204800), lines[0])
	assert.Equal(t, strings.Repeat("x", 204800), lines[1])
	assert.Equal(t, "OK", lines[2])
}

func TestExecHelperMissingBinary(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	ExecHelper{Path: filepath.Join(t.TempDir(), "missing")}.Run("ring")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
}
