// Package testutil writes executable stand-ins for daemon hooks in tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// stubTemplate records each invocation in <path>.count, then fails while the
// count is at most failures.
const stubTemplate = `#!/bin/sh
count_file='%[1]s.count'
count=0
[ -f "$count_file" ] && count=$(cat "$count_file")
count=$((count + 1))
echo "$count" > "$count_file"
if [ "$count" -le %[2]d ]; then
  printf '%%s\n' '%[3]s' >&2
  exit %[4]d
fi
exit 0
`

// alwaysFail exceeds any invocation count a test reaches.
const alwaysFail = 1 << 30

// WriteStub writes an executable shell stub that exits successfully.
// t is the active test; dir is the output directory; name is the executable file name.
// It returns the stub path.
func WriteStub(t *testing.T, dir string, name string) string {
	t.Helper()
	return writeStub(t, dir, name, 0, "", 0)
}

// WriteStubWithExit writes an executable shell stub that always exits with the provided code.
func WriteStubWithExit(t *testing.T, dir string, name string, exitCode int) string {
	t.Helper()
	return WriteStubWithOutput(t, dir, name, name+" failed", exitCode)
}

// WriteStubWithOutput writes a stub that prints output to stderr and exits with exitCode.
func WriteStubWithOutput(t *testing.T, dir string, name string, output string, exitCode int) string {
	t.Helper()
	if exitCode == 0 {
		t.Fatalf("WriteStubWithOutput: use WriteStub for a succeeding stub")
	}
	return writeStub(t, dir, name, alwaysFail, output, exitCode)
}

// WriteFlakyStub writes a stub that fails its first failures invocations and succeeds afterwards.
func WriteFlakyStub(t *testing.T, dir string, name string, failures int) string {
	t.Helper()
	return writeStub(t, dir, name, failures, name+" failed", 1)
}

// Invocations returns how many times the stub at path has run.
func Invocations(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path + ".count")
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("read invocation count: %v", err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parse invocation count: %v", err)
	}
	return count
}

func writeStub(t *testing.T, dir string, name string, failures int, output string, exitCode int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := fmt.Sprintf(stubTemplate, path, failures, shellQuote(output), exitCode)
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

// shellQuote escapes s for use inside single quotes.
func shellQuote(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
