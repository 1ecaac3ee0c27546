package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/conn-castle/metal-server/internal/messages"
	"github.com/conn-castle/metal-server/internal/sysconf"
)

var executeFunc = execute

// Version, Commit, and BuildDate are overridden at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Exit codes reported to the shell. Scripts driving metal branch on these.
const (
	exitOK               = 0
	exitGeneric          = 1
	exitValidation       = 2
	exitConflict         = 3
	exitOffline          = 4
	exitHandledRestart   = 5
	exitUnhandledRestart = 6
	exitInterrupted      = 130
)

func main() {
	runMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

// SilentExitError reports an exit code without emitting error output.
type SilentExitError struct {
	Code int
}

func (e SilentExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// execute runs the CLI command with the provided args and output writers.
func execute(args []string, stdout io.Writer, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.Version = versionString()
	cmd.SetVersionTemplate(messages.VersionTemplate)
	if len(args) > 1 {
		cmd.SetArgs(args[1:])
	} else {
		cmd.SetArgs([]string{})
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

// runMain executes the CLI and exits with the code matching the failure.
func runMain(args []string, stdout io.Writer, stderr io.Writer, exit func(int)) {
	err := executeFunc(args, stdout, stderr)
	if err == nil {
		return
	}
	var silent SilentExitError
	if errors.As(err, &silent) {
		exit(silent.Code)
		return
	}
	code := exitCode(err)
	if code == exitUnhandledRestart {
		_, _ = color.New(color.FgRed, color.Bold).Fprintln(stderr, err)
	} else {
		_, _ = fmt.Fprintln(stderr, err)
	}
	exit(code)
}

// exitCode maps an update failure onto the documented exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, sysconf.ErrUnhandledRestartFailure):
		return exitUnhandledRestart
	case errors.Is(err, sysconf.ErrHandledRestartFailure):
		return exitHandledRestart
	case errors.Is(err, sysconf.ErrValidationFailed):
		return exitValidation
	case errors.Is(err, sysconf.ErrTransactionConflict):
		return exitConflict
	case errors.Is(err, sysconf.ErrDaemonOffline):
		return exitOffline
	case errors.Is(err, sysconf.ErrInterrupted):
		return exitInterrupted
	default:
		return exitGeneric
	}
}

// versionString formats Version with optional commit and build date metadata.
func versionString() string {
	meta := []string{}
	if Commit != "" && Commit != "unknown" {
		meta = append(meta, fmt.Sprintf(messages.VersionCommitFmt, Commit))
	}
	if BuildDate != "" && BuildDate != "unknown" {
		meta = append(meta, fmt.Sprintf(messages.VersionBuildFmt, BuildDate))
	}
	if len(meta) == 0 {
		return Version
	}
	return fmt.Sprintf(messages.VersionFullFmt, Version, strings.Join(meta, ", "))
}
