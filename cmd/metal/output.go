package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/conn-castle/metal-server/internal/messages"
	"github.com/conn-castle/metal-server/internal/sysconf"
)

func printResult(out io.Writer, res *sysconf.Result, planned bool, showDiff bool) {
	if planned {
		_, _ = fmt.Fprintf(out, messages.ResultPlannedFmt, res.Generation, res.Previous)
	} else {
		_, _ = fmt.Fprintf(out, messages.ResultCommittedFmt, res.Generation, res.Previous)
	}
	if len(res.Changes) == 0 {
		_, _ = fmt.Fprintln(out, messages.ResultNoChanges)
		return
	}
	for _, change := range res.Changes {
		_, _ = fmt.Fprintln(out, changeLine(change))
		if showDiff && change.Diff != "" {
			printDiff(out, change.Diff)
		}
	}
}

func changeLine(change sysconf.Change) string {
	switch change.Kind {
	case sysconf.ChangeAdded:
		return color.GreenString("  + %s", change.Path)
	case sysconf.ChangeRemoved:
		return color.RedString("  - %s", change.Path)
	default:
		return color.YellowString("  ~ %s", change.Path)
	}
}

func printDiff(out io.Writer, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			_, _ = fmt.Fprint(out, color.New(color.Bold).Sprint(line))
		case strings.HasPrefix(line, "+"):
			_, _ = fmt.Fprint(out, color.GreenString("%s", line))
		case strings.HasPrefix(line, "-"):
			_, _ = fmt.Fprint(out, color.RedString("%s", line))
		case strings.HasPrefix(line, "@@"):
			_, _ = fmt.Fprint(out, color.CyanString("%s", line))
		default:
			_, _ = fmt.Fprint(out, line)
		}
	}
}

func printStatus(out io.Writer, status *sysconf.Status, layout sysconf.Layout) {
	_, _ = fmt.Fprintf(out, messages.StatusBaseFmt, status.Base)
	_, _ = fmt.Fprintf(out, messages.StatusMasterFmt, status.Master)
	if status.Generation == sysconf.NoGeneration {
		_, _ = fmt.Fprint(out, messages.StatusNoGeneration)
	} else {
		_, _ = fmt.Fprintf(out, messages.StatusGenerationFmt, status.Generation)
	}
	switch lock := status.Lock; {
	case lock == nil:
		_, _ = fmt.Fprint(out, messages.StatusUnlocked)
	case lock.Committed:
		_, _ = fmt.Fprint(out, color.YellowString(messages.StatusLockCommitted))
	default:
		_, _ = fmt.Fprint(out, color.YellowString(messages.StatusLockFmt,
			lock.PID, lock.Host, lock.StartedAt.Format(time.RFC3339), lock.Generation, lock.Next))
	}
	for _, leaf := range status.Leaves {
		_, _ = fmt.Fprintf(out, messages.StatusLeafFmt, leaf.Name, len(leaf.Children), layout.ChildNoun)
	}
}

func printRecovery(out io.Writer, recovery *sysconf.Recovery) {
	switch {
	case recovery.RolledBack:
		_, _ = fmt.Fprintf(out, messages.RecoverRolledBackFmt, recovery.Record.Next, recovery.Record.Generation)
	case recovery.Completed:
		_, _ = fmt.Fprintf(out, messages.RecoverCompletedFmt, recovery.Record.Next)
	default:
		_, _ = fmt.Fprint(out, messages.RecoverReleased)
	}
}
