package sysconf

import (
	"bytes"
	"sort"
	"unicode/utf8"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/afero"

	"github.com/conn-castle/metal-server/internal/fsutil"
)

// ChangeKind classifies one file difference between two generations.
type ChangeKind string

// Change kinds.
const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// Change is one file that differs between the previous and the new generation.
type Change struct {
	// Path is slash-separated and relative to the generation directory.
	Path string
	Kind ChangeKind
	// Diff is a unified diff, empty for binary content.
	Diff string
}

// Result describes a finished (or planned) transaction.
type Result struct {
	Generation int
	Previous   int
	Changes    []Change
	// Interrupted is set when a termination signal arrived after the commit point.
	Interrupted bool
}

// DiffGenerations compares every file of prev and next.
func DiffGenerations(fs afero.Fs, prev Paths, next Paths) ([]Change, error) {
	before, err := fsutil.ReadTree(fs, prev.Dir())
	if err != nil {
		return nil, err
	}
	after, err := fsutil.ReadTree(fs, next.Dir())
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(before)+len(after))
	for key := range before {
		keys = append(keys, key)
	}
	for key := range after {
		if _, ok := before[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	changes := make([]Change, 0)
	for _, key := range keys {
		old, hadOld := before[key]
		updated, hasNew := after[key]
		var kind ChangeKind
		switch {
		case !hadOld:
			kind = ChangeAdded
		case !hasNew:
			kind = ChangeRemoved
		case bytes.Equal(old, updated):
			continue
		default:
			kind = ChangeModified
		}
		change := Change{Path: key, Kind: kind}
		if utf8.Valid(old) && utf8.Valid(updated) {
			change.Diff = udiff.Unified("a/"+key, "b/"+key, string(old), string(updated))
		}
		changes = append(changes, change)
	}
	return changes, nil
}
