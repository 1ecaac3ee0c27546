package sysconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/conn-castle/metal-server/internal/fsutil"
	"github.com/conn-castle/metal-server/internal/messages"
)

// LeafStatus lists one leaf and its children in the current generation.
type LeafStatus struct {
	Name     string
	Children []string
}

// Status describes the tree rooted at a base.
type Status struct {
	Base       string
	Generation int
	Master     string
	// Lock is nil when no transaction is in flight.
	Lock   *LockRecord
	Leaves []LeafStatus
}

// Status reports the current generation, its leaves and the lock holder, if any.
func (g *Guard) Status(base string) (*Status, error) {
	base = filepath.Clean(base)
	paths, err := g.live(base)
	if err != nil {
		return nil, err
	}
	lock, err := ReadLock(g.fs, base)
	if err != nil {
		return nil, err
	}
	status := &Status{Base: base, Generation: paths.Generation, Master: paths.Master(), Lock: lock}
	if paths.Generation == NoGeneration {
		return status, nil
	}
	leaves, err := listLeaves(g.fs, paths)
	if err != nil {
		return nil, err
	}
	for _, leaf := range leaves {
		children, err := listChildren(g.fs, paths, leaf)
		if err != nil {
			return nil, err
		}
		status.Leaves = append(status.Leaves, LeafStatus{Name: leaf, Children: children})
	}
	return status, nil
}

// Recovery reports what Recover did.
type Recovery struct {
	Record *LockRecord
	// RolledBack is set when an uncommitted transaction was undone.
	RolledBack bool
	// Completed is set when a committed transaction's cleanup was finished.
	Completed bool
}

// Recover cleans up after a transaction whose process died without releasing
// its lock. An uncommitted transaction is rolled back from its snapshot; a
// committed one has its cleanup finished. Recover refuses while the recorded
// holder is still alive on this host unless force is set. With force, an
// unreadable lock record is replaced by what the tree on disk shows.
func (g *Guard) Recover(base string, force bool) (*Recovery, error) {
	base = filepath.Clean(base)
	lockPath := LockPath(base)
	record, err := ReadLock(g.fs, base)
	unreadable := false
	if err != nil {
		if !force {
			return nil, err
		}
		g.logger.Warn("reconciling from disk after unreadable lock record", zap.String("lock", lockPath), zap.Error(err))
		record = &LockRecord{}
		unreadable = true
	}
	if record == nil {
		return nil, fmt.Errorf(messages.SysconfNoLockFmt, lockPath)
	}
	if !force && record.Host == g.host && g.alive(record.PID) {
		return nil, fmt.Errorf(messages.SysconfLockHolderAliveFmt, lockPath, record.PID, record.Host)
	}

	recovery := &Recovery{Record: record}
	if unreadable {
		if err := g.reconcile(base, recovery); err != nil {
			return nil, err
		}
	} else if record.Snapshot != "" {
		prev := NewPaths(base, record.Generation, g.layout)
		next := NewPaths(base, record.Next, g.layout)
		committed := record.Committed
		if !committed && record.Generation != NoGeneration {
			exists, err := fsutil.Exists(g.fs, prev.Dir())
			if err != nil {
				return nil, err
			}
			// The previous generation is only removed after the commit point.
			committed = !exists
		}

		var errs error
		if committed {
			if record.Generation != NoGeneration {
				errs = multierr.Append(errs, removeAll(g.fs, prev.Dir(), messages.SysconfRemoveGenerationFmt))
			}
			recovery.Completed = true
		} else {
			errs = multierr.Append(errs, restoreMaster(g.fs, MasterPath(base, g.layout), record.Snapshot, g.layout))
			if record.Next != record.Generation {
				errs = multierr.Append(errs, removeAll(g.fs, next.Dir(), messages.SysconfRemoveGenerationFmt))
			}
			recovery.RolledBack = true
		}
		if errs != nil {
			return nil, errs
		}
		if err := removeAll(g.fs, record.Snapshot, messages.SysconfRemoveSnapshotFmt); err != nil {
			return nil, err
		}
	}

	if err := g.fs.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(messages.SysconfLockRemoveFmt, lockPath, err)
	}
	g.logger.Info("recovered stale transaction",
		zap.String("base", base),
		zap.Int("pid", record.PID),
		zap.Bool("rolled_back", recovery.RolledBack),
		zap.Bool("completed", recovery.Completed),
	)
	return recovery, nil
}

// reconcile repairs base without a lock record. A transaction was in flight
// only if a snapshot survives. Commit drops the older generation before the
// snapshot, so a master pointing above a surviving generation was never
// committed and is pointed back. A first transaction has no older generation;
// its snapshot holds no master copy, and the master is removed instead.
func (g *Guard) reconcile(base string, recovery *Recovery) error {
	snapshots, err := snapshotDirs(g.fs, base)
	if err != nil {
		return fmt.Errorf(messages.SysconfListFmt, filepath.Dir(base), err)
	}
	master, ok, err := MasterGeneration(g.fs, base, g.layout)
	if err != nil {
		return err
	}
	keep := master
	if len(snapshots) > 0 && ok {
		generations, err := listGenerations(g.fs, base, g.layout)
		if err != nil {
			return fmt.Errorf(messages.SysconfListFmt, base, err)
		}
		for _, generation := range generations {
			if generation < master {
				keep = generation
			}
		}
		switch {
		case keep != master:
			if err := g.writeMaster(NewPaths(base, keep, g.layout)); err != nil {
				return fmt.Errorf(messages.SysconfRestoreMasterFmt, MasterPath(base, g.layout), err)
			}
			recovery.RolledBack = true
		case !snapshotHasMaster(g.fs, snapshots, g.layout):
			if err := restoreMaster(g.fs, MasterPath(base, g.layout), snapshots[0], g.layout); err != nil {
				return err
			}
			keep = NoGeneration
			recovery.RolledBack = true
		default:
			recovery.Completed = true
		}
	}
	recovery.Record.Generation = keep

	var errs error
	if ok {
		dirs, err := generationDirs(g.fs, base)
		if err != nil {
			return fmt.Errorf(messages.SysconfListFmt, base, err)
		}
		// Directories above the live generation were never committed.
		for _, generation := range dirs {
			if generation > keep {
				errs = multierr.Append(errs, removeAll(g.fs, NewPaths(base, generation, g.layout).Dir(), messages.SysconfRemoveGenerationFmt))
			}
		}
	}
	if errs != nil {
		return errs
	}
	for _, snapshot := range snapshots {
		errs = multierr.Append(errs, removeAll(g.fs, snapshot, messages.SysconfRemoveSnapshotFmt))
	}
	return errs
}

func snapshotHasMaster(fs afero.Fs, snapshots []string, layout Layout) bool {
	for _, snapshot := range snapshots {
		if exists, err := fsutil.Exists(fs, filepath.Join(snapshot, layout.Master)); err == nil && exists {
			return true
		}
	}
	return false
}

func removeAll(fs afero.Fs, path string, format string) error {
	if err := fs.RemoveAll(path); err != nil {
		return fmt.Errorf(format, path, err)
	}
	return nil
}
