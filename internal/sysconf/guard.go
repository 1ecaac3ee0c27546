package sysconf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/conn-castle/metal-server/internal/fsutil"
	"github.com/conn-castle/metal-server/internal/messages"
)

// VerifyFunc runs after the new generation has been promoted to live and before
// the transaction commits. An error rolls the transaction back.
type VerifyFunc func(ctx context.Context, tx *Tx) error

// GuardOptions configures a Guard.
type GuardOptions struct {
	Logger *zap.Logger
	// TrapSignals intercepts SIGINT, SIGTERM and SIGHUP while a transaction runs.
	TrapSignals bool
}

// Guard runs transactions against configuration trees. At most one transaction
// per base runs at a time; different bases are independent.
type Guard struct {
	fs      afero.Fs
	layout  Layout
	logger  *zap.Logger
	signals func() (<-chan os.Signal, func())
	now     func() time.Time
	pid     int
	host    string
	alive   func(pid int) bool
}

// NewGuard returns a Guard for trees of layout stored on fs.
func NewGuard(fs afero.Fs, layout Layout, opts GuardOptions) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	signals := noSignals
	if opts.TrapSignals {
		signals = trapSignals
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Guard{
		fs:      fs,
		layout:  layout,
		logger:  logger,
		signals: signals,
		now:     time.Now,
		pid:     os.Getpid(),
		host:    host,
		alive:   processAlive,
	}
}

// Layout returns the layout the guard was built for.
func (g *Guard) Layout() Layout {
	return g.layout
}

// Fs returns the filesystem the guard operates on.
func (g *Guard) Fs() afero.Fs {
	return g.fs
}

// Run executes one transaction against base:
//
//  1. create the lock exclusively, failing fast with ErrTransactionConflict;
//  2. snapshot the master include and copy the current generation forward;
//  3. run edit against the new generation;
//  4. regenerate include manifests;
//  5. promote the new generation and run verify, then commit, or restore the
//     snapshot and drop the new generation on any error or panic;
//  6. remove the lock.
func (g *Guard) Run(ctx context.Context, base string, edit EditFunc, verify VerifyFunc) (*Result, error) {
	return g.run(ctx, base, edit, verify, false)
}

// Plan runs edit and manifest regeneration like Run, reports the changes, and
// always rolls back. Nothing is promoted.
func (g *Guard) Plan(ctx context.Context, base string, edit EditFunc) (*Result, error) {
	return g.run(ctx, base, edit, nil, true)
}

func (g *Guard) run(ctx context.Context, base string, edit EditFunc, verify VerifyFunc, dryRun bool) (res *Result, err error) {
	base = filepath.Clean(base)
	logger := g.logger.With(zap.String("service", g.layout.Service), zap.String("base", base))

	// Trap before the lock exists so a signal can never leave it behind.
	sigCh, stop := g.signals()
	defer stop()
	latch := &signalLatch{ch: sigCh}

	record := LockRecord{PID: g.pid, Host: g.host, StartedAt: g.now().UTC()}
	lock, err := acquireLock(g.fs, base, record)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			logger.Error("failed to release transaction lock", zap.Error(releaseErr))
			err = multierr.Append(err, releaseErr)
		}
	}()

	tx := &Tx{fs: g.fs, lock: lock}
	committed := false
	defer func() {
		if committed {
			return
		}
		recovered := recover()
		if rollbackErr := g.rollback(tx); rollbackErr != nil {
			logger.Error("rollback failed", zap.Error(rollbackErr), zap.String("snapshot", tx.snapshot))
			err = multierr.Append(err, rollbackErr)
		} else if !dryRun {
			logger.Warn("transaction rolled back", zap.Error(err), zap.Any("panic", recovered))
		}
		if recovered != nil {
			panic(recovered)
		}
	}()

	if err := g.begin(tx, base, record); err != nil {
		return nil, err
	}
	logger = logger.With(zap.Int("generation", tx.paths.Generation))
	logger.Debug("transaction started", zap.Int("previous", tx.prev.Generation))

	if err := edit(tx); err != nil {
		return nil, err
	}
	if err := WriteIncludes(g.fs, tx.paths); err != nil {
		return nil, fmt.Errorf(messages.SysconfIncludesFmt, tx.paths.Dir(), err)
	}
	changes, err := DiffGenerations(g.fs, tx.prev, tx.paths)
	if err != nil {
		return nil, fmt.Errorf(messages.SysconfChangesFmt, tx.paths.Generation, err)
	}
	res = &Result{Generation: tx.paths.Generation, Previous: tx.prev.Generation, Changes: changes}
	if dryRun {
		return res, nil
	}
	if latch.fired() {
		return nil, ErrInterrupted
	}

	if err := g.promote(tx); err != nil {
		return nil, fmt.Errorf(messages.SysconfPromoteFmt, tx.paths.Generation, err)
	}
	if verify != nil {
		if err := verify(ctx, tx); err != nil {
			return nil, err
		}
	}

	committed = true
	g.commit(tx, logger)
	res.Interrupted = latch.fired()
	logger.Info("transaction committed", zap.Int("changes", len(changes)))
	return res, nil
}

// begin snapshots the live pointer and materializes the next generation. The
// lock record learns the snapshot only once the snapshot is complete.
func (g *Guard) begin(tx *Tx, base string, record LockRecord) error {
	current, err := CurrentGeneration(g.fs, base, g.layout)
	if err != nil {
		return fmt.Errorf(messages.SysconfCurrentGenerationFmt, base, err)
	}
	tx.prev = NewPaths(base, current, g.layout)
	tx.paths = tx.prev.Next()

	snapshot, err := afero.TempDir(g.fs, filepath.Dir(base), snapshotPrefix(base))
	if err != nil {
		return fmt.Errorf(messages.SysconfSnapshotCreateFmt, base, err)
	}
	tx.snapshot = snapshot
	master := tx.paths.Master()
	exists, err := fsutil.Exists(g.fs, master)
	if err != nil {
		return fmt.Errorf(messages.SysconfSnapshotCopyFmt, master, err)
	}
	if exists {
		if err := fsutil.CopyFile(g.fs, master, filepath.Join(snapshot, g.layout.Master)); err != nil {
			return fmt.Errorf(messages.SysconfSnapshotCopyFmt, master, err)
		}
	}
	tx.snapshotted = true

	record.Generation = tx.prev.Generation
	record.Next = tx.paths.Generation
	record.Snapshot = snapshot
	if err := tx.lock.update(record); err != nil {
		return err
	}

	tx.materialized = true
	if err := g.fs.RemoveAll(tx.paths.Dir()); err != nil {
		return fmt.Errorf(messages.SysconfMaterializeFmt, tx.paths.Generation, tx.prev.Generation, err)
	}
	if err := fsutil.CopyTree(g.fs, tx.prev.Dir(), tx.paths.Dir()); err != nil {
		return fmt.Errorf(messages.SysconfMaterializeFmt, tx.paths.Generation, tx.prev.Generation, err)
	}
	return nil
}

// promote points the master include at the new generation.
func (g *Guard) promote(tx *Tx) error {
	tx.promoted = true
	return g.writeMaster(tx.paths)
}

// writeMaster atomically points the master include of p.Base at generation p.
func (g *Guard) writeMaster(p Paths) error {
	line := fmt.Sprintf(g.layout.IncludeFmt, filepath.ToSlash(p.Include()))
	data := RenderManifest(g.layout.banner(g.layout.Comment), []string{line})
	return fsutil.WriteFileAtomic(g.fs, p.Master(), data, manifestPerm)
}

// commit drops the previous generation and the snapshot. The new generation is
// already live, so failures here are logged and left for recovery.
func (g *Guard) commit(tx *Tx, logger *zap.Logger) {
	record := tx.lock.record
	record.Committed = true
	if err := tx.lock.update(record); err != nil {
		logger.Warn("failed to mark transaction committed", zap.Error(err))
	}
	if tx.prev.Generation != NoGeneration {
		if err := g.fs.RemoveAll(tx.prev.Dir()); err != nil {
			logger.Warn("failed to remove previous generation", zap.String("dir", tx.prev.Dir()), zap.Error(err))
		}
	}
	if err := g.fs.RemoveAll(tx.snapshot); err != nil {
		logger.Warn("failed to remove snapshot", zap.String("snapshot", tx.snapshot), zap.Error(err))
	}
}

// rollback restores the master include from the snapshot and drops whatever was
// written for the new generation. It tolerates a partially started transaction.
// The snapshot is kept when the master could not be restored.
func (g *Guard) rollback(tx *Tx) error {
	var errs error
	if tx.snapshotted {
		errs = multierr.Append(errs, restoreMaster(g.fs, tx.paths.Master(), tx.snapshot, g.layout))
	}
	if tx.materialized {
		if err := g.fs.RemoveAll(tx.paths.Dir()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf(messages.SysconfRemoveGenerationFmt, tx.paths.Dir(), err))
		}
	}
	if tx.snapshot != "" && errs == nil {
		if err := g.fs.RemoveAll(tx.snapshot); err != nil {
			errs = multierr.Append(errs, fmt.Errorf(messages.SysconfRemoveSnapshotFmt, tx.snapshot, err))
		}
	}
	return errs
}

func restoreMaster(fs afero.Fs, master string, snapshot string, layout Layout) error {
	saved := filepath.Join(snapshot, layout.Master)
	exists, err := fsutil.Exists(fs, saved)
	if err != nil {
		return fmt.Errorf(messages.SysconfRestoreMasterFmt, master, err)
	}
	if exists {
		if err := fsutil.CopyFile(fs, saved, master); err != nil {
			return fmt.Errorf(messages.SysconfRestoreMasterFmt, master, err)
		}
		return nil
	}
	if err := fs.Remove(master); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf(messages.SysconfRestoreMasterFmt, master, err)
	}
	return nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
