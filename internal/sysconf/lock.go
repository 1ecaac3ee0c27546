package sysconf

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/conn-castle/metal-server/internal/fsutil"
	"github.com/conn-castle/metal-server/internal/messages"
)

// LockRecord is the content of the transaction lock file. It identifies the
// holder and, once the snapshot is taken, what recovery has to undo.
type LockRecord struct {
	PID        int       `toml:"pid"`
	Host       string    `toml:"host"`
	StartedAt  time.Time `toml:"started_at"`
	Generation int       `toml:"generation"`
	Next       int       `toml:"next"`
	Snapshot   string    `toml:"snapshot,omitempty"`
	Committed  bool      `toml:"committed"`
}

type lockFile struct {
	fs     afero.Fs
	path   string
	record LockRecord
}

// acquireLock creates the lock file exclusively. An existing lock yields
// ErrTransactionConflict; the caller never waits.
func acquireLock(fs afero.Fs, base string, record LockRecord) (*lockFile, error) {
	if err := fs.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf(messages.SysconfLockCreateFmt, LockPath(base), err)
	}
	path := LockPath(base)
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrTransactionConflict
		}
		return nil, fmt.Errorf(messages.SysconfLockCreateFmt, path, err)
	}
	lock := &lockFile{fs: fs, path: path, record: record}
	if err := writeLockRecord(file, record); err != nil {
		_ = file.Close()
		_ = fs.Remove(path)
		return nil, fmt.Errorf(messages.SysconfLockWriteFmt, path, err)
	}
	if err := file.Close(); err != nil {
		_ = fs.Remove(path)
		return nil, fmt.Errorf(messages.SysconfLockWriteFmt, path, err)
	}
	return lock, nil
}

// update replaces the record through a temp file and rename, so a crash leaves
// either the old or the new record on disk.
func (l *lockFile) update(record LockRecord) error {
	data, err := toml.Marshal(record)
	if err != nil {
		return fmt.Errorf(messages.SysconfLockWriteFmt, l.path, err)
	}
	if err := fsutil.WriteFileAtomic(l.fs, l.path, data, 0o644); err != nil {
		return fmt.Errorf(messages.SysconfLockWriteFmt, l.path, err)
	}
	l.record = record
	return nil
}

// release removes the lock file.
func (l *lockFile) release() error {
	if l == nil {
		return nil
	}
	if err := l.fs.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf(messages.SysconfLockRemoveFmt, l.path, err)
	}
	return nil
}

func writeLockRecord(file afero.File, record LockRecord) error {
	data, err := toml.Marshal(record)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	return err
}

// ReadLock returns the lock record for base, or nil when no transaction is in flight.
func ReadLock(fs afero.Fs, base string) (*LockRecord, error) {
	path := LockPath(base)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(messages.SysconfLockReadFmt, path, err)
	}
	var record LockRecord
	if err := toml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf(messages.SysconfLockDecodeFmt, path, err)
	}
	return &record, nil
}
