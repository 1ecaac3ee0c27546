package sysconf

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/conn-castle/metal-server/internal/fsutil"
	"github.com/conn-castle/metal-server/internal/messages"
)

const leafPerm = 0o644

// EditFunc mutates the tree handed to it. It must not write outside tx.Paths().
type EditFunc func(tx *Tx) error

// Tx is the in-flight transaction handed to an EditFunc. Its paths point at the
// new generation; the previous generation stays untouched until commit.
type Tx struct {
	fs    afero.Fs
	paths Paths
	prev  Paths
	lock  *lockFile

	snapshot     string
	snapshotted  bool
	materialized bool
	promoted     bool
}

// Paths resolves files of the generation being written.
func (tx *Tx) Paths() Paths {
	return tx.paths
}

// Previous resolves files of the generation that was live when the transaction began.
func (tx *Tx) Previous() Paths {
	return tx.prev
}

// Fs is the filesystem the transaction writes to.
func (tx *Tx) Fs() afero.Fs {
	return tx.fs
}

// WriteLeaf creates or replaces the leaf config for name.
func (tx *Tx) WriteLeaf(name string, data []byte) error {
	if err := tx.paths.Layout.ValidateName(name); err != nil {
		return err
	}
	path := tx.paths.Leaf(name)
	if err := fsutil.WriteFileAtomic(tx.fs, path, data, leafPerm); err != nil {
		return fmt.Errorf(messages.SysconfWriteFmt, path, err)
	}
	return nil
}

// RemoveLeaf deletes the leaf config for name along with its children and child manifest.
func (tx *Tx) RemoveLeaf(name string) error {
	if err := tx.paths.Layout.ValidateName(name); err != nil {
		return err
	}
	if err := tx.removeFile(tx.paths.Leaf(name)); err != nil {
		return err
	}
	for _, path := range []string{tx.paths.ChildDir(name), tx.paths.ChildManifest(name)} {
		if err := tx.fs.RemoveAll(path); err != nil {
			return fmt.Errorf(messages.SysconfRemoveFmt, path, err)
		}
	}
	return nil
}

// ReadLeaf returns the leaf config for name.
func (tx *Tx) ReadLeaf(name string) ([]byte, error) {
	if err := tx.paths.Layout.ValidateName(name); err != nil {
		return nil, err
	}
	return tx.readFile(tx.paths.Leaf(name))
}

// Leaves lists the leaf names currently in the tree.
func (tx *Tx) Leaves() ([]string, error) {
	return listLeaves(tx.fs, tx.paths)
}

// WriteChild creates or replaces a child of parent. The parent leaf must exist.
func (tx *Tx) WriteChild(parent string, name string, data []byte) error {
	if err := tx.requireLeaf(parent); err != nil {
		return err
	}
	if err := tx.paths.Layout.ValidateName(name); err != nil {
		return err
	}
	path := tx.paths.Child(parent, name)
	if err := fsutil.WriteFileAtomic(tx.fs, path, data, leafPerm); err != nil {
		return fmt.Errorf(messages.SysconfWriteFmt, path, err)
	}
	return nil
}

// RemoveChild deletes one child of parent.
func (tx *Tx) RemoveChild(parent string, name string) error {
	if err := tx.paths.Layout.ValidateName(parent); err != nil {
		return err
	}
	if err := tx.paths.Layout.ValidateName(name); err != nil {
		return err
	}
	return tx.removeFile(tx.paths.Child(parent, name))
}

// ReadChild returns one child config of parent.
func (tx *Tx) ReadChild(parent string, name string) ([]byte, error) {
	if err := tx.paths.Layout.ValidateName(parent); err != nil {
		return nil, err
	}
	if err := tx.paths.Layout.ValidateName(name); err != nil {
		return nil, err
	}
	return tx.readFile(tx.paths.Child(parent, name))
}

// Children lists the child names of parent.
func (tx *Tx) Children(parent string) ([]string, error) {
	if err := tx.paths.Layout.ValidateName(parent); err != nil {
		return nil, err
	}
	return listChildren(tx.fs, tx.paths, parent)
}

func (tx *Tx) requireLeaf(name string) error {
	if err := tx.paths.Layout.ValidateName(name); err != nil {
		return err
	}
	ok, err := fsutil.Exists(tx.fs, tx.paths.Leaf(name))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: "+messages.SysconfParentMissingFmt, ErrNotFound, tx.paths.Layout.LeafNoun, name)
	}
	return nil
}

func (tx *Tx) readFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(tx.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf(messages.SysconfReadFmt, path, err)
	}
	return data, nil
}

func (tx *Tx) removeFile(path string) error {
	if err := tx.fs.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf(messages.SysconfRemoveFmt, path, err)
	}
	return nil
}
