package sysconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/conn-castle/metal-server/internal/fsutil"
	"github.com/conn-castle/metal-server/internal/messages"
)

// ReadLeaf returns the config of leaf name in the live generation. It takes no
// lock, so a concurrent update may replace the tree right after the read.
func (g *Guard) ReadLeaf(base string, name string) ([]byte, error) {
	if err := g.layout.ValidateName(name); err != nil {
		return nil, err
	}
	paths, err := g.live(base)
	if err != nil {
		return nil, err
	}
	return g.readLive(paths, paths.Leaf(name), g.layout.LeafNoun, name)
}

// ReadChild returns the config of one child of parent in the live generation.
func (g *Guard) ReadChild(base string, parent string, name string) ([]byte, error) {
	if err := g.layout.ValidateName(parent); err != nil {
		return nil, err
	}
	if err := g.layout.ValidateName(name); err != nil {
		return nil, err
	}
	paths, err := g.live(base)
	if err != nil {
		return nil, err
	}
	return g.readLive(paths, paths.Child(parent, name), g.layout.ChildNoun, parent+"/"+name)
}

// LiveGeneration returns the last committed generation of base. While a
// transaction is in flight the master include may already point at the new
// generation for validation; readers keep seeing the previous one until the
// lock record marks the transaction committed.
func LiveGeneration(fs afero.Fs, base string, layout Layout) (int, error) {
	base = filepath.Clean(base)
	current, err := CurrentGeneration(fs, base, layout)
	if err != nil {
		return NoGeneration, err
	}
	record, err := ReadLock(fs, base)
	if err != nil || record == nil || record.Snapshot == "" || record.Committed {
		return current, nil
	}
	if record.Generation == NoGeneration {
		return NoGeneration, nil
	}
	exists, err := fsutil.Exists(fs, NewPaths(base, record.Generation, layout).Include())
	if err != nil || !exists {
		return current, nil
	}
	return record.Generation, nil
}

func (g *Guard) live(base string) (Paths, error) {
	base = filepath.Clean(base)
	generation, err := LiveGeneration(g.fs, base, g.layout)
	if err != nil {
		return Paths{}, fmt.Errorf(messages.SysconfCurrentGenerationFmt, base, err)
	}
	return NewPaths(base, generation, g.layout), nil
}

func (g *Guard) readLive(paths Paths, path string, noun string, name string) ([]byte, error) {
	if paths.Generation == NoGeneration {
		return nil, fmt.Errorf("%w: "+messages.SysconfParentMissingFmt, ErrNotFound, noun, name)
	}
	data, err := afero.ReadFile(g.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: "+messages.SysconfParentMissingFmt, ErrNotFound, noun, name)
		}
		return nil, fmt.Errorf(messages.SysconfReadFmt, path, err)
	}
	return data, nil
}
