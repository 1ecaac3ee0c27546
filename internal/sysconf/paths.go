package sysconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/conn-castle/metal-server/internal/messages"
)

// NoGeneration is the generation reported when no generation has been written yet.
const NoGeneration = 0

const lockFileName = "update.lock"

var generationPattern = regexp.MustCompile(`^[0-9]+$`)

// Paths resolves the on-disk locations of one generation of a configuration tree.
// It never touches the filesystem; equal inputs always produce equal paths.
type Paths struct {
	Base       string
	Generation int
	Layout     Layout
}

// NewPaths returns the resolver for generation of the tree rooted at base.
func NewPaths(base string, generation int, layout Layout) Paths {
	return Paths{Base: filepath.Clean(base), Generation: generation, Layout: layout}
}

// Next returns the resolver for the generation after p.
func (p Paths) Next() Paths {
	return NewPaths(p.Base, p.Generation+1, p.Layout)
}

// Dir is the generation directory, base/<generation>.
func (p Paths) Dir() string {
	return filepath.Join(p.Base, strconv.Itoa(p.Generation))
}

func (p Paths) join(elem ...string) string {
	return filepath.Join(append([]string{p.Dir()}, elem...)...)
}

// Include is the aggregate manifest listing every leaf file.
func (p Paths) Include() string {
	return p.join(p.Layout.Include)
}

// LeafDir is the directory holding leaf files and child manifests.
func (p Paths) LeafDir() string {
	return p.join(p.Layout.LeafDir)
}

// Leaf is the config file of the named subnet or zone.
func (p Paths) Leaf(name string) string {
	return p.join(p.Layout.LeafDir, name+p.Layout.LeafExt)
}

// ChildManifest lists the child files of parent. It must sit in the same
// directory as the leaf so the leaf can include it by a relative path.
func (p Paths) ChildManifest(parent string) string {
	return p.join(p.Layout.LeafDir, parent+p.Layout.ChildSuffix+p.Layout.LeafExt)
}

// ChildDir holds the child files of parent.
func (p Paths) ChildDir(parent string) string {
	return p.join(p.Layout.LeafDir, parent+p.Layout.ChildSuffix)
}

// Child is the config file of one host or record under parent.
func (p Paths) Child(parent string, name string) string {
	return filepath.Join(p.ChildDir(parent), name+p.Layout.ChildExt)
}

// Master is the live pointer file included by the daemon configuration.
func (p Paths) Master() string {
	return MasterPath(p.Base, p.Layout)
}

// MasterPath is the live pointer file for the tree rooted at base.
func MasterPath(base string, layout Layout) string {
	return filepath.Join(filepath.Clean(base), layout.Master)
}

// LockPath is the transaction lock for the tree rooted at base.
func LockPath(base string) string {
	return filepath.Join(filepath.Clean(base), lockFileName)
}

// CurrentGeneration returns the generation the master include points at. When
// there is no master yet it falls back to the highest generation directory that
// holds an include file, or NoGeneration when there are none.
func CurrentGeneration(fs afero.Fs, base string, layout Layout) (int, error) {
	generation, ok, err := MasterGeneration(fs, base, layout)
	if err != nil {
		return NoGeneration, err
	}
	if ok {
		return generation, nil
	}
	generations, err := listGenerations(fs, base, layout)
	if err != nil || len(generations) == 0 {
		return NoGeneration, err
	}
	return generations[len(generations)-1], nil
}

// MasterGeneration parses the master include of base and returns the generation
// it references. ok is false when there is no master file.
func MasterGeneration(fs afero.Fs, base string, layout Layout) (generation int, ok bool, err error) {
	base = filepath.Clean(base)
	master := MasterPath(base, layout)
	data, err := afero.ReadFile(fs, master)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NoGeneration, false, nil
		}
		return NoGeneration, false, fmt.Errorf(messages.SysconfReadFmt, master, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, layout.Comment) {
			continue
		}
		open, closing := strings.Index(line, `"`), strings.LastIndex(line, `"`)
		if open < 0 || closing <= open {
			break
		}
		rel, err := filepath.Rel(base, filepath.FromSlash(line[open+1:closing]))
		if err != nil {
			break
		}
		dir, file := filepath.Split(rel)
		dir = filepath.Clean(dir)
		if file != layout.Include || !generationPattern.MatchString(dir) {
			break
		}
		generation, err := strconv.Atoi(dir)
		if err != nil {
			break
		}
		if _, err := fs.Stat(NewPaths(base, generation, layout).Include()); err != nil {
			return NoGeneration, false, fmt.Errorf(messages.SysconfMasterDanglingFmt, master, generation, err)
		}
		return generation, true, nil
	}
	return NoGeneration, false, fmt.Errorf(messages.SysconfMasterParseFmt, master, base)
}

// listGenerations returns every generation directory under base that holds an
// include file, in ascending order.
func listGenerations(fs afero.Fs, base string, layout Layout) ([]int, error) {
	dirs, err := generationDirs(fs, base)
	if err != nil {
		return nil, err
	}
	generations := dirs[:0]
	for _, generation := range dirs {
		if _, err := fs.Stat(NewPaths(base, generation, layout).Include()); err != nil {
			continue
		}
		generations = append(generations, generation)
	}
	return generations, nil
}

// generationDirs returns every numeric directory under base, complete or not,
// in ascending order.
func generationDirs(fs afero.Fs, base string) ([]int, error) {
	entries, err := afero.ReadDir(fs, base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var generations []int
	for _, entry := range entries {
		if !entry.IsDir() || !generationPattern.MatchString(entry.Name()) {
			continue
		}
		generation, err := strconv.Atoi(entry.Name())
		if err != nil || generation == NoGeneration {
			continue
		}
		generations = append(generations, generation)
	}
	sort.Ints(generations)
	return generations, nil
}

// snapshotPrefix is the name prefix of snapshot directories, which live next to base.
func snapshotPrefix(base string) string {
	return "." + filepath.Base(filepath.Clean(base)) + ".snapshot-"
}

// snapshotDirs lists the snapshot directories left next to base.
func snapshotDirs(fs afero.Fs, base string) ([]string, error) {
	base = filepath.Clean(base)
	parent := filepath.Dir(base)
	entries, err := afero.ReadDir(fs, parent)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	prefix := snapshotPrefix(base)
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			dirs = append(dirs, filepath.Join(parent, entry.Name()))
		}
	}
	return dirs, nil
}

// Current returns the resolver for the current generation under base.
func Current(fs afero.Fs, base string, layout Layout) (Paths, error) {
	generation, err := CurrentGeneration(fs, base, layout)
	if err != nil {
		return Paths{}, err
	}
	return NewPaths(base, generation, layout), nil
}
