package sysconf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/conn-castle/metal-server/internal/fsutil"
	"github.com/conn-castle/metal-server/internal/messages"
)

const manifestPerm = 0o644

// WriteIncludes rebuilds the include manifests of the generation p from the leaf
// and child files present on disk. Output is sorted so equal trees always yield
// byte-identical manifests. A tree without leaves gets an empty include file.
// Child manifests are written only for leaves that exist; stale child manifests
// whose leaf is gone are removed.
func WriteIncludes(fs afero.Fs, p Paths) error {
	leaves, err := listLeaves(fs, p)
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		rel, err := filepath.Rel(p.Dir(), p.Leaf(leaf))
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf(p.Layout.IncludeFmt, filepath.ToSlash(rel)))
	}
	if err := writeManifest(fs, p.Include(), p.Layout.banner(p.Layout.Comment), lines); err != nil {
		return err
	}

	for _, leaf := range leaves {
		children, err := listChildren(fs, p, leaf)
		if err != nil {
			return err
		}
		childLines := make([]string, 0, len(children))
		for _, child := range children {
			rel, err := filepath.Rel(p.LeafDir(), p.Child(leaf, child))
			if err != nil {
				return err
			}
			childLines = append(childLines, fmt.Sprintf(p.Layout.ChildIncludeFmt, filepath.ToSlash(rel)))
		}
		if err := writeManifest(fs, p.ChildManifest(leaf), p.Layout.banner(p.Layout.ChildComment), childLines); err != nil {
			return err
		}
	}
	return removeStaleChildManifests(fs, p, leaves)
}

// RenderManifest returns the manifest bytes for lines: the banner followed by one
// line per entry, or nothing at all when there are no entries.
func RenderManifest(banner []string, lines []string) []byte {
	if len(lines) == 0 {
		return []byte{}
	}
	var b strings.Builder
	for _, line := range banner {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func writeManifest(fs afero.Fs, path string, banner []string, lines []string) error {
	if err := fsutil.WriteFileAtomic(fs, path, RenderManifest(banner, lines), manifestPerm); err != nil {
		return fmt.Errorf(messages.SysconfWriteFmt, path, err)
	}
	return nil
}

// listLeaves returns the sorted leaf names of p. Child manifests share the leaf
// directory and extension and are skipped.
func listLeaves(fs afero.Fs, p Paths) ([]string, error) {
	files, err := fsutil.ListFiles(fs, p.LeafDir(), p.Layout.LeafExt)
	if err != nil {
		return nil, fmt.Errorf(messages.SysconfListFmt, p.LeafDir(), err)
	}
	manifestExt := p.Layout.ChildSuffix + p.Layout.LeafExt
	leaves := make([]string, 0, len(files))
	for _, file := range files {
		if strings.HasSuffix(file, manifestExt) {
			continue
		}
		leaves = append(leaves, strings.TrimSuffix(file, p.Layout.LeafExt))
	}
	return leaves, nil
}

func listChildren(fs afero.Fs, p Paths, parent string) ([]string, error) {
	dir := p.ChildDir(parent)
	files, err := fsutil.ListFiles(fs, dir, p.Layout.ChildExt)
	if err != nil {
		return nil, fmt.Errorf(messages.SysconfListFmt, dir, err)
	}
	children := make([]string, 0, len(files))
	for _, file := range files {
		children = append(children, strings.TrimSuffix(file, p.Layout.ChildExt))
	}
	return children, nil
}

func removeStaleChildManifests(fs afero.Fs, p Paths, leaves []string) error {
	manifestExt := p.Layout.ChildSuffix + p.Layout.LeafExt
	files, err := fsutil.ListFiles(fs, p.LeafDir(), manifestExt)
	if err != nil {
		return fmt.Errorf(messages.SysconfListFmt, p.LeafDir(), err)
	}
	live := make(map[string]struct{}, len(leaves))
	for _, leaf := range leaves {
		live[leaf] = struct{}{}
	}
	for _, file := range files {
		if _, ok := live[strings.TrimSuffix(file, manifestExt)]; ok {
			continue
		}
		path := filepath.Join(p.LeafDir(), file)
		if err := fs.Remove(path); err != nil {
			return fmt.Errorf(messages.SysconfRemoveFmt, path, err)
		}
	}
	return nil
}
