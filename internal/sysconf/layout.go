package sysconf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/conn-castle/metal-server/internal/messages"
)

// Layout names the files and directories that make up one configuration tree.
// A tree has an aggregate include file listing every leaf, a directory of leaf
// files, and for each leaf an optional directory of child files with its own
// child manifest next to the leaf.
type Layout struct {
	// Service is the short name used in logs and messages ("dhcp", "named").
	Service string
	// LeafNoun and ChildNoun name the leaf and child records ("subnet", "host").
	LeafNoun  string
	ChildNoun string

	// Master is the live pointer file at the base, included by the daemon config.
	Master      string
	Include     string
	LeafDir     string
	LeafExt     string
	ChildSuffix string
	ChildExt    string

	// IncludeFmt renders one include directive for the master, include and child manifests.
	IncludeFmt      string
	ChildIncludeFmt string
	Comment         string
	ChildComment    string
}

// DHCPLayout is the layout of an ISC dhcpd subnet/host tree.
var DHCPLayout = Layout{
	Service:         "dhcp",
	LeafNoun:        "subnet",
	ChildNoun:       "host",
	Master:          "master-dhcp.conf",
	Include:         "subnets.conf",
	LeafDir:         "subnets",
	LeafExt:         ".conf",
	ChildSuffix:     ".hosts",
	ChildExt:        ".conf",
	IncludeFmt:      `include "%s";`,
	ChildIncludeFmt: `include "%s";`,
	Comment:         "#",
	ChildComment:    "#",
}

// NamedLayout is the layout of a BIND zone/record tree.
var NamedLayout = Layout{
	Service:         "named",
	LeafNoun:        "zone",
	ChildNoun:       "record",
	Master:          "master-named.conf",
	Include:         "zones.conf",
	LeafDir:         "zones",
	LeafExt:         ".conf",
	ChildSuffix:     ".records",
	ChildExt:        ".zone",
	IncludeFmt:      `include "%s";`,
	ChildIncludeFmt: `$INCLUDE "%s"`,
	Comment:         "//",
	ChildComment:    ";",
}

// LayoutFor returns the layout registered for service.
func LayoutFor(service string) (Layout, bool) {
	switch service {
	case DHCPLayout.Service:
		return DHCPLayout, true
	case NamedLayout.Service:
		return NamedLayout, true
	}
	return Layout{}, false
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName rejects leaf and child names that are not a single safe path component.
func (l Layout) ValidateName(name string) error {
	if !namePattern.MatchString(name) || strings.HasSuffix(name, l.ChildSuffix) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: "+messages.SysconfInvalidNameFmt, ErrInvalidName, name, l.ChildSuffix)
	}
	return nil
}

func (l Layout) banner(comment string) []string {
	return []string{comment + " " + messages.SysconfManifestBannerLine}
}
