package sysconf

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dhcpBanner = "# This file is generated by metal-server. Do not edit; changes will be overwritten.\n"

func TestWriteIncludesEmptyTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewPaths(testBase, 1, DHCPLayout)

	require.NoError(t, WriteIncludes(fs, p))

	assert.Equal(t, "", readTestFile(t, fs, p.Include()))
}

func TestWriteIncludesSortsLeaves(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewPaths(testBase, 1, DHCPLayout)
	for _, name := range []string{"subnet2", "potato", "subnet1"} {
		writeTestFile(t, fs, p.Leaf(name), "subnet "+name+"\n")
	}

	require.NoError(t, WriteIncludes(fs, p))

	want := dhcpBanner +
		"include \"subnets/potato.conf\";\n" +
		"include \"subnets/subnet1.conf\";\n" +
		"include \"subnets/subnet2.conf\";\n"
	assert.Equal(t, want, readTestFile(t, fs, p.Include()))
	for _, name := range []string{"subnet2", "potato", "subnet1"} {
		assert.Equal(t, "", readTestFile(t, fs, p.ChildManifest(name)), name)
	}
}

func TestWriteIncludesChildManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewPaths(testBase, 1, DHCPLayout)
	writeTestFile(t, fs, p.Leaf("test-subnet"), "subnet\n")
	writeTestFile(t, fs, p.Child("test-subnet", "host2"), "host2\n")
	writeTestFile(t, fs, p.Child("test-subnet", "host1"), "host1\n")

	require.NoError(t, WriteIncludes(fs, p))

	want := dhcpBanner +
		"include \"test-subnet.hosts/host1.conf\";\n" +
		"include \"test-subnet.hosts/host2.conf\";\n"
	assert.Equal(t, want, readTestFile(t, fs, p.ChildManifest("test-subnet")))
	assert.Equal(t, dhcpBanner+"include \"subnets/test-subnet.conf\";\n", readTestFile(t, fs, p.Include()))
}

func TestWriteIncludesSkipsOrphanChildren(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewPaths(testBase, 1, DHCPLayout)
	writeTestFile(t, fs, p.Child("ghost", "host1"), "host1\n")

	require.NoError(t, WriteIncludes(fs, p))

	exists, err := afero.Exists(fs, p.ChildManifest("ghost"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, "", readTestFile(t, fs, p.Include()))
}

func TestWriteIncludesRemovesStaleChildManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewPaths(testBase, 1, DHCPLayout)
	writeTestFile(t, fs, p.Leaf("kept"), "subnet\n")
	writeTestFile(t, fs, p.ChildManifest("gone"), "include \"gone.hosts/h.conf\";\n")

	require.NoError(t, WriteIncludes(fs, p))

	exists, err := afero.Exists(fs, p.ChildManifest("gone"))
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = afero.Exists(fs, p.ChildManifest("kept"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWriteIncludesDeterministic(t *testing.T) {
	build := func(order []string) afero.Fs {
		fs := afero.NewMemMapFs()
		p := NewPaths(testBase, 1, DHCPLayout)
		for _, name := range order {
			writeTestFile(t, fs, p.Leaf(name), "subnet\n")
			writeTestFile(t, fs, p.Child(name, "h-"+name), "host\n")
		}
		require.NoError(t, WriteIncludes(fs, p))
		return fs
	}

	first := build([]string{"c", "a", "b"})
	second := build([]string{"b", "c", "a"})
	assert.Equal(t, treeContents(t, first, testBase), treeContents(t, second, testBase))

	before := treeContents(t, first, testBase)
	require.NoError(t, WriteIncludes(first, NewPaths(testBase, 1, DHCPLayout)))
	assert.Equal(t, before, treeContents(t, first, testBase))
}

func TestWriteIncludesNamed(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewPaths("/named", 1, NamedLayout)
	writeTestFile(t, fs, p.Leaf("example.com"), "zone \"example.com\" {};\n")
	writeTestFile(t, fs, p.Child("example.com", "www"), "www IN A 10.0.0.1\n")

	require.NoError(t, WriteIncludes(fs, p))

	banner := " This file is generated by metal-server. Do not edit; changes will be overwritten.\n"
	assert.Equal(t, "//"+banner+"include \"zones/example.com.conf\";\n", readTestFile(t, fs, p.Include()))
	assert.Equal(t, ";"+banner+"$INCLUDE \"example.com.records/www.zone\"\n", readTestFile(t, fs, p.ChildManifest("example.com")))
}
