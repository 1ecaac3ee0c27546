package sysconf

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLive(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := newTestGuard(fs)

	_, err := g.ReadLeaf(testBase, "test-subnet")
	require.ErrorIs(t, err, ErrNotFound)

	seedSubnet(t, g, "test-subnet", "h1")

	data, err := g.ReadLeaf(testBase, "test-subnet")
	require.NoError(t, err)
	assert.Equal(t, "subnet test-subnet {}\n", string(data))

	data, err = g.ReadChild(testBase, "test-subnet", "h1")
	require.NoError(t, err)
	assert.Equal(t, "host h1 {}\n", string(data))

	_, err = g.ReadChild(testBase, "test-subnet", "h2")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `host "test-subnet/h2" does not exist`)

	_, err = g.ReadLeaf(testBase, "../1")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestReadLiveIgnoresUncommittedGeneration(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := newTestGuard(fs)
	seedSubnet(t, g, "a")

	var during string
	var duringGeneration int
	_, err := g.Run(context.Background(), testBase, func(tx *Tx) error {
		return tx.WriteLeaf("a", []byte("REJECTED\n"))
	}, func(context.Context, *Tx) error {
		data, err := g.ReadLeaf(testBase, "a")
		require.NoError(t, err)
		during = string(data)
		status, err := g.Status(testBase)
		require.NoError(t, err)
		duringGeneration = status.Generation
		return errors.New("rejected")
	})
	require.Error(t, err)

	assert.Equal(t, "subnet a {}\n", during)
	assert.Equal(t, 1, duringGeneration)

	data, err := g.ReadLeaf(testBase, "a")
	require.NoError(t, err)
	assert.Equal(t, "subnet a {}\n", string(data))
}

func TestReadLiveSwitchesOnCommit(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := newTestGuard(fs)
	seedSubnet(t, g, "a")

	var during string
	_, err := g.Run(context.Background(), testBase, func(tx *Tx) error {
		return tx.WriteLeaf("a", []byte("subnet a v2\n"))
	}, func(context.Context, *Tx) error {
		data, err := g.ReadLeaf(testBase, "a")
		during = string(data)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "subnet a {}\n", during)

	data, err := g.ReadLeaf(testBase, "a")
	require.NoError(t, err)
	assert.Equal(t, "subnet a v2\n", string(data))
	generation, err := LiveGeneration(fs, testBase, DHCPLayout)
	require.NoError(t, err)
	assert.Equal(t, 2, generation)
}

func TestReadLiveFirstTransactionUncommitted(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := newTestGuard(fs)

	var readErr error
	_, err := g.Run(context.Background(), testBase, func(tx *Tx) error {
		return tx.WriteLeaf("a", []byte("subnet a\n"))
	}, func(context.Context, *Tx) error {
		_, readErr = g.ReadLeaf(testBase, "a")
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, readErr, ErrNotFound)
}
