package sysconf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/metal-server/internal/fsutil"
)

const testBase = "/dhcp"

func writeTestFile(t *testing.T, fs afero.Fs, path string, content string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func readTestFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

// treeContents returns every file on fs below root.
func treeContents(t *testing.T, fs afero.Fs, root string) map[string]string {
	t.Helper()
	files, err := fsutil.ReadTree(fs, root)
	require.NoError(t, err)
	out := make(map[string]string, len(files))
	for path, data := range files {
		out[path] = string(data)
	}
	return out
}

// cloneFs copies every directory and file of src into a fresh in-memory filesystem.
func cloneFs(t *testing.T, src afero.Fs) afero.Fs {
	t.Helper()
	dst := afero.NewMemMapFs()
	err := afero.Walk(src, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return dst.MkdirAll(path, 0o755)
		}
		data, err := afero.ReadFile(src, path)
		if err != nil {
			return err
		}
		return afero.WriteFile(dst, path, data, 0o644)
	})
	require.NoError(t, err)
	return dst
}

func newTestGuard(fs afero.Fs) *Guard {
	return NewGuard(fs, DHCPLayout, GuardOptions{})
}

// seedSubnet commits subnet with hosts through a guard so the tree has a real generation.
func seedSubnet(t *testing.T, g *Guard, subnet string, hosts ...string) {
	t.Helper()
	_, err := g.Run(context.Background(), testBase, func(tx *Tx) error {
		if err := tx.WriteLeaf(subnet, []byte("subnet "+subnet+" {}\n")); err != nil {
			return err
		}
		for _, host := range hosts {
			if err := tx.WriteChild(subnet, host, []byte("host "+host+" {}\n")); err != nil {
				return err
			}
		}
		return nil
	}, nil)
	require.NoError(t, err)
}

type fakeService struct {
	running     bool
	validateErr error
	// restartErrs is consumed one entry per Restart call; nil entries succeed.
	restartErrs []error

	isRunningCalls int
	validateCalls  int
	restartCalls   int
}

func (f *fakeService) IsRunning(context.Context) bool {
	f.isRunningCalls++
	return f.running
}

func (f *fakeService) Validate(context.Context) error {
	f.validateCalls++
	return f.validateErr
}

func (f *fakeService) Restart(context.Context) error {
	f.restartCalls++
	if len(f.restartErrs) == 0 {
		return nil
	}
	err := f.restartErrs[0]
	f.restartErrs = f.restartErrs[1:]
	return err
}
