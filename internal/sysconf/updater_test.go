package sysconf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addHost(name string) EditFunc {
	return func(tx *Tx) error {
		return tx.WriteChild("test-subnet", name, []byte("host "+name+" {}\n"))
	}
}

func hostsManifest(t *testing.T, fs afero.Fs) string {
	t.Helper()
	p, err := Current(fs, testBase, DHCPLayout)
	require.NoError(t, err)
	return readTestFile(t, fs, p.ChildManifest("test-subnet"))
}

func newSeededUpdater(t *testing.T, svc *fakeService) (*Updater, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	g := newTestGuard(fs)
	seedSubnet(t, g, "test-subnet", "h1")
	return NewUpdater(g, svc, nil), fs
}

func TestUpdaterUpdateSuccess(t *testing.T) {
	svc := &fakeService{running: true}
	u, fs := newSeededUpdater(t, svc)

	res, err := u.Update(context.Background(), testBase, addHost("h2"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generation)

	assert.Equal(t, dhcpBanner+
		"include \"test-subnet.hosts/h1.conf\";\n"+
		"include \"test-subnet.hosts/h2.conf\";\n", hostsManifest(t, fs))
	assert.Equal(t, 1, svc.validateCalls)
	assert.Equal(t, 1, svc.restartCalls)
	assertUnlocked(t, fs)
}

func TestUpdaterValidationFailure(t *testing.T) {
	svc := &fakeService{running: true, validateErr: &ValidationError{CommandError: &CommandError{
		Command: "dhcpd -t",
		Output:  "line 1: unexpected token",
		Err:     errors.New("exit status 1"),
	}}}
	u, fs := newSeededUpdater(t, svc)
	before := treeContents(t, fs, testBase)

	_, err := u.Update(context.Background(), testBase, addHost("h2"))
	require.ErrorIs(t, err, ErrValidationFailed)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "line 1: unexpected token", validationErr.Output)

	assert.Equal(t, 0, svc.restartCalls)
	assert.Equal(t, before, treeContents(t, fs, testBase))
	assert.Equal(t, dhcpBanner+"include \"test-subnet.hosts/h1.conf\";\n", hostsManifest(t, fs))
}

func TestUpdaterDaemonOffline(t *testing.T) {
	svc := &fakeService{running: false}
	fs := afero.NewMemMapFs()
	u := NewUpdater(newTestGuard(fs), svc, nil)

	called := false
	_, err := u.Update(context.Background(), testBase, func(*Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrDaemonOffline)
	assert.False(t, called)
	assert.Equal(t, 0, svc.validateCalls)
	assert.Empty(t, rootEntries(t, fs))
}

func TestUpdaterHandledRestartFailure(t *testing.T) {
	restartErr := errors.New("restart failed")
	svc := &fakeService{running: true, restartErrs: []error{restartErr, nil}}
	u, fs := newSeededUpdater(t, svc)
	before := treeContents(t, fs, testBase)

	_, err := u.Update(context.Background(), testBase, addHost("h2"))
	require.ErrorIs(t, err, ErrHandledRestartFailure)
	require.ErrorIs(t, err, restartErr)
	assert.NotErrorIs(t, err, ErrUnhandledRestartFailure)

	assert.Equal(t, 2, svc.restartCalls)
	assert.Equal(t, before, treeContents(t, fs, testBase))
	assertUnlocked(t, fs)
}

func TestUpdaterUnhandledRestartFailure(t *testing.T) {
	first := errors.New("first restart failed")
	retry := errors.New("retry failed")
	svc := &fakeService{running: true, restartErrs: []error{first, retry}}
	u, fs := newSeededUpdater(t, svc)
	before := treeContents(t, fs, testBase)

	_, err := u.Update(context.Background(), testBase, addHost("h2"))
	require.ErrorIs(t, err, ErrUnhandledRestartFailure)
	require.ErrorIs(t, err, first)
	require.ErrorIs(t, err, retry)
	assert.NotErrorIs(t, err, ErrHandledRestartFailure)

	assert.Equal(t, 2, svc.restartCalls)
	assert.Equal(t, before, treeContents(t, fs, testBase))
}

func TestUpdaterConflict(t *testing.T) {
	svc := &fakeService{running: true}
	u, fs := newSeededUpdater(t, svc)
	writeTestFile(t, fs, LockPath(testBase), "pid = 1\n")

	_, err := u.Update(context.Background(), testBase, addHost("h2"))
	require.ErrorIs(t, err, ErrTransactionConflict)
	assert.Equal(t, 1, svc.isRunningCalls)
	assert.Equal(t, 0, svc.validateCalls)
}

func TestUpdaterEditErrorPassesThrough(t *testing.T) {
	svc := &fakeService{running: true}
	u, _ := newSeededUpdater(t, svc)

	_, err := u.Update(context.Background(), testBase, func(tx *Tx) error {
		return tx.RemoveChild("test-subnet", "missing")
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, svc.validateCalls)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestUpdaterPlanSkipsService(t *testing.T) {
	svc := &fakeService{running: false}
	u, fs := newSeededUpdater(t, svc)
	before := treeContents(t, fs, testBase)

	res, err := u.Plan(context.Background(), testBase, addHost("h2"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Changes)
	assert.Equal(t, 0, svc.isRunningCalls)
	assert.Equal(t, before, treeContents(t, fs, testBase))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: http.StatusOK},
		{err: ErrTransactionConflict, want: http.StatusConflict},
		{err: ErrDaemonOffline, want: http.StatusServiceUnavailable},
		{err: fmt.Errorf("%w: %w", ErrValidationFailed, errors.New("x")), want: http.StatusUnprocessableEntity},
		{err: fmt.Errorf("wrap: %w", ErrInvalidName), want: http.StatusBadRequest},
		{err: ErrNotFound, want: http.StatusNotFound},
		{err: ErrHandledRestartFailure, want: http.StatusInternalServerError},
		{err: ErrUnhandledRestartFailure, want: http.StatusInternalServerError},
		{err: errors.New("other"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), "%v", tt.err)
	}
}
