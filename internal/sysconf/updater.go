// Package sysconf promotes edits of DHCP and DNS configuration trees into the
// live tree of a daemon, validates and restarts the daemon, and rolls back to the
// last known-good tree on any failure.
package sysconf

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conn-castle/metal-server/internal/messages"
)

// Updater is the entry point resource handlers use to change a daemon's
// configuration tree. It sequences the daemon liveness check, the guarded edit,
// validation, restart, and the single restart retry after a rollback.
type Updater struct {
	guard   *Guard
	service Service
	logger  *zap.Logger
}

// NewUpdater returns an Updater that edits trees through guard and drives service.
func NewUpdater(guard *Guard, service Service, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{guard: guard, service: service, logger: logger}
}

// Guard returns the transaction guard the updater runs on.
func (u *Updater) Guard() *Guard {
	return u.guard
}

// Update applies edit to the tree at base and makes the daemon serve it.
//
// Errors other than those produced by edit itself are one of ErrDaemonOffline,
// ErrTransactionConflict, ErrValidationFailed, ErrHandledRestartFailure or
// ErrUnhandledRestartFailure (or ErrInterrupted). Except for the two restart
// failures, an error means nothing durable changed.
func (u *Updater) Update(ctx context.Context, base string, edit EditFunc) (*Result, error) {
	logger := u.logger.With(zap.String("service", u.guard.layout.Service), zap.String("base", base))
	if !u.service.IsRunning(ctx) {
		logger.Warn("refusing update while service is offline")
		return nil, ErrDaemonOffline
	}

	restartFailed := false
	res, err := u.guard.Run(ctx, base, edit, func(ctx context.Context, _ *Tx) error {
		if err := u.service.Validate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}
		if err := u.service.Restart(ctx); err != nil {
			restartFailed = true
			return err
		}
		return nil
	})
	if err == nil {
		return res, nil
	}
	if !restartFailed {
		if errors.Is(err, ErrValidationFailed) {
			logger.Warn("configuration failed validation", zap.Error(err))
		}
		return nil, err
	}

	// The guard has restored the previous tree; bring the daemon back on it.
	logger.Error("restart failed, retrying with the restored configuration", zap.Error(err))
	if retryErr := u.service.Restart(ctx); retryErr != nil {
		logger.Error("restart retry failed, service state unknown", zap.Error(retryErr))
		return nil, fmt.Errorf(messages.SysconfRestartRetryFmt, ErrUnhandledRestartFailure, err, retryErr)
	}
	logger.Warn("service restarted with the restored configuration")
	return nil, fmt.Errorf("%w: %w", ErrHandledRestartFailure, err)
}

// Plan runs edit as a dry run and reports the resulting changes. The daemon is
// not consulted and nothing is promoted.
func (u *Updater) Plan(ctx context.Context, base string, edit EditFunc) (*Result, error) {
	return u.guard.Plan(ctx, base, edit)
}
