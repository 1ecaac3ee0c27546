package sysconf

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/conn-castle/metal-server/internal/messages"
)

// Errors that cross the Updater boundary. Callers match them with errors.Is.
var (
	// ErrTransactionConflict means another update holds the lock for the same base.
	ErrTransactionConflict = errors.New(messages.SysconfTransactionConflict)
	// ErrDaemonOffline means the service was not running, so nothing was attempted.
	ErrDaemonOffline = errors.New(messages.SysconfDaemonOffline)
	// ErrValidationFailed means the new tree was rejected and the old one restored.
	ErrValidationFailed = errors.New(messages.SysconfValidationFailed)
	// ErrHandledRestartFailure means the restart failed, the old tree was restored
	// and a second restart succeeded.
	ErrHandledRestartFailure = errors.New(messages.SysconfHandledRestartFailure)
	// ErrUnhandledRestartFailure means the retry restart also failed. The service is
	// likely offline and must not be retried automatically.
	ErrUnhandledRestartFailure = errors.New(messages.SysconfUnhandledRestartFailure)
	// ErrInterrupted means a termination signal arrived before the commit point.
	ErrInterrupted = errors.New(messages.SysconfInterrupted)

	// ErrInvalidName is returned for leaf or child names that are not safe path components.
	ErrInvalidName = errors.New(messages.SysconfInvalidName)
	// ErrNotFound is returned by Tx helpers when the addressed leaf or child is missing.
	ErrNotFound = errors.New(messages.SysconfNotFound)
)

// CommandError reports a failed external command together with its combined output.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf(messages.SysconfCommandFailedFmt, e.Command, e.Err)
	}
	return fmt.Sprintf(messages.SysconfCommandOutputFmt, e.Command, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError is returned by ServiceController.Validate.
type ValidationError struct {
	*CommandError
}

// RestartError is returned by ServiceController.Restart.
type RestartError struct {
	*CommandError
}

// StatusCode maps an Updater error onto the HTTP status the resource layer
// should answer with. Unknown errors map to 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrTransactionConflict):
		return http.StatusConflict
	case errors.Is(err, ErrDaemonOffline):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
