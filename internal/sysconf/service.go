package sysconf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/conn-castle/metal-server/internal/messages"
)

// Service is the daemon whose configuration tree is being updated.
type Service interface {
	IsRunning(ctx context.Context) bool
	Validate(ctx context.Context) error
	Restart(ctx context.Context) error
}

// Runner executes one command and returns its combined stdout and stderr.
type Runner interface {
	Run(ctx context.Context, argv []string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes argv and returns its combined output.
func (ExecRunner) Run(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	return cmd.CombinedOutput()
}

// Commands holds the parsed argv of the three service hooks.
type Commands struct {
	IsRunning []string
	Validate  []string
	Restart   []string
	// Timeout bounds each invocation. Zero means no timeout.
	Timeout time.Duration
}

// ParseCommands splits the three hook command lines with shell quoting rules.
// Empty or unparsable commands are rejected.
func ParseCommands(isRunning string, validate string, restart string, timeout time.Duration) (Commands, error) {
	var cmds Commands
	var err error
	if cmds.IsRunning, err = ParseCommand("is_running", isRunning); err != nil {
		return Commands{}, err
	}
	if cmds.Validate, err = ParseCommand("validate", validate); err != nil {
		return Commands{}, err
	}
	if cmds.Restart, err = ParseCommand("restart", restart); err != nil {
		return Commands{}, err
	}
	cmds.Timeout = timeout
	return cmds, nil
}

// ParseCommand splits one command line. name is used in error messages.
func ParseCommand(name string, line string) ([]string, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf(messages.SysconfCommandParseFmt, name, line, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf(messages.SysconfCommandEmptyFmt, name)
	}
	return argv, nil
}

// ServiceController drives a daemon through its is-running, validate and restart
// hooks. Exit status 0 is the only success signal.
type ServiceController struct {
	commands Commands
	runner   Runner
	logger   *zap.Logger
}

// NewServiceController returns a controller for commands. A nil runner uses ExecRunner.
func NewServiceController(commands Commands, runner Runner, logger *zap.Logger) *ServiceController {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceController{commands: commands, runner: runner, logger: logger}
}

// IsRunning reports whether the daemon is reachable.
func (s *ServiceController) IsRunning(ctx context.Context) bool {
	if err := s.run(ctx, "is_running", s.commands.IsRunning); err != nil {
		s.logger.Debug("service is not running", zap.Error(err))
		return false
	}
	return true
}

// Validate checks the live configuration. A failure carries the checker's output.
func (s *ServiceController) Validate(ctx context.Context) error {
	if err := s.run(ctx, "validate", s.commands.Validate); err != nil {
		return &ValidationError{CommandError: err}
	}
	return nil
}

// Restart restarts the daemon.
func (s *ServiceController) Restart(ctx context.Context) error {
	if err := s.run(ctx, "restart", s.commands.Restart); err != nil {
		return &RestartError{CommandError: err}
	}
	return nil
}

func (s *ServiceController) run(ctx context.Context, hook string, argv []string) *CommandError {
	command := strings.Join(argv, " ")
	if len(argv) == 0 {
		return &CommandError{Command: command, Err: fmt.Errorf(messages.SysconfCommandEmptyFmt, hook)}
	}
	if s.commands.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.commands.Timeout)
		defer cancel()
	}

	started := time.Now()
	output, err := s.runner.Run(ctx, argv)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf(messages.SysconfCommandTimeoutFmt, s.commands.Timeout)
	}
	s.logger.Debug("service hook finished",
		zap.String("hook", hook),
		zap.String("command", command),
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("ok", err == nil),
	)
	if err != nil {
		return &CommandError{Command: command, Output: strings.TrimSpace(string(output)), Err: err}
	}
	return nil
}
