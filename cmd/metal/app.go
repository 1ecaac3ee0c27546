package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conn-castle/metal-server/internal/config"
	"github.com/conn-castle/metal-server/internal/logging"
	"github.com/conn-castle/metal-server/internal/messages"
	"github.com/conn-castle/metal-server/internal/sysconf"
)

// Overridden in tests.
var (
	newFs       = afero.NewOsFs
	trapSignals = true
)

// app wires the config and logger of one invocation.
type app struct {
	fs     afero.Fs
	cfg    *config.Config
	source string
	logger *zap.Logger
}

func loadApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	fs := newFs()
	cfg, source, err := config.Load(fs, opts.configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logging.NewWithWriter(level, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return &app{fs: fs, cfg: cfg, source: source, logger: logger}, nil
}

// serviceApp is an app bound to one enabled service.
type serviceApp struct {
	*app
	layout  sysconf.Layout
	service *config.ServiceConfig
	guard   *sysconf.Guard
}

func (a *app) forService(layout sysconf.Layout) (*serviceApp, error) {
	svc, ok := a.cfg.Service(layout.Service)
	if !ok {
		return nil, fmt.Errorf(messages.RootUnknownService, layout.Service)
	}
	if !svc.IsEnabled() {
		return nil, fmt.Errorf(messages.ServiceDisabledFmt, layout.Service, a.source, layout.Service)
	}
	guard := sysconf.NewGuard(a.fs, layout, sysconf.GuardOptions{Logger: a.logger, TrapSignals: trapSignals})
	return &serviceApp{app: a, layout: layout, service: svc, guard: guard}, nil
}

func (s *serviceApp) base() string {
	return s.service.Base
}

func (s *serviceApp) updater() (*sysconf.Updater, error) {
	commands, err := s.service.Commands()
	if err != nil {
		return nil, err
	}
	controller := sysconf.NewServiceController(commands, sysconf.ExecRunner{}, s.logger.With(zap.String("service", s.layout.Service)))
	return sysconf.NewUpdater(s.guard, controller, s.logger), nil
}
