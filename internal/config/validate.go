package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/conn-castle/metal-server/internal/logging"
	"github.com/conn-castle/metal-server/internal/messages"
	"github.com/conn-castle/metal-server/internal/sysconf"
)

// Validate ensures the config is complete and consistent. Base paths are
// expanded and cleaned in place.
func (c *Config) Validate(path string) error {
	if _, _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf(messages.ConfigLogLevelInvalidFmt, path, err)
	}
	for _, name := range []string{ServiceDHCP, ServiceNamed} {
		svc, _ := c.Service(name)
		if err := svc.validate(path, name); err != nil {
			return err
		}
	}
	if c.DHCP.IsEnabled() && c.Named.IsEnabled() && overlaps(c.DHCP.Base, c.Named.Base) {
		return fmt.Errorf(messages.ConfigBasesOverlapFmt, path, c.DHCP.Base, c.Named.Base)
	}
	return nil
}

func (s *ServiceConfig) validate(path string, name string) error {
	if !s.IsEnabled() {
		return nil
	}
	if strings.TrimSpace(s.Base) == "" {
		return fmt.Errorf(messages.ConfigBaseRequiredFmt, path, name, name)
	}
	expanded, err := homedir.Expand(s.Base)
	if err != nil {
		return fmt.Errorf(messages.ConfigBaseExpandFmt, path, name, err)
	}
	if !filepath.IsAbs(expanded) {
		return fmt.Errorf(messages.ConfigBaseNotAbsoluteFmt, path, name, s.Base)
	}
	s.Base = filepath.Clean(expanded)

	if s.CommandTimeoutSeconds != nil && *s.CommandTimeoutSeconds <= 0 {
		return fmt.Errorf(messages.ConfigTimeoutInvalidFmt, path, name)
	}
	if _, err := s.Commands(); err != nil {
		return fmt.Errorf(messages.ConfigCommandInvalidFmt, path, name, err)
	}
	return nil
}

// Commands parses the three service hooks.
func (s ServiceConfig) Commands() (sysconf.Commands, error) {
	return sysconf.ParseCommands(s.IsRunningCommand, s.ValidateCommand, s.RestartCommand, s.Timeout())
}

func overlaps(a string, b string) bool {
	a = filepath.Clean(a) + string(filepath.Separator)
	b = filepath.Clean(b) + string(filepath.Separator)
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
