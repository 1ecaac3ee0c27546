// Package config loads the metal-server configuration file.
package config

import "time"

// Service names used as config tables.
const (
	ServiceDHCP  = "dhcp"
	ServiceNamed = "named"
)

// DefaultCommandTimeoutSeconds bounds each service hook when the config does not say.
const DefaultCommandTimeoutSeconds = 60

// Config is the decoded metal-server config file.
type Config struct {
	LogLevel string        `toml:"log_level"`
	DHCP     ServiceConfig `toml:"dhcp"`
	Named    ServiceConfig `toml:"named"`
}

// ServiceConfig describes one managed daemon and the tree it reads.
type ServiceConfig struct {
	Enabled *bool  `toml:"enabled"`
	Base    string `toml:"base"`

	IsRunningCommand      string `toml:"is_running_command"`
	ValidateCommand       string `toml:"validate_command"`
	RestartCommand        string `toml:"restart_command"`
	CommandTimeoutSeconds *int   `toml:"command_timeout_seconds"`
}

// Default returns the config used for keys the file leaves out.
func Default() Config {
	return Config{
		LogLevel: "info",
		DHCP: ServiceConfig{
			Enabled:               boolPtr(true),
			Base:                  "/var/lib/metal-server/dhcp",
			IsRunningCommand:      "systemctl status dhcpd.service",
			ValidateCommand:       "dhcpd -t -cf /etc/dhcp/dhcpd.conf",
			RestartCommand:        "systemctl restart dhcpd.service",
			CommandTimeoutSeconds: intPtr(DefaultCommandTimeoutSeconds),
		},
		Named: ServiceConfig{
			Enabled:               boolPtr(false),
			Base:                  "/var/lib/metal-server/named",
			IsRunningCommand:      "systemctl status named.service",
			ValidateCommand:       "named-checkconf",
			RestartCommand:        "systemctl restart named.service",
			CommandTimeoutSeconds: intPtr(DefaultCommandTimeoutSeconds),
		},
	}
}

// Service returns the table for name.
func (c *Config) Service(name string) (*ServiceConfig, bool) {
	switch name {
	case ServiceDHCP:
		return &c.DHCP, true
	case ServiceNamed:
		return &c.Named, true
	}
	return nil, false
}

// IsEnabled reports whether the service is managed.
func (s ServiceConfig) IsEnabled() bool {
	return s.Enabled != nil && *s.Enabled
}

// Timeout returns the per-command timeout.
func (s ServiceConfig) Timeout() time.Duration {
	if s.CommandTimeoutSeconds == nil {
		return DefaultCommandTimeoutSeconds * time.Second
	}
	return time.Duration(*s.CommandTimeoutSeconds) * time.Second
}

func boolPtr(v bool) *bool {
	return &v
}

func intPtr(v int) *int {
	return &v
}
