package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(""), "empty.toml")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.DHCP.IsEnabled())
	assert.False(t, cfg.Named.IsEnabled())
	assert.Equal(t, "/var/lib/metal-server/dhcp", cfg.DHCP.Base)
	assert.Equal(t, 60*time.Second, cfg.DHCP.Timeout())

	cmds, err := cfg.DHCP.Commands()
	require.NoError(t, err)
	assert.Equal(t, []string{"systemctl", "status", "dhcpd.service"}, cmds.IsRunning)
	assert.Equal(t, []string{"dhcpd", "-t", "-cf", "/etc/dhcp/dhcpd.conf"}, cmds.Validate)
	assert.Equal(t, []string{"systemctl", "restart", "dhcpd.service"}, cmds.Restart)

	cmds, err = cfg.Named.Commands()
	require.NoError(t, err)
	assert.Equal(t, []string{"named-checkconf"}, cmds.Validate)
}

func TestParseConfigOverrides(t *testing.T) {
	data := `
log_level = "debug"

[dhcp]
base = "/srv/metal/dhcp/"
validate_command = "dhcpd -t -cf '/etc/dhcp/my dhcpd.conf'"
command_timeout_seconds = 5

[named]
enabled = true
base = "/srv/metal/named"
`
	cfg, err := ParseConfig([]byte(data), "config.toml")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/metal/dhcp", cfg.DHCP.Base)
	assert.Equal(t, 5*time.Second, cfg.DHCP.Timeout())
	assert.Equal(t, "systemctl restart dhcpd.service", cfg.DHCP.RestartCommand)
	assert.True(t, cfg.Named.IsEnabled())

	cmds, err := cfg.DHCP.Commands()
	require.NoError(t, err)
	assert.Equal(t, []string{"dhcpd", "-t", "-cf", "/etc/dhcp/my dhcpd.conf"}, cmds.Validate)
	assert.Equal(t, 5*time.Second, cmds.Timeout)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		validation bool
		want       string
	}{
		{name: "syntax", data: "log_level = ", want: "invalid config config.toml"},
		{name: "unknown key", data: "[dhcp]\nbsae = \"/x\"\n", validation: true, want: "unrecognized config keys"},
		{name: "unknown table", data: "[ntp]\nenabled = true\n", validation: true, want: "unrecognized config keys"},
		{name: "log level", data: "log_level = \"loud\"\n", validation: true, want: "log_level"},
		{name: "relative base", data: "[dhcp]\nbase = \"dhcp\"\n", validation: true, want: "dhcp.base must be an absolute path"},
		{name: "empty base", data: "[dhcp]\nbase = \"\"\n", validation: true, want: "dhcp.base is required"},
		{name: "timeout", data: "[dhcp]\ncommand_timeout_seconds = 0\n", validation: true, want: "command_timeout_seconds must be positive"},
		{name: "empty command", data: "[dhcp]\nrestart_command = \"\"\n", validation: true, want: "restart command is empty"},
		{name: "bad quoting", data: "[dhcp]\nvalidate_command = \"dhcpd '-t\"\n", validation: true, want: "parse validate command"},
		{
			name:       "overlapping bases",
			data:       "[dhcp]\nbase = \"/srv/metal\"\n[named]\nenabled = true\nbase = \"/srv/metal/named\"\n",
			validation: true,
			want:       "must not overlap",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data), "config.toml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, tt.validation, errors.Is(err, ErrConfigValidation))
		})
	}
}

func TestParseConfigDisabledServiceSkipsChecks(t *testing.T) {
	data := "[named]\nenabled = false\nbase = \"relative\"\nrestart_command = \"\"\n"
	cfg, err := ParseConfig([]byte(data), "config.toml")
	require.NoError(t, err)
	assert.Equal(t, "relative", cfg.Named.Base)
}

func TestParseConfigExpandsHome(t *testing.T) {
	t.Setenv("HOME", "/home/operator")
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	cfg, err := ParseConfig([]byte("[dhcp]\nbase = \"~/metal/dhcp\"\n"), "config.toml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/operator", "metal", "dhcp"), cfg.DHCP.Base)
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	fs := afero.NewMemMapFs()
	cfg, source, err := Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, "built-in defaults", source)
	assert.True(t, cfg.DHCP.IsEnabled())

	_, _, err = Load(fs, "/missing.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing config file /missing.toml")

	require.NoError(t, afero.WriteFile(fs, "/etc/metal.toml", []byte("log_level = \"warn\"\n"), 0o644))
	t.Setenv(EnvConfigPath, "/etc/metal.toml")
	cfg, source, err = Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, "/etc/metal.toml", source)
	assert.Equal(t, "warn", cfg.LogLevel)

	require.NoError(t, fs.MkdirAll(filepath.Dir(DefaultConfigPath), 0o755))
	require.NoError(t, afero.WriteFile(fs, DefaultConfigPath, []byte("log_level = \"error\"\n"), 0o644))
	t.Setenv(EnvConfigPath, "")
	cfg, source, err = Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigPath, source)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/from/env.toml")
	path, explicit := ResolvePath("/from/flag.toml")
	assert.Equal(t, "/from/flag.toml", path)
	assert.True(t, explicit)

	path, explicit = ResolvePath("")
	assert.Equal(t, "/from/env.toml", path)
	assert.True(t, explicit)

	t.Setenv(EnvConfigPath, "")
	path, explicit = ResolvePath("")
	assert.Equal(t, DefaultConfigPath, path)
	assert.False(t, explicit)
}

func TestServiceLookup(t *testing.T) {
	cfg := Default()
	svc, ok := cfg.Service(ServiceNamed)
	require.True(t, ok)
	svc.Base = "/changed"
	assert.Equal(t, "/changed", cfg.Named.Base)

	_, ok = cfg.Service("ntp")
	assert.False(t, ok)
}

func TestDefaultReturnsFreshPointers(t *testing.T) {
	a := Default()
	b := Default()
	*a.DHCP.Enabled = false
	assert.True(t, *b.DHCP.Enabled)
	assert.False(t, strings.HasSuffix(a.DHCP.Base, "/"))
}
