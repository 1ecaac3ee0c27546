package messages

// Config messages for configuration loading and validation.
const (
	// ConfigMissingFileFmt formats missing config file errors.
	ConfigMissingFileFmt      = "missing config file %s: %w"
	ConfigInvalidConfigFmt    = "invalid config %s: %w"
	ConfigUnrecognizedKeysFmt = "%s: unrecognized config keys: %v"
	ConfigValidationGuidance  = "(see the example config shipped with metal-server for the supported keys)"

	ConfigLogLevelInvalidFmt = "%s: log_level: %w"
	ConfigBaseRequiredFmt    = "%s: %s.base is required when %s is enabled"
	ConfigBaseNotAbsoluteFmt = "%s: %s.base must be an absolute path (got %q)"
	ConfigBaseExpandFmt      = "%s: %s.base: expand home directory: %w"
	ConfigCommandInvalidFmt  = "%s: %s: %w"
	ConfigTimeoutInvalidFmt  = "%s: %s.command_timeout_seconds must be positive"
	ConfigServiceDisabledFmt = "%s is disabled in %s"
	ConfigBasesOverlapFmt    = "%s: dhcp.base and named.base must not overlap (%s, %s)"
)
