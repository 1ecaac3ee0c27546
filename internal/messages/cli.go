package messages

// CLI messages for user-facing commands.
const (
	// RootUse is the CLI command name.
	RootUse            = "metal"
	RootShort          = "Transactional DHCP and DNS configuration updates"
	RootLong           = "metal edits the configuration trees of dhcpd and named. Every change is validated and the daemon restarted; any failure restores the previous tree."
	RootFlagConfig     = "Path to the config file (default $METAL_SERVER_CONFIG or /etc/metal-server/config.toml)"
	RootFlagLogLevel   = "Override log_level from the config (debug, info, warn, error, none)"
	RootUnknownService = "unknown service %q"

	// VersionCommitFmt formats the commit hash for version display.
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "{{.Version}}\n"
	VersionUse       = "version"
	VersionShort     = "Print version and exit"

	ServiceShortFmt      = "Manage the %s configuration tree"
	ServiceDisabledFmt   = "%s is disabled in %s; set %s.enabled = true"
	LeafShortFmt         = "Manage %ss"
	ChildShortFmt        = "Manage %ss of a %s"
	PutLeafUseFmt        = "put NAME"
	PutChildUseFmt       = "put %s NAME"
	PutShortFmt          = "Create or replace a %s"
	RmLeafUseFmt         = "rm NAME"
	RmChildUseFmt        = "rm %s NAME"
	RmShortFmt           = "Remove a %s"
	RmLeafLong           = "Removing a leaf also removes every child listed under it."
	ShowLeafUseFmt       = "show NAME"
	ShowChildUseFmt      = "show %s NAME"
	ShowShortFmt         = "Print the live config of a %s"
	ListUseFmt           = "list"
	ListShortFmt         = "List %ss in the live tree"
	ListChildUseFmt      = "list %s"
	StatusUse            = "status"
	StatusShortFmt       = "Show the live generation of the %s tree and any in-flight update"
	RegenerateUse        = "regenerate"
	RegenerateShortFmt   = "Rewrite the %s include manifests, validate and restart"
	RecoverUse           = "recover"
	RecoverShortFmt      = "Clean up after an update of the %s tree that died holding its lock"
	ConfigUse            = "config"
	ConfigShort          = "Inspect the metal-server configuration"
	ConfigCheckUse       = "check"
	ConfigCheckShort     = "Validate the config file and print the effective settings"
	ConfigKeysUse        = "keys"
	ConfigKeysShort      = "List the supported config keys"
	FlagFile             = "Read the config body from this file instead of stdin"
	FlagDiff             = "Print a unified diff of every changed file"
	FlagDryRun           = "Report the changes without promoting them"
	FlagForce            = "Recover even when the lock holder appears to be alive"
	ReadInputFmt         = "read %s: %w"
	ResultCommittedFmt   = "generation %d is live (was %d)\n"
	ResultPlannedFmt     = "dry run: generation %d would replace %d\n"
	ResultNoChanges      = "no changes"
	ResultInterrupted    = "interrupted after the update was committed; exiting"
	StatusBaseFmt        = "base:        %s\n"
	StatusMasterFmt      = "master:      %s\n"
	StatusGenerationFmt  = "generation:  %d\n"
	StatusNoGeneration   = "generation:  none\n"
	StatusLockFmt        = "lock:        held by pid %d on %s since %s (generation %d -> %d)\n"
	StatusLockCommitted  = "lock:        committed, cleanup pending; run recover\n"
	StatusUnlocked       = "lock:        none\n"
	StatusLeafFmt        = "%s (%d %ss)\n"
	RecoverRolledBackFmt = "rolled back generation %d; generation %d is live\n"
	RecoverCompletedFmt  = "completed commit of generation %d\n"
	RecoverReleased      = "removed stale lock\n"
	ConfigSourceFmt      = "config: %s\n"
	ConfigServiceFmt     = "[%s] enabled=%t base=%s timeout=%s\n"
	ConfigCommandFmt     = "  %s: %q\n"
	ConfigKeyFmt         = "%-32s %-12s %s\n"
	ConfigOptionFmt      = "%-32s   %-10s %s\n"
)
