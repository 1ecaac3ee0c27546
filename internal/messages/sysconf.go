package messages

// Sysconf messages for the transactional config tree updater.
const (
	// SysconfTransactionConflict is reported when another update holds the lock.
	SysconfTransactionConflict     = "an update is already in progress"
	SysconfDaemonOffline           = "the service is not currently running; refusing to modify its configuration"
	SysconfValidationFailed        = "the updated configuration failed validation and was rolled back"
	SysconfHandledRestartFailure   = "the service failed to restart with the updated configuration; the previous configuration was restored and the service restarted"
	SysconfUnhandledRestartFailure = "the service failed to restart with both the updated and the restored configuration; operator attention required"
	SysconfInterrupted             = "the update was interrupted and rolled back"
	SysconfNotFound                = "not found"
	SysconfInvalidName             = "invalid name"
	SysconfInvalidNameFmt          = "invalid name %q: names must match [A-Za-z0-9][A-Za-z0-9._-]* and must not end in %q"
	SysconfParentMissingFmt        = "%s %q does not exist"

	SysconfLockCreateFmt      = "create lock %s: %w"
	SysconfLockWriteFmt       = "write lock record %s: %w"
	SysconfLockReadFmt        = "read lock record %s: %w"
	SysconfLockDecodeFmt      = "decode lock record %s: %w"
	SysconfLockRemoveFmt      = "remove lock %s: %w"
	SysconfLockHolderAliveFmt = "lock %s is held by running process %d on %s; re-run with force to override"
	SysconfNoLockFmt          = "no lock present at %s"

	SysconfCurrentGenerationFmt = "determine current generation under %s: %w"
	SysconfSnapshotCreateFmt    = "create snapshot for %s: %w"
	SysconfSnapshotCopyFmt      = "copy %s into snapshot: %w"
	SysconfMaterializeFmt       = "materialize generation %d from %d: %w"
	SysconfIncludesFmt          = "regenerate include manifests for %s: %w"
	SysconfPromoteFmt           = "promote generation %d: %w"
	SysconfChangesFmt           = "compute changes for generation %d: %w"
	SysconfRestoreMasterFmt     = "restore %s from snapshot: %w"
	SysconfRemoveGenerationFmt  = "remove generation directory %s: %w"
	SysconfRemoveSnapshotFmt    = "remove snapshot %s: %w"
	SysconfRemoveFmt            = "remove %s: %w"
	SysconfReadFmt              = "read %s: %w"
	SysconfWriteFmt             = "write %s: %w"
	SysconfListFmt              = "list %s: %w"
	SysconfMasterParseFmt       = "master include %s does not reference a generation under %s"
	SysconfMasterDanglingFmt    = "master include %s references generation %d: %w"

	SysconfCommandEmptyFmt    = "%s command is empty"
	SysconfCommandParseFmt    = "parse %s command %q: %w"
	SysconfCommandTimeoutFmt  = "timed out after %s"
	SysconfCommandFailedFmt   = "command %q failed: %v"
	SysconfCommandOutputFmt   = "command %q failed: %v\n%s"
	SysconfRestartRetryFmt    = "%w: first attempt: %w; retry: %w"
	SysconfManifestBannerLine = "This file is generated by metal-server. Do not edit; changes will be overwritten."
)
