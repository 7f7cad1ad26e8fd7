package config

const (
	defaultDestinationRoot    = "~/projects"
	defaultLogDir             = "~/.local/share/baker/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultProgressIntervalMS = 100
	defaultFreeSpaceSlackMiB  = 512
	defaultScannerMaxDepth    = 3
	defaultLockTimeoutSeconds = 10
)

var defaultExtraFolders = []string{"Audio", "Graphics", "Exports"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DestinationRoot: defaultDestinationRoot,
			LogDir:          defaultLogDir,
		},
		Project: Project{
			ExtraFolders: append([]string(nil), defaultExtraFolders...),
		},
		Copy: Copy{
			Verify:             true,
			ProgressIntervalMS: defaultProgressIntervalMS,
			FreeSpaceSlackMiB:  defaultFreeSpaceSlackMiB,
		},
		Scanner: Scanner{
			MaxDepth: defaultScannerMaxDepth,
		},
		Workflow: Workflow{
			PromptOnSuccess:    true,
			LockTimeoutSeconds: defaultLockTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
