package config

// Default configuration values, applied by Load after the file/env/flag
// layers if a field was left unset.
const (
	DefaultElementLimit      = 1_000_000
	DefaultMaxTimeoutSeconds = 180
	DefaultMaxMemory         = 1 << 30 // 1 GiB
	DefaultSnapshotDir       = "snapshot"
	DefaultAreaDir           = "snapshot/areas"
	DefaultBackend           = "memory"
	DefaultDispatcherSocket  = ".geoql/dispatcher.sock"
	DefaultDispatcherLockDir = ".geoql/locks"
	DefaultServerAddr        = ":8080"
	DefaultMacroDir          = "snapshot/macros"

	// ConfigFileName and ConfigFileNameAlt name the project config file
	// Load searches for.
	ConfigFileName    = "geoql.yaml"
	ConfigFileNameAlt = "geoql.yml"
)

// ApplyDefaults fills in any field left at its zero value after the
// file/env/flag layers have been merged.
func (c *Config) ApplyDefaults() {
	if c.ElementLimit == 0 {
		c.ElementLimit = DefaultElementLimit
	}
	if c.MaxTimeoutSeconds == 0 {
		c.MaxTimeoutSeconds = DefaultMaxTimeoutSeconds
	}
	if c.MaxMemory == 0 {
		c.MaxMemory = DefaultMaxMemory
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = DefaultSnapshotDir
	}
	if c.AreaDir == "" {
		c.AreaDir = DefaultAreaDir
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.DispatcherSocket == "" {
		c.DispatcherSocket = DefaultDispatcherSocket
	}
	if c.DispatcherLockDir == "" {
		c.DispatcherLockDir = DefaultDispatcherLockDir
	}
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.MacroDir == "" {
		c.MacroDir = DefaultMacroDir
	}
}
