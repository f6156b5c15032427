// Package config loads geoql's project configuration: the resource budget
// every query evaluation is bound by, the snapshot/backend paths the
// storage layer resolves against, and the dispatcher's coordination files.
// It is deliberately independent of internal/cli so the server and the
// area-derivation job can load it without pulling in cobra.
package config

import "time"

// Config is geoql's full project configuration, loaded from a geoql.yaml /
// geoql.yml project file, overridden by GEOQL_-prefixed environment
// variables, and finally by explicit CLI flags.
type Config struct {
	// ElementLimit bounds the number of elements a single query's resource
	// manager may account for. A query's own osm-script element-limit
	// attribute does not override it.
	ElementLimit int `koanf:"element_limit"`

	// MaxTimeoutSeconds bounds a single query's wall-clock budget.
	MaxTimeoutSeconds int `koanf:"max_timeout"`

	// MaxMemory is a memory ceiling in bytes. Validate requires it to be
	// positive, but Budget does not pass it to the evaluator and the
	// resource manager accounts no memory cost.
	MaxMemory int64 `koanf:"max_memory"`

	// AllowImplicitBBox resolves the Open Question of whether an empty
	// query (no explicit bbox, no global bbox set) is permitted: default
	// false, making it a static error unless the operator opts in.
	AllowImplicitBBox bool `koanf:"allow_implicit_bbox"`

	// GlobalBBox is the operator-configured default bounding box substituted
	// for "bbox" when AllowImplicitBBox is true, as "S,W,N,E".
	GlobalBBox string `koanf:"global_bbox"`

	// SnapshotDir is the directory holding the base map-data snapshot the
	// configured backend reads.
	SnapshotDir string `koanf:"snapshot_dir"`

	// AreaDir is the directory the area-derivation job writes its
	// shadow-then-rename area snapshots into.
	AreaDir string `koanf:"area_dir"`

	// Backend names the registered store.Backend implementation to open
	// ("memory", "duckdb", "postgres").
	Backend string `koanf:"backend"`

	// BackendDSN is the connection string/path passed to store.New.
	BackendDSN string `koanf:"backend_dsn"`

	// DispatcherSocket is the path to the dispatcher's coordination socket.
	DispatcherSocket string `koanf:"dispatcher_socket"`

	// DispatcherLockDir holds the dispatcher's generation lock files.
	DispatcherLockDir string `koanf:"dispatcher_lock_dir"`

	// ServerAddr is the address the "serve" command listens on.
	ServerAddr string `koanf:"server_addr"`

	// MacroDir holds the .star files loaded as "::eval"-callable macro
	// functions for make/convert value expressions.
	MacroDir string `koanf:"macro_dir"`

	// Verbose gates remark-level diagnostics, matching the original's
	// QUIET/default/VERBOSE levels.
	Verbose bool `koanf:"verbose"`
}

// MaxTimeout returns MaxTimeoutSeconds as a time.Duration.
func (c *Config) MaxTimeout() time.Duration {
	return time.Duration(c.MaxTimeoutSeconds) * time.Second
}
