package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix is the environment-variable prefix Load reads overrides from,
// e.g. GEOQL_ELEMENT_LIMIT for the element_limit key.
const envPrefix = "GEOQL_"

// Load builds a Config by layering, lowest to highest precedence: built-in
// defaults, a geoql.yaml/geoql.yml file found in dir, GEOQL_-prefixed
// environment variables, and finally any flags in fs that were explicitly
// set. fs may be nil, in which case the flag layer is skipped.
func Load(dir string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"element_limit":      DefaultElementLimit,
		"max_timeout":         DefaultMaxTimeoutSeconds,
		"max_memory":          DefaultMaxMemory,
		"snapshot_dir":        DefaultSnapshotDir,
		"area_dir":            DefaultAreaDir,
		"backend":             DefaultBackend,
		"dispatcher_socket":   DefaultDispatcherSocket,
		"dispatcher_lock_dir": DefaultDispatcherLockDir,
		"server_addr":         DefaultServerAddr,
		"macro_dir":           DefaultMacroDir,
	}, "."), nil); err != nil {
		return nil, err
	}

	if path := findConfigFile(dir); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// findConfigFile returns the path to geoql.yaml or geoql.yml in dir, or ""
// if neither exists.
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir looking for a directory containing
// geoql.yaml or geoql.yml, returning "" if none is found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if findConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
