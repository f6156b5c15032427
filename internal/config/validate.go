package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/geoql-project/geoql/internal/eval"
	"github.com/geoql-project/geoql/internal/store"
)

// Validate checks that the loaded configuration is internally consistent,
// independent of whether the configured backend is actually reachable.
func (c *Config) Validate() error {
	if c.ElementLimit <= 0 {
		return fmt.Errorf("element_limit must be positive, got %d", c.ElementLimit)
	}
	if c.MaxTimeoutSeconds <= 0 {
		return fmt.Errorf("max_timeout must be positive, got %d", c.MaxTimeoutSeconds)
	}
	if c.MaxMemory <= 0 {
		return fmt.Errorf("max_memory must be positive, got %d", c.MaxMemory)
	}
	if c.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	if c.AllowImplicitBBox && c.GlobalBBox != "" {
		if _, err := ParseBBox(c.GlobalBBox); err != nil {
			return fmt.Errorf("global_bbox: %w", err)
		}
	}
	return nil
}

// Budget converts the configured resource ceilings into the eval package's
// per-query Budget, which every query's resource manager runs under. A
// query's own osm-script timeout/element-limit attributes are kept in the
// parsed tree but do not change this budget.
func (c *Config) Budget() eval.Budget {
	return eval.Budget{
		MaxTimeout:   time.Duration(c.MaxTimeoutSeconds) * time.Second,
		ElementLimit: c.ElementLimit,
	}
}

// ParseBBox parses a "S,W,N,E" string into a store.BBox, the format
// global_bbox is configured in.
func ParseBBox(s string) (store.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return store.BBox{}, fmt.Errorf("expected 4 comma-separated values (S,W,N,E), got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return store.BBox{}, fmt.Errorf("invalid bbox component %q: %w", p, err)
		}
		vals[i] = v
	}
	return store.BBox{S: vals[0], W: vals[1], N: vals[2], E: vals[3]}, nil
}
