package eval

import (
	"fmt"
	"time"

	"github.com/geoql-project/geoql/pkg/object"
)

// Budget bounds a single query evaluation's cost, matching the `[timeout:]`
// / `[maxsize:]` osm-script setup attributes.
type Budget struct {
	MaxTimeout   time.Duration
	ElementLimit int
}

// CostError is a runtime error raised when a query exceeds its Budget.
type CostError struct {
	Msg string
}

func (e CostError) Error() string { return e.Msg }

// ResourceManager is the per-query runtime (C5): it owns the named-set
// environment, the cost budget, and a stopwatch started at construction.
// One ResourceManager is created per top-level query evaluation and
// discarded afterward; it is not safe for concurrent use by more than one
// goroutine, matching the single-threaded-per-query concurrency model.
type ResourceManager struct {
	env    *Environment
	budget Budget
	start  time.Time

	accounted int
}

// NewResourceManager starts the per-query stopwatch and returns a
// ResourceManager bound to env and budget.
func NewResourceManager(env *Environment, budget Budget) *ResourceManager {
	return &ResourceManager{env: env, budget: budget, start: now()}
}

// GetSet returns the named set from the owned environment.
func (rm *ResourceManager) GetSet(name string) *object.Set {
	return rm.env.Get(name)
}

// SwapSet replaces the named set in the owned environment.
func (rm *ResourceManager) SwapSet(name string, s *object.Set) {
	rm.env.Put(name, s)
}

// Account charges n elements against the budget's element limit and
// checks the timeout, returning a CostError the instant either is
// exceeded. The union, difference, foreach, query, id-query and make
// evaluators call this once with their result set's length; the other
// clause evaluators (bbox, around, polygon, recurse, area, pivot, coord,
// map-to-area) do not charge it.
func (rm *ResourceManager) Account(n int) error {
	rm.accounted += n
	if rm.budget.ElementLimit > 0 && rm.accounted > rm.budget.ElementLimit {
		return CostError{Msg: fmt.Sprintf("element limit exceeded: %d > %d", rm.accounted, rm.budget.ElementLimit)}
	}
	if rm.budget.MaxTimeout > 0 && now().Sub(rm.start) > rm.budget.MaxTimeout {
		return CostError{Msg: fmt.Sprintf("query timed out after %s", rm.budget.MaxTimeout)}
	}
	return nil
}

// Elements returns the running element-accounting total, for diagnostics.
func (rm *ResourceManager) Elements() int { return rm.accounted }

// now is a seam over time.Now so tests can swap the clock without the
// evaluator depending on wall time directly.
var now = time.Now
