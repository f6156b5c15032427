package eval

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// readTokenGate dedupes the "acquire a read token, open the backend's
// indices" phase the dispatcher protocol requires (§5) across queries that
// start concurrently against the same snapshot generation: instead of each
// one paying its own index-open cost, concurrent callers for the same
// generation key share a single in-flight open.
var readTokenGate singleflight.Group

// acquireReadToken runs open (the backend's per-generation handshake cost)
// at most once per concurrently-requested generation, fanning its result
// out to every caller that asked for the same generation while it was in
// flight — singleflight.Group only runs the function for the "leader"
// call, so the result must come back through the return value, not
// through variables open's closure captured.
func acquireReadToken(_ context.Context, generation string, open func() (any, error)) (any, error) {
	v, err, _ := readTokenGate.Do(generation, open)
	return v, err
}
