package areastore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/geoql-project/geoql/pkg/object"
)

// snapshotElem is one entry of the committed area_version file, carrying
// the type/id/tags fields of pkg/output's extract element shape. The file
// is a bare JSON array of these entries, not an extract document, so
// internal/store/memory's LoadJSON does not read it back.
type snapshotElem struct {
	Type string            `json:"type"`
	ID   uint64            `json:"id"`
	Tags map[string]string `json:"tags,omitempty"`
}

const (
	areaVersionFile       = "area_version"
	areaVersionShadowFile = "area_version.shadow"
)

// Commit writes set to dir as the new area snapshot, using the
// shadow-file-then-rename sequence the dispatcher protocol requires: the
// full contents land at area_version.shadow first, and only a successful
// rename exposes them at area_version, so a reader opening area_version
// mid-write either sees the previous complete generation or the new one,
// never a partial file. On success it records the commit in s and returns
// the assigned generation.
func (s *Store) Commit(ctx context.Context, dir, label, baseTS string, set *object.Set) (Generation, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Generation{}, fmt.Errorf("areastore: create area dir: %w", err)
	}

	shadowPath := filepath.Join(dir, areaVersionShadowFile)
	finalPath := filepath.Join(dir, areaVersionFile)

	count, err := writeShadow(shadowPath, set)
	if err != nil {
		return Generation{}, err
	}
	if err := os.Rename(shadowPath, finalPath); err != nil {
		return Generation{}, fmt.Errorf("areastore: commit area snapshot: %w", err)
	}

	committedAt := nowRFC3339(ctx)
	id, err := s.RecordCommit(ctx, label, baseTS, committedAt, count)
	if err != nil {
		return Generation{}, err
	}
	return Generation{ID: id, Label: label, BaseTS: baseTS, CommittedAt: committedAt, ObjectCount: count}, nil
}

func writeShadow(path string, set *object.Set) (int, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("areastore: open shadow file: %w", err)
	}
	defer func() { _ = f.Close() }()

	elems := make([]snapshotElem, 0, set.Len())
	set.Each(func(o object.Object) {
		elems = append(elems, snapshotElem{Type: o.Variant.String(), ID: uint64(o.ID), Tags: o.Tags()})
	})

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(elems); err != nil {
		return 0, fmt.Errorf("areastore: write shadow file: %w", err)
	}
	return len(elems), nil
}

// nowRFC3339 is a seam the dispatcher's caller can override in tests by
// passing a context carrying a fixed clock (see WithClock); without one it
// falls back to realClock, the current UTC time in RFC 3339 form.
func nowRFC3339(ctx context.Context) string {
	if v, ok := ctx.Value(clockKey{}).(func() string); ok {
		return v()
	}
	return realClock()
}

type clockKey struct{}

// WithClock overrides the commit timestamp source for tests; production
// callers never need it.
func WithClock(ctx context.Context, clock func() string) context.Context {
	return context.WithValue(ctx, clockKey{}, clock)
}
