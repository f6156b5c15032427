package areastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/geoql-project/geoql/pkg/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenAndMigrate(t *testing.T) {
	s := setupTestStore(t)

	_, ok, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "a fresh bookkeeping database should have no committed generation")
}

func TestCommitWritesShadowThenRenamesAndRecordsGeneration(t *testing.T) {
	s := setupTestStore(t)
	dir := t.TempDir()

	set := object.NewSet()
	set.Add(object.Object{Variant: object.VariantArea, ID: 1, Area: &object.Area{ID: 1, Tags: object.Tags{"name": "park"}}})
	set.Add(object.Object{Variant: object.VariantArea, ID: 2, Area: &object.Area{ID: 2, Tags: object.Tags{"name": "lake"}}})

	ctx := WithClock(context.Background(), func() string { return "2026-07-30T00:00:00Z" })
	gen, err := s.Commit(ctx, dir, "nightly", "2026-07-29T00:00:00Z", set)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.ObjectCount)
	assert.Equal(t, "2026-07-30T00:00:00Z", gen.CommittedAt)

	assert.FileExists(t, filepath.Join(dir, areaVersionFile))
	assert.NoFileExists(t, filepath.Join(dir, areaVersionShadowFile))

	latest, ok, err := s.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gen.ID, latest.ID)
	assert.Equal(t, "nightly", latest.Label)
}

func TestHistoryOrdersNewestFirstAndRespectsLimit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.RecordCommit(ctx, "gen-1", "base-1", "2026-07-28T00:00:00Z", 10)
	require.NoError(t, err)
	_, err = s.RecordCommit(ctx, "gen-2", "base-2", "2026-07-29T00:00:00Z", 20)
	require.NoError(t, err)

	hist, err := s.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "gen-2", hist[0].Label)
}

func TestAcquireWriteTokenRejectsConcurrentHolder(t *testing.T) {
	dir := t.TempDir()

	tok, err := AcquireWriteToken(dir)
	require.NoError(t, err)

	_, err = AcquireWriteToken(dir)
	assert.ErrorIs(t, err, ErrWriteTokenHeld)

	require.NoError(t, tok.Release())

	tok2, err := AcquireWriteToken(dir)
	require.NoError(t, err)
	require.NoError(t, tok2.Release())
}
