package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnAreaVersionRename(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	fired := make(chan struct{}, 1)
	go w.Run(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	shadow := filepath.Join(dir, "area_version.shadow")
	final := filepath.Join(dir, "area_version")
	require.NoError(t, os.WriteFile(shadow, []byte("{}"), 0o644))
	require.NoError(t, os.Rename(shadow, final))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire on area_version rename")
	}
}

func TestIsAreaVersionPathMatchesExactSuffixOnly(t *testing.T) {
	assert.True(t, isAreaVersionPath("/snapshot/areas/area_version"))
	assert.False(t, isAreaVersionPath("/snapshot/areas/area_version.shadow"))
	assert.False(t, isAreaVersionPath("/snapshot/areas/other"))
}
