package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestWatcherDeliversReloadedCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	writeCatalogFile(t, path, validYAML)

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// Shrink the catalog to a single location and wait for the reload.
	smaller := `
categories:
  - name: service
    commands: ["systemctl restart {target}"]
locations: [local]
mutators: [{name: plain, kind: none}]
tiers: [{name: restart, level: 0}]
`
	writeCatalogFile(t, path, smaller)

	select {
	case cat := <-w.Updates():
		require.Equal(t, 1, cat.SpaceSize())
	case <-time.After(5 * time.Second):
		t.Fatal("no catalog update received")
	}
}

func TestWatcherDropsInvalidUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	writeCatalogFile(t, path, validYAML)

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	writeCatalogFile(t, path, "categories: []\n")

	select {
	case <-w.Updates():
		t.Fatal("invalid catalog should not be delivered")
	case <-time.After(500 * time.Millisecond):
	}
}
