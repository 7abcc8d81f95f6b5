package docloader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))
	return path
}

func TestLoadPublishesSnapshot(t *testing.T) {
	path := writeSample(t, t.TempDir())
	st := store.New(catalog.NewDatabase("", nil))

	require.NoError(t, Load(context.Background(), path, st))
	db := st.Snapshot()
	assert.Equal(t, "shop", db.Name)
	_, ok := db.Table("users")
	assert.True(t, ok, "Snapshot() should contain the users table")
}

func TestLoadMissingFileErrors(t *testing.T) {
	st := store.New(catalog.NewDatabase("", nil))
	err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), st)
	assert.Error(t, err, "Load() on a missing file should error")
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)
	st := store.New(catalog.NewDatabase("", nil))
	require.NoError(t, Load(context.Background(), path, st))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan error, 1)
	go func() { watchDone <- Watch(ctx, path, st, nil) }()

	time.Sleep(50 * time.Millisecond) // let the watcher finish registering dir

	// A different database name shows the snapshot came from the rewrite.
	updated := strings.Replace(sampleDoc, "name: shop", "name: shop_v2", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		db := st.Snapshot()
		if db.Name == "shop_v2" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Watch did not reload the document in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-watchDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after context cancellation")
	}
}
