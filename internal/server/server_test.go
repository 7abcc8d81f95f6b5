package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocConnIDIncrements(t *testing.T) {
	s := New(Config{}, store.New(catalog.NewDatabase("d", nil)), nil)
	assert.EqualValues(t, 1, s.allocConnID())
	assert.EqualValues(t, 2, s.allocConnID())
}

func TestNewDefaultsMaxConnections(t *testing.T) {
	s := New(Config{MaxConnections: 0}, store.New(catalog.NewDatabase("d", nil)), nil)
	assert.EqualValues(t, 10, s.cfg.MaxConnections, "want the spec's default concurrency cap")
}

func TestServeStopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Config{}, store.New(catalog.NewDatabase("d", nil)), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, []Listener{{Net: ln, Protocol: ProtocolPostgres}})
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after context cancellation")
	}
}
