// Package server is the Connection Supervisor: the accept-loop-feeds-
// per-connection-goroutine shape MatrixOne's MOServer.startAcceptLoop
// and RoutineManager pairing use (one goroutine per accepted net.Conn,
// retried with an exponential backoff on a temporary Accept error),
// generalized to dispatch either protocol family off one or more
// listeners and bounded by a configurable concurrency cap.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/memsqld/memsqld/internal/mysqlwire"
	"github.com/memsqld/memsqld/internal/pgwire"
	"github.com/memsqld/memsqld/internal/store"
)

// Protocol names one listener's wire family.
type Protocol int

const (
	ProtocolPostgres Protocol = iota
	ProtocolMySQL
)

// Listener pairs a bound net.Listener with the wire protocol connections
// accepted on it should speak.
type Listener struct {
	Net      net.Listener
	Protocol Protocol
}

// Config is the supervisor's tunables, bound from the CLI/config layer.
type Config struct {
	// MaxConnections caps the number of simultaneously served
	// connections across every listener; an accept beyond the cap
	// blocks until a slot frees up, per the concurrency design's
	// "over-cap accepts wait" rule.
	MaxConnections int64
	PgCreds        pgwire.Creds
	MysqlCreds     mysqlwire.Creds
}

// Supervisor runs the accept loops and tracks in-flight connections so
// Shutdown can wait for them to drain.
type Supervisor struct {
	cfg Config
	st  *store.Store
	log *zap.Logger
	sem *semaphore.Weighted

	wg        sync.WaitGroup
	nextConnID uint32
	mu        sync.Mutex
}

func New(cfg Config, st *store.Store, log *zap.Logger) *Supervisor {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 10
	}
	return &Supervisor{
		cfg: cfg,
		st:  st,
		log: log,
		sem: semaphore.NewWeighted(cfg.MaxConnections),
	}
}

// Serve runs every listener's accept loop until ctx is canceled, then
// closes the listeners and waits for in-flight connections to finish.
func (s *Supervisor) Serve(ctx context.Context, listeners []Listener) error {
	for _, l := range listeners {
		s.wg.Add(1)
		go s.acceptLoop(ctx, l)
	}

	<-ctx.Done()
	for _, l := range listeners {
		_ = l.Net.Close()
	}
	s.wg.Wait()
	return nil
}

func (s *Supervisor) acceptLoop(ctx context.Context, l Listener) {
	defer s.wg.Done()

	var backoff time.Duration
	for {
		conn, err := l.Net.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return // listener closed as part of shutdown
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if backoff == 0 {
					backoff = 5 * time.Millisecond
				} else {
					backoff *= 2
				}
				if max := time.Second; backoff > max {
					backoff = max
				}
				time.Sleep(backoff)
				continue
			}
			if s.log != nil {
				s.log.Error("accept failed, stopping listener", zap.Error(err))
			}
			return
		}
		backoff = 0

		if err := s.sem.Acquire(ctx, 1); err != nil {
			_ = conn.Close()
			return // context canceled while waiting for a connection slot
		}

		connID := s.allocConnID()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			defer func() { _ = conn.Close() }()
			s.handleConn(ctx, conn, connID, l.Protocol)
		}()
	}
}

func (s *Supervisor) allocConnID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextConnID++
	return s.nextConnID
}

func (s *Supervisor) handleConn(ctx context.Context, conn net.Conn, connID uint32, proto Protocol) {
	var err error
	switch proto {
	case ProtocolPostgres:
		err = pgwire.Serve(ctx, conn, int32(connID), s.cfg.PgCreds, s.st, s.log)
	case ProtocolMySQL:
		err = mysqlwire.Serve(ctx, conn, connID, s.cfg.MysqlCreds, s.st, s.log)
	}
	if err != nil && s.log != nil {
		s.log.Debug("connection ended with error", zap.Uint32("conn_id", connID), zap.Error(err))
	}
}
