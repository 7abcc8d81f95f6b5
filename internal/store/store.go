// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store holds the single process-wide Database snapshot described
// in the in-memory store design: one shared-owned snapshot, replaceable
// atomically, never torn under a running query.
package store

import (
	"sync/atomic"

	"github.com/memsqld/memsqld/internal/catalog"
)

// Store publishes a *catalog.Database snapshot behind an atomic pointer.
// Readers call Snapshot once per query; the returned pointer keeps that
// snapshot alive for the query's duration even if a reload publishes a
// newer one concurrently, since the avoiding-deadlock design note treats
// snapshot access as lock-free.
type Store struct {
	ptr atomic.Pointer[catalog.Database]
}

func New(initial *catalog.Database) *Store {
	s := &Store{}
	s.ptr.Store(initial)
	return s
}

// Snapshot returns the currently published Database. Safe for concurrent
// use; never blocks.
func (s *Store) Snapshot() *catalog.Database {
	return s.ptr.Load()
}

// Publish atomically replaces the snapshot. In-flight queries that already
// took a Snapshot() keep their old reference; only queries that call
// Snapshot() afterward observe the new one, per the ordering guarantees
// in the concurrency design.
func (s *Store) Publish(db *catalog.Database) {
	s.ptr.Store(db)
}
