// Package store holds the currently-installed FlagSet behind an atomic
// pointer swap, giving resolvers a lock-free read path: readers never block
// on an install and vice versa, and a held snapshot stays valid across
// concurrent installs.
package store

import (
	"sync"

	"tailscale.com/syncs"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/parser"
)

// CachePurger is the subset of the resolution cache the store purges after
// every successful install. Defined here (rather than imported from
// internal/cache) to keep store decoupled from the cache's construction
// options.
type CachePurger interface {
	Purge()
}

// Store holds the current FlagSet snapshot and fans out StorageStateChange
// notifications to subscribers. The zero value is not usable; construct
// with New.
type Store struct {
	current syncs.AtomicValue[*flagmodel.FlagSet]
	cache   CachePurger

	installMu sync.Mutex // only one install proceeds at a time

	subsMu sync.Mutex
	subs   []chan flagmodel.StorageStateChange
}

// New returns a Store with an empty initial FlagSet installed and cache as
// the purge target for subsequent installs. cache may be nil in tests.
func New(cache CachePurger) *Store {
	s := &Store{cache: cache}
	s.current.Store(&flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{}})
	return s
}

// Snapshot returns the currently installed FlagSet. The returned pointer is
// never mutated in place, so callers may hold it across concurrent
// installs without synchronisation.
func (s *Store) Snapshot() *flagmodel.FlagSet {
	return s.current.Load()
}

// Install atomically replaces the current FlagSet, purges the cache, and
// notifies subscribers of the keys that changed.
func (s *Store) Install(next *flagmodel.FlagSet, syncMetadata map[string]any) {
	if next == nil {
		next = &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{}}
	}

	s.installMu.Lock()
	previous := s.current.Load()
	changed := parser.ChangedKeys(previous, next)
	s.current.Store(next)
	s.installMu.Unlock()

	if s.cache != nil {
		s.cache.Purge()
	}

	s.broadcast(flagmodel.StorageStateChange{
		State:        flagmodel.StorageOK,
		ChangedKeys:  changed,
		SyncMetadata: syncMetadata,
	})
}

// InstallError records a sync payload reporting a connector-side error.
// Neither the installed FlagSet nor the cache is touched; only a
// notification is emitted, so resolvers keep serving the last-known-good
// configuration.
func (s *Store) InstallError(syncMetadata map[string]any) {
	s.broadcast(flagmodel.StorageStateChange{
		State:        flagmodel.StorageError,
		SyncMetadata: syncMetadata,
	})
}

// Subscribe returns a channel of StorageStateChange notifications. The
// channel is buffered; while a subscriber's buffer is full, new
// notifications to it are dropped (the buffered ones are kept) rather than
// blocking Install.
func (s *Store) Subscribe() <-chan flagmodel.StorageStateChange {
	ch := make(chan flagmodel.StorageStateChange, 8)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()
	return ch
}

func (s *Store) broadcast(change flagmodel.StorageStateChange) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
		}
	}
}
