package store

import (
	"testing"
	"time"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
)

type fakePurger struct {
	purged int
}

func (p *fakePurger) Purge() { p.purged++ }

func TestStore_SnapshotInitiallyEmpty(t *testing.T) {
	s := New(nil)
	snap := s.Snapshot()
	if snap == nil || len(snap.Flags) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", snap)
	}
}

func TestStore_InstallReplacesSnapshotAndPurgesCache(t *testing.T) {
	purger := &fakePurger{}
	s := New(purger)

	next := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"a": {Key: "a", State: flagmodel.StateEnabled},
	}}
	s.Install(next, map[string]any{"source": "test"})

	if got := s.Snapshot(); got != next {
		t.Fatalf("expected Snapshot to return the installed pointer")
	}
	if purger.purged != 1 {
		t.Fatalf("expected cache purge once, got %d", purger.purged)
	}
}

func TestStore_InstallNotifiesSubscribersWithChangedKeys(t *testing.T) {
	s := New(nil)
	ch := s.Subscribe()

	next := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"a": {Key: "a", State: flagmodel.StateEnabled},
	}}
	s.Install(next, nil)

	select {
	case change := <-ch:
		if change.State != flagmodel.StorageOK {
			t.Fatalf("got state %v, want OK", change.State)
		}
		if len(change.ChangedKeys) != 1 || change.ChangedKeys[0] != "a" {
			t.Fatalf("got changed keys %v, want [a]", change.ChangedKeys)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestStore_InstallErrorRetainsPreviousSnapshot(t *testing.T) {
	purger := &fakePurger{}
	s := New(purger)

	first := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"a": {Key: "a", State: flagmodel.StateEnabled},
	}}
	s.Install(first, nil)
	purger.purged = 0

	ch := s.Subscribe()
	s.InstallError(map[string]any{"reason": "upstream unavailable"})

	if got := s.Snapshot(); got != first {
		t.Fatalf("expected snapshot to remain the previous FlagSet after an error")
	}
	if purger.purged != 0 {
		t.Fatalf("expected no cache purge on error, got %d", purger.purged)
	}

	select {
	case change := <-ch:
		if change.State != flagmodel.StorageError {
			t.Fatalf("got state %v, want ERROR", change.State)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error notification")
	}
}

func TestStore_SlowSubscriberDoesNotBlockInstall(t *testing.T) {
	s := New(nil)
	_ = s.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			s.Install(&flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{}}, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Install blocked on a slow/undrained subscriber")
	}
}
