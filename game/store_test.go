package game

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); err != ErrSessionNotFound {
		t.Errorf("Get(missing) err = %v, want ErrSessionNotFound", err)
	}

	now := time.Now()
	sess := &Session{ID: "s1", GameData: &GameData{Disease: "sepsis"}, StartedAt: now, UpdatedAt: now}
	if err := s.Put(ctx, sess); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.GameData.Disease != "sepsis" {
		t.Errorf("unexpected session: %+v", got)
	}
	if n, _ := s.Len(ctx); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "s1"); err != ErrSessionNotFound {
		t.Errorf("Get after delete err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	stale := &Session{ID: "stale", UpdatedAt: time.Now().Add(-2 * time.Minute)}
	fresh := &Session{ID: "fresh", UpdatedAt: time.Now()}
	_ = s.Put(ctx, stale)
	_ = s.Put(ctx, fresh)

	s.sweep(time.Now())

	if _, err := s.Get(ctx, "stale"); err != ErrSessionNotFound {
		t.Error("stale session should be evicted")
	}
	if _, err := s.Get(ctx, "fresh"); err != nil {
		t.Errorf("fresh session evicted: %v", err)
	}
}
