package state

import (
	"reflect"
	"testing"
	"time"
)

// fakeClock lets tests advance time explicitly instead of sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func TestActiveSessionCache_ServesCachedListing(t *testing.T) {
	c := newTestCoordinator(t)
	clock := &fakeClock{t: time.Now()}
	cache := NewActiveSessionCache(c, 30*time.Second, WithCacheClock(clock.now))

	c.Write("ralph", "ralph-state", "s1", validRalph())

	first := cache.Sessions("ralph-state", time.Minute)
	if !reflect.DeepEqual(first, []string{"s1"}) {
		t.Fatalf("expected [s1], got %v", first)
	}

	// A new session appears, but the cache entry is still fresh
	c.Write("ralph", "ralph-state", "s2", validRalph())

	second := cache.Sessions("ralph-state", time.Minute)
	if !reflect.DeepEqual(second, []string{"s1"}) {
		t.Errorf("fresh cache entry should be served, got %v", second)
	}
}

func TestActiveSessionCache_ExpiresWithClock(t *testing.T) {
	c := newTestCoordinator(t)
	clock := &fakeClock{t: time.Now()}
	cache := NewActiveSessionCache(c, 30*time.Second, WithCacheClock(clock.now))

	c.Write("ralph", "ralph-state", "s1", validRalph())
	cache.Sessions("ralph-state", time.Minute)

	c.Write("ralph", "ralph-state", "s2", validRalph())
	clock.advance(31 * time.Second)

	got := cache.Sessions("ralph-state", time.Minute)
	if !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Errorf("expired cache should rescan, got %v", got)
	}
}

func TestActiveSessionCache_Invalidate(t *testing.T) {
	c := newTestCoordinator(t)
	clock := &fakeClock{t: time.Now()}
	cache := NewActiveSessionCache(c, time.Hour, WithCacheClock(clock.now))

	c.Write("ralph", "ralph-state", "s1", validRalph())
	cache.Sessions("ralph-state", time.Minute)

	c.Write("ralph", "ralph-state", "s2", validRalph())
	cache.Invalidate("ralph-state")

	got := cache.Sessions("ralph-state", time.Minute)
	if !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Errorf("invalidated cache should rescan, got %v", got)
	}
}

// A caller mutating the returned slice must not corrupt the cached listing.
func TestActiveSessionCache_ReturnedSliceIsolated(t *testing.T) {
	c := newTestCoordinator(t)
	clock := &fakeClock{t: time.Now()}
	cache := NewActiveSessionCache(c, time.Hour, WithCacheClock(clock.now))

	c.Write("ralph", "ralph-state", "s1", validRalph())

	first := cache.Sessions("ralph-state", time.Minute)
	if !reflect.DeepEqual(first, []string{"s1"}) {
		t.Fatalf("expected [s1], got %v", first)
	}
	first[0] = "mutated"

	second := cache.Sessions("ralph-state", time.Minute)
	if !reflect.DeepEqual(second, []string{"s1"}) {
		t.Errorf("cached listing was corrupted by caller mutation: %v", second)
	}
}

func TestActiveSessionCache_PerBaseEntries(t *testing.T) {
	c := newTestCoordinator(t)
	clock := &fakeClock{t: time.Now()}
	cache := NewActiveSessionCache(c, time.Hour, WithCacheClock(clock.now))

	c.Write("ralph", "ralph-state", "s1", validRalph())
	c.Write("maestro", "maestro-progress", "s9", map[string]any{
		"phase":     "execution",
		"updatedAt": float64(1),
	})

	if got := cache.Sessions("ralph-state", time.Minute); !reflect.DeepEqual(got, []string{"s1"}) {
		t.Errorf("ralph-state listing wrong: %v", got)
	}
	if got := cache.Sessions("maestro-progress", time.Minute); !reflect.DeepEqual(got, []string{"s9"}) {
		t.Errorf("maestro-progress listing wrong: %v", got)
	}
}
