package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Iron-Ham/coordino/internal/errors"
)

func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "coordino-ralph-state-s1.json")
}

func TestManager_Acquire_Free(t *testing.T) {
	m := NewManager(nil)
	path := statePath(t)

	if err := m.Acquire(path, time.Second); err != nil {
		t.Fatalf("Acquire on a free path should succeed: %v", err)
	}

	if _, err := os.Stat(LockPath(path)); err != nil {
		t.Fatalf("lock file missing after Acquire: %v", err)
	}
}

func TestManager_Acquire_RecordsOwner(t *testing.T) {
	m := NewManager(nil)
	path := statePath(t)

	before := time.Now().Add(-time.Second)
	if err := m.Acquire(path, time.Second); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	after := time.Now().Add(time.Second)

	owner, err := ReadOwner(path)
	if err != nil {
		t.Fatalf("ReadOwner failed: %v", err)
	}
	if owner.PID != os.Getpid() {
		t.Errorf("expected owner pid %d, got %d", os.Getpid(), owner.PID)
	}
	if owner.AcquiredAt.Before(before) || owner.AcquiredAt.After(after) {
		t.Errorf("acquisition timestamp %v outside [%v, %v]", owner.AcquiredAt, before, after)
	}
}

func TestManager_Acquire_HeldFreshLock_TimesOut(t *testing.T) {
	m := NewManager(nil, WithRetryInterval(10*time.Millisecond))
	path := statePath(t)

	// Simulate another live process holding the lock
	if err := os.WriteFile(LockPath(path), []byte("99999\n1000"), 0644); err != nil {
		t.Fatalf("failed to plant lock: %v", err)
	}

	start := time.Now()
	err := m.Acquire(path, 100*time.Millisecond)
	if err == nil {
		t.Fatal("Acquire should time out against a fresh lock")
	}
	elapsed := time.Since(start)
	if elapsed < 100*time.Millisecond {
		t.Errorf("Acquire returned before budget elapsed: %v", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("Acquire took far longer than budget: %v", elapsed)
	}

	if !errors.IsTimeout(err) {
		t.Errorf("exhausted budget should classify as a timeout: %v", err)
	}
	var te *errors.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected a TimeoutError, got %T", err)
	}
	if te.Timeout != 100*time.Millisecond {
		t.Errorf("TimeoutError should carry the budget, got %v", te.Timeout)
	}
}

// TestManager_Acquire_StaleReclaim is the reclaim-latency scenario: a lock
// whose mtime is 20s in the past must be reclaimed within roughly one retry
// interval, not after the full 5s timeout.
func TestManager_Acquire_StaleReclaim(t *testing.T) {
	m := NewManager(nil)
	path := statePath(t)

	if err := os.WriteFile(LockPath(path), []byte("99999\n1000"), 0644); err != nil {
		t.Fatalf("failed to plant lock: %v", err)
	}
	old := time.Now().Add(-20 * time.Second)
	if err := os.Chtimes(LockPath(path), old, old); err != nil {
		t.Fatalf("failed to age lock: %v", err)
	}

	start := time.Now()
	if err := m.Acquire(path, 5*time.Second); err != nil {
		t.Fatalf("Acquire should reclaim a stale lock: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("stale reclaim took %v, expected well under the timeout", elapsed)
	}

	// The reclaimer now owns the lock under its own pid
	owner, err := ReadOwner(path)
	if err != nil {
		t.Fatalf("ReadOwner failed: %v", err)
	}
	if owner.PID != os.Getpid() {
		t.Errorf("expected reclaimed lock owned by pid %d, got %d", os.Getpid(), owner.PID)
	}
}

// Staleness is judged by file age alone. A lock recording a live pid is
// still reclaimed once its mtime passes the threshold.
func TestManager_Acquire_StalenessIgnoresPid(t *testing.T) {
	m := NewManager(nil, WithStaleThreshold(time.Second))
	path := statePath(t)

	content := fmt.Sprintf("%d\n%d", os.Getpid(), time.Now().UnixMilli())
	if err := os.WriteFile(LockPath(path), []byte(content), 0644); err != nil {
		t.Fatalf("failed to plant lock: %v", err)
	}
	old := time.Now().Add(-5 * time.Second)
	if err := os.Chtimes(LockPath(path), old, old); err != nil {
		t.Fatalf("failed to age lock: %v", err)
	}

	if err := m.Acquire(path, 2*time.Second); err != nil {
		t.Fatalf("aged lock should be reclaimed regardless of recorded pid: %v", err)
	}
}

func TestManager_Acquire_AfterRelease(t *testing.T) {
	m := NewManager(nil, WithRetryInterval(10*time.Millisecond))
	path := statePath(t)

	if err := m.Acquire(path, time.Second); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		m.Release(path)
	}()

	if err := m.Acquire(path, 2*time.Second); err != nil {
		t.Fatalf("Acquire should succeed once the holder releases: %v", err)
	}
}

func TestManager_Release_RemovesLock(t *testing.T) {
	m := NewManager(nil)
	path := statePath(t)

	if err := m.Acquire(path, time.Second); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	m.Release(path)

	if _, err := os.Stat(LockPath(path)); !os.IsNotExist(err) {
		t.Error("lock file should be gone after Release")
	}
}

func TestManager_Release_AbsentLock(t *testing.T) {
	m := NewManager(nil)
	path := statePath(t)

	// Must not panic or log an error-level entry
	m.Release(path)
	m.Release(path)
}

func TestManager_Acquire_ZeroTimeout_SingleAttempt(t *testing.T) {
	m := NewManager(nil)
	path := statePath(t)

	if err := m.Acquire(path, 0); err != nil {
		t.Fatalf("zero timeout should still allow one attempt on a free path: %v", err)
	}
}

// A zero budget against a fresh foreign lock reports the lock as held
// rather than as a wait that timed out.
func TestManager_Acquire_ZeroTimeout_HeldLock(t *testing.T) {
	m := NewManager(nil)
	path := statePath(t)

	if err := os.WriteFile(LockPath(path), []byte("99999\n1000"), 0644); err != nil {
		t.Fatalf("failed to plant lock: %v", err)
	}

	err := m.Acquire(path, 0)
	if err == nil {
		t.Fatal("Acquire with no budget should fail against a held lock")
	}
	if !errors.Is(err, errors.ErrLockHeld) {
		t.Errorf("expected ErrLockHeld, got %v", err)
	}
	if errors.IsTimeout(err) {
		t.Errorf("a no-wait attempt must not classify as a timeout: %v", err)
	}
}

func TestLockPath(t *testing.T) {
	if got := LockPath("/tmp/coordino-x-s1.json"); got != "/tmp/coordino-x-s1.json.lock" {
		t.Errorf("unexpected lock path: %s", got)
	}
}

func TestReadOwner_Malformed(t *testing.T) {
	path := statePath(t)

	if err := os.WriteFile(LockPath(path), []byte("not a lock"), 0644); err != nil {
		t.Fatalf("failed to plant lock: %v", err)
	}

	if _, err := ReadOwner(path); err == nil {
		t.Error("ReadOwner should reject malformed content")
	}
}

func TestReadOwner_Missing(t *testing.T) {
	if _, err := ReadOwner(statePath(t)); err == nil {
		t.Error("ReadOwner should fail when no lock exists")
	}
}
