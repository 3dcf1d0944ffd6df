// Package lockfile provides advisory cross-process mutual exclusion built on
// exclusive-create lock files. A lock is a sibling of the state file it
// guards (state path plus ".lock") containing the owner pid and acquisition
// timestamp. Staleness is judged purely by the lock file's modification age:
// a lock older than the threshold is presumed abandoned by a crashed owner
// and reclaimed by the next acquirer. The recorded pid is diagnostic only;
// liveness-checking a pid cross-platform is unreliable, so the design accepts
// the small risk of reclaiming a lock from a very slow writer.
//
// Exclusion only holds between cooperating processes that use this package.
package lockfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/coordino/internal/errors"
	"github.com/Iron-Ham/coordino/internal/logging"
)

// Suffix appended to a state path to form its lock path.
const Suffix = ".lock"

// Defaults for the acquisition loop.
const (
	DefaultStaleThreshold = 10 * time.Second
	DefaultRetryInterval  = 50 * time.Millisecond
)

// Owner is the parsed content of a lock file.
type Owner struct {
	PID        int       // Process that created the lock
	AcquiredAt time.Time // Timestamp recorded at acquisition
}

// Manager acquires and releases lock files with bounded waits and
// stale-lock reclamation.
type Manager struct {
	staleThreshold time.Duration
	retryInterval  time.Duration
	now            func() time.Time
	logger         *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithStaleThreshold overrides the age past which a lock is reclaimable.
func WithStaleThreshold(d time.Duration) Option {
	return func(m *Manager) {
		m.staleThreshold = d
	}
}

// WithRetryInterval overrides the sleep between acquisition attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.retryInterval = d
	}
}

// WithClock injects a clock, so tests can control timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager. The logger may be nil; a no-op logger is
// substituted so lock paths never have to care.
func NewManager(logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NopLogger()
	}
	m := &Manager{
		staleThreshold: DefaultStaleThreshold,
		retryInterval:  DefaultRetryInterval,
		now:            time.Now,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LockPath returns the lock file path guarding the given state path.
func LockPath(path string) string {
	return path + Suffix
}

// Acquire attempts to take the lock guarding path, polling until the timeout
// budget is exhausted. It returns nil once the lock file was exclusively
// created. A fresh foreign lock still held when the budget runs out yields a
// TimeoutError satisfying errors.IsTimeout, or an ErrLockHeld wrap when the
// budget allowed no waiting at all; unexpected filesystem failures are
// returned wrapped. A lock file older than the stale threshold is deleted
// and the attempt retried immediately; reclaims are not charged against the
// timeout budget, so an abandoned lock never makes availability depend on
// the full wait.
//
// A non-nil return is not fatal to the caller: the protocol is advisory and
// callers may proceed unlocked, trading strict exclusion for availability.
func (m *Manager) Acquire(path string, timeout time.Duration) error {
	lockPath := LockPath(path)
	deadline := m.now().Add(timeout)

	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			// Lock content: "<pid>\n<acquisition-unix-ms>"
			content := fmt.Sprintf("%d\n%d", os.Getpid(), m.now().UnixMilli())
			if _, werr := f.WriteString(content); werr != nil {
				f.Close()
				os.Remove(lockPath)
				return fmt.Errorf("failed to write lock file %s: %w", lockPath, werr)
			}
			f.Close()
			return nil
		}

		if !os.IsExist(err) {
			// Permission failure or similar: abort, do not spin
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		info, statErr := os.Stat(lockPath)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				// Holder released between our create attempt and stat
				continue
			}
			return fmt.Errorf("failed to stat lock file: %w", statErr)
		}

		age := m.now().Sub(info.ModTime())
		if age > m.staleThreshold {
			oldPID := 0
			if owner, rerr := ReadOwner(path); rerr == nil {
				oldPID = owner.PID
			}
			if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
				return fmt.Errorf("failed to remove stale lock %s: %w", lockPath, rmErr)
			}
			m.logger.Warn("stale lock reclaimed",
				"path", lockPath,
				"age_ms", age.Milliseconds(),
				"old_pid", oldPID,
			)
			// Reclaim retries immediately, outside the wait budget
			continue
		}

		if m.now().After(deadline) {
			if timeout <= 0 {
				return fmt.Errorf("%s: %w", lockPath, errors.ErrLockHeld)
			}
			return errors.NewTimeoutError("acquire", lockPath, timeout)
		}
		time.Sleep(m.retryInterval)
	}
}

// Release removes the lock file guarding path. Absence of the lock is not an
// error, and any deletion failure is logged and swallowed: release typically
// runs in a deferred cleanup block and must never raise.
func (m *Manager) Release(path string) {
	lockPath := LockPath(path)
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("failed to release lock",
			"path", lockPath,
			"error", err.Error(),
		)
	}
}

// ReadOwner parses the lock file guarding path. Useful for diagnostics and
// for the CLI's status output; acquisition never depends on it.
func ReadOwner(path string) (*Owner, error) {
	data, err := os.ReadFile(LockPath(path))
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed lock file %s", LockPath(path))
	}

	pid, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("malformed lock pid: %w", err)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed lock timestamp: %w", err)
	}

	return &Owner{PID: pid, AcquiredAt: time.UnixMilli(ms)}, nil
}
