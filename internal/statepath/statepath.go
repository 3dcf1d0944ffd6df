// Package statepath computes deterministic, session-scoped state-file paths
// and implements the legacy-compatibility migration policy.
//
// Session-scoped state lives at
// <scratch-dir>/<namespace>-<baseName>-<sessionID>.json; state written
// before session isolation was adopted lives at the legacy path
// <scratch-dir>/<namespace>-<baseName>.json. A legacy file that is still
// recently touched is preferred for a grace window so sessions started
// before the isolation change keep finding their state; after the window,
// new sessions use session-scoped paths exclusively.
package statepath

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/coordino/internal/logging"
)

// SessionEnvVar is the environment variable consulted for an explicit
// session-identifier override, read once per process.
const SessionEnvVar = "COORDINO_SESSION_ID"

// Defaults for path construction.
const (
	DefaultNamespace   = "coordino"
	DefaultExt         = ".json"
	DefaultGraceWindow = time.Hour

	// maxSessionIDLen bounds sanitized session identifiers so composed
	// file names stay well inside filesystem name limits.
	maxSessionIDLen = 64
)

var (
	envSessionOnce sync.Once
	envSessionID   string
)

// envSession returns the process-startup value of SessionEnvVar.
// Later mutations of the environment are deliberately not observed, so a
// session's identity is stable for the process lifetime.
func envSession() string {
	envSessionOnce.Do(func() {
		envSessionID = os.Getenv(SessionEnvVar)
	})
	return envSessionID
}

// ResolveSessionID returns the session identifier for this process:
// the override if given, else the environment-provided id, else a composite
// of the sanitized hostname and the process id. Deterministic for the
// lifetime of the process.
func ResolveSessionID(override string) string {
	if override != "" {
		return SanitizeSessionID(override)
	}
	if env := envSession(); env != "" {
		return SanitizeSessionID(env)
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return SanitizeSessionID(fmt.Sprintf("%s-%d", host, os.Getpid()))
}

// SanitizeSessionID maps an arbitrary identifier to a filesystem-safe,
// length-bounded one. Characters outside [A-Za-z0-9._-] become '-'.
func SanitizeSessionID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	s := b.String()
	if len(s) > maxSessionIDLen {
		s = s[:maxSessionIDLen]
	}
	if s == "" {
		s = "default"
	}
	return s
}

// Resolver computes state-file paths under a fixed scratch directory.
type Resolver struct {
	scratchDir  string
	namespace   string
	ext         string
	graceWindow time.Duration
	now         func() time.Time
	logger      *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNamespace overrides the product namespace prefixed to file names.
func WithNamespace(ns string) Option {
	return func(r *Resolver) {
		r.namespace = ns
	}
}

// WithExt overrides the state-file extension (including the dot).
func WithExt(ext string) Option {
	return func(r *Resolver) {
		r.ext = ext
	}
}

// WithGraceWindow overrides how long a legacy file remains preferred.
func WithGraceWindow(d time.Duration) Option {
	return func(r *Resolver) {
		r.graceWindow = d
	}
}

// WithClock injects a clock, so tests can control mtime comparisons.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a Resolver rooted at scratchDir. An empty scratchDir
// falls back to the OS temp directory. The logger may be nil.
func NewResolver(scratchDir string, logger *logging.Logger, opts ...Option) *Resolver {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	r := &Resolver{
		scratchDir:  scratchDir,
		namespace:   DefaultNamespace,
		ext:         DefaultExt,
		graceWindow: DefaultGraceWindow,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ScratchDir returns the directory all state files live under.
func (r *Resolver) ScratchDir() string {
	return r.scratchDir
}

// SessionPath returns the session-scoped path for baseName. Pure function;
// no I/O is performed.
func (r *Resolver) SessionPath(baseName, sessionID string) string {
	name := fmt.Sprintf("%s-%s-%s%s", r.namespace, baseName, SanitizeSessionID(sessionID), r.ext)
	return filepath.Join(r.scratchDir, name)
}

// LegacyPath returns the pre-session-isolation path for baseName.
func (r *Resolver) LegacyPath(baseName string) string {
	name := fmt.Sprintf("%s-%s%s", r.namespace, baseName, r.ext)
	return filepath.Join(r.scratchDir, name)
}

// ResolveWithMigration decides where subsequent I/O for (baseName,
// sessionID) should target. An existing session-scoped file always wins.
// Otherwise a legacy file modified within the grace window is preferred, so
// sessions that started before session isolation keep their state. New
// sessions get the session-scoped path. Never performs writes.
func (r *Resolver) ResolveWithMigration(baseName, sessionID string) string {
	sessionPath := r.SessionPath(baseName, sessionID)
	if _, err := os.Stat(sessionPath); err == nil {
		return sessionPath
	}

	legacyPath := r.LegacyPath(baseName)
	if info, err := os.Stat(legacyPath); err == nil {
		if age := r.now().Sub(info.ModTime()); age <= r.graceWindow {
			r.logger.Info("using legacy state path within grace window",
				"base", baseName,
				"path", legacyPath,
				"age_ms", age.Milliseconds(),
			)
			return legacyPath
		}
	}

	return sessionPath
}

// SweepStale deletes session-scoped files for baseName whose modification
// age exceeds maxAge and returns the count actually removed. Best-effort:
// enumeration and deletion errors are swallowed, never raised.
//
// Base names must not be prefixes of one another: '-' delimits both the
// base and the session id in file names, so sweeping "ralph" would also
// match "ralph-state" files and delete that base's state.
func (r *Resolver) SweepStale(baseName string, maxAge time.Duration) int {
	removed := 0
	for _, m := range r.scanSessions(baseName) {
		if r.now().Sub(m.modTime) <= maxAge {
			continue
		}
		if err := os.Remove(m.path); err != nil {
			r.logger.Warn("failed to sweep stale state file",
				"path", m.path,
				"error", err.Error(),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		r.logger.Info("swept stale state files",
			"base", baseName,
			"removed", removed,
		)
	}
	return removed
}

// ListActive returns the session identifiers of baseName's session-scoped
// files modified within ttl, sorted for deterministic output. Collaborators
// use this to detect concurrently active peers. Enumeration errors yield an
// empty result.
//
// As with SweepStale, a base name that is a prefix of another base also
// enumerates that base's files, with the remainder parsed into the session
// id. Keep base names prefix-free.
func (r *Resolver) ListActive(baseName string, ttl time.Duration) []string {
	var ids []string
	for _, m := range r.scanSessions(baseName) {
		if r.now().Sub(m.modTime) <= ttl {
			ids = append(ids, m.sessionID)
		}
	}
	sort.Strings(ids)
	return ids
}

// sessionFile is one enumerated session-scoped state file.
type sessionFile struct {
	path      string
	sessionID string
	modTime   time.Time
}

// scanSessions enumerates baseName's session-scoped files. Errors are
// swallowed and yield an empty slice; this component never aborts a caller.
func (r *Resolver) scanSessions(baseName string) []sessionFile {
	entries, err := os.ReadDir(r.scratchDir)
	if err != nil {
		return nil
	}

	prefix := fmt.Sprintf("%s-%s-", r.namespace, baseName)

	var files []sessionFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, r.ext) {
			continue
		}
		sid := strings.TrimSuffix(strings.TrimPrefix(name, prefix), r.ext)
		if sid == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, sessionFile{
			path:      filepath.Join(r.scratchDir, name),
			sessionID: sid,
			modTime:   info.ModTime(),
		})
	}
	return files
}
