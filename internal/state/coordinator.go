// Package state composes path resolution, advisory locking, atomic writes,
// and schema validation into the two operations external collaborators use:
// Read and Write. Every failure mode degrades rather than propagates: reads
// return nil, writes fall back to unlocked-but-atomic, and the details land
// in the log. Losing a piece of optional cached state is preferable to
// crashing a caller mid-workflow.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Iron-Ham/coordino/internal/atomicfile"
	"github.com/Iron-Ham/coordino/internal/config"
	"github.com/Iron-Ham/coordino/internal/errors"
	"github.com/Iron-Ham/coordino/internal/lockfile"
	"github.com/Iron-Ham/coordino/internal/logging"
	"github.com/Iron-Ham/coordino/internal/schema"
	"github.com/Iron-Ham/coordino/internal/statepath"
)

// statePerm is the mode of every state file this layer creates.
const statePerm = os.FileMode(0644)

// Coordinator is the entry point for reading and writing session-scoped
// state. It is safe for concurrent use; the unit of contention it manages
// is the OS process, not the goroutine.
type Coordinator struct {
	resolver     *statepath.Resolver
	locks        *lockfile.Manager
	schemas      *schema.Registry
	logger       *logging.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// New creates a Coordinator wired from configuration. The logger may be nil.
func New(cfg *config.Config, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NopLogger()
	}

	resolver := statepath.NewResolver(cfg.Paths.ScratchDir, logger,
		statepath.WithNamespace(cfg.Paths.Namespace),
		statepath.WithExt(cfg.Paths.Extension),
		statepath.WithGraceWindow(cfg.LegacyGraceWindow()),
	)
	locks := lockfile.NewManager(logger,
		lockfile.WithStaleThreshold(cfg.StaleThreshold()),
		lockfile.WithRetryInterval(cfg.RetryInterval()),
	)

	return &Coordinator{
		resolver:     resolver,
		locks:        locks,
		schemas:      schema.NewRegistry(logger),
		logger:       logger,
		readTimeout:  cfg.ReadTimeout(),
		writeTimeout: cfg.WriteTimeout(),
	}
}

// Resolver exposes the path resolver for collaborators that need raw paths
// (the CLI's status output, the scratch-dir watcher).
func (c *Coordinator) Resolver() *statepath.Resolver {
	return c.resolver
}

// Schemas exposes the schema registry so collaborators can register
// contracts for their own state kinds.
func (c *Coordinator) Schemas() *schema.Registry {
	return c.schemas
}

// Read returns the validated state record for (kind, baseName, sessionID),
// or nil if no usable state exists. The path is resolved with legacy
// migration; the lock is best-effort with the read timeout, and a failed
// acquisition degrades to an unlocked read. A missing file, unreadable
// content, or a schema violation all yield nil, with diagnostics logged.
func (c *Coordinator) Read(kind, baseName, sessionID string) map[string]any {
	sid := statepath.ResolveSessionID(sessionID)
	path := c.resolver.ResolveWithMigration(baseName, sid)

	record, err := c.load(kind, path)
	if err == nil {
		return record
	}
	switch {
	case errors.Is(err, errors.ErrStateNotFound):
		// Absent state is the common case, not a diagnostic.
	case errors.IsValidation(err), errors.Is(err, errors.ErrUnknownKind):
		// Field-level diagnostics were logged at the validation site.
	default:
		c.logger.Warn("state read degraded",
			"kind", kind,
			"path", path,
			"error", err.Error(),
		)
	}
	return nil
}

// load performs the locked read-and-validate for one resolved path,
// classifying each failure through the error taxonomy.
func (c *Coordinator) load(kind, path string) (map[string]any, error) {
	if lockErr := c.locks.Acquire(path, c.readTimeout); lockErr == nil {
		defer c.locks.Release(path)
	} else {
		c.logger.Warn("reading without lock",
			"kind", kind,
			"path", path,
			"error", lockErr.Error(),
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("state file is not valid JSON: %w", err)
	}

	valid, violation := c.schemas.Validate(kind, record)
	if violation != nil {
		return nil, violation.Err()
	}
	return valid, nil
}

// Write persists content for (kind, baseName, sessionID). Writes always
// target the session-scoped path so new session data never silently lands
// in a legacy file. The lock is best-effort with the write timeout; when it
// cannot be obtained the write still proceeds unlocked, since an atomic
// unlocked write is preferred over losing the update entirely. Failures are
// logged, never raised.
func (c *Coordinator) Write(kind, baseName, sessionID string, content map[string]any) {
	sid := statepath.ResolveSessionID(sessionID)
	path := c.resolver.SessionPath(baseName, sid)

	locked := false
	switch lockErr := c.locks.Acquire(path, c.writeTimeout); {
	case lockErr == nil:
		locked = true
	case errors.IsTimeout(lockErr) || errors.Is(lockErr, errors.ErrLockHeld):
		// Contention is expected under the advisory protocol.
		c.logger.Warn("state write proceeding unlocked",
			"kind", kind,
			"path", path,
			"error", lockErr.Error(),
		)
	default:
		c.logger.Error("lock protocol failure, state write proceeding unlocked",
			"kind", kind,
			"path", path,
			"error", lockErr.Error(),
		)
	}
	defer func() {
		if locked {
			c.locks.Release(path)
		}
	}()

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		c.logger.Error("failed to marshal state",
			"kind", kind,
			"path", path,
			"error", err.Error(),
		)
		return
	}

	if err := atomicfile.Write(path, data, statePerm); err != nil {
		c.logger.Error("failed to write state file",
			"kind", kind,
			"path", path,
			"error", err.Error(),
		)
	}
}

// ListActiveSessions returns the session identifiers with state for
// baseName modified within ttl.
func (c *Coordinator) ListActiveSessions(baseName string, ttl time.Duration) []string {
	return c.resolver.ListActive(baseName, ttl)
}

// SweepStale removes session-scoped state for baseName older than maxAge
// and returns the count removed. This is the only deletion this layer
// performs on its own files; end-of-session cleanup belongs to callers.
func (c *Coordinator) SweepStale(baseName string, maxAge time.Duration) int {
	return c.resolver.SweepStale(baseName, maxAge)
}
