// Package watch surfaces peer session activity by watching the scratch
// directory for state-file changes. Workflow trackers use it to notice
// concurrently active sessions without polling the active listing.
//
// The watcher is advisory observability, not coordination: missed or
// coalesced filesystem events are acceptable, and consumers that fall
// behind lose updates rather than blocking the event loop.
package watch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/coordino/internal/logging"
)

// Op is the kind of change observed on a state file.
type Op int

const (
	// OpWritten covers creation and modification of a state file.
	OpWritten Op = iota
	// OpRemoved covers deletion or rename-away of a state file.
	OpRemoved
)

// String returns the op name for logging.
func (o Op) String() string {
	switch o {
	case OpWritten:
		return "written"
	case OpRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Update describes one observed state-file change from a peer session.
type Update struct {
	BaseName  string // State base name the file belongs to
	SessionID string // Session embedded in the file name
	Path      string // Absolute path of the changed file
	Op        Op
}

// Watcher watches one scratch directory for changes to registered base
// names, filtering out this process's own session.
type Watcher struct {
	fs          *fsnotify.Watcher
	scratchDir  string
	namespace   string
	ext         string
	selfSession string
	logger      *logging.Logger

	mu    sync.RWMutex
	bases map[string]struct{}

	updates  chan Update
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Watcher over scratchDir. selfSessionID is this process's
// session identifier; its own writes are filtered out of the update stream.
// The logger may be nil.
func New(scratchDir, namespace, ext, selfSessionID string, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(scratchDir); err != nil {
		fs.Close()
		return nil, err
	}

	return &Watcher{
		fs:          fs,
		scratchDir:  scratchDir,
		namespace:   namespace,
		ext:         ext,
		selfSession: selfSessionID,
		logger:      logger,
		bases:       make(map[string]struct{}),
		updates:     make(chan Update, 64),
		stopCh:      make(chan struct{}),
	}, nil
}

// WatchBase registers a state base name whose files should produce updates.
func (w *Watcher) WatchBase(baseName string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bases[baseName] = struct{}{}
}

// Updates returns the stream of peer state-file changes.
func (w *Watcher) Updates() <-chan Update {
	return w.updates
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases the underlying filesystem watch.
// Safe to call more than once; typically deferred alongside signal handling
// that also stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.fs.Close()
	})
}

// watchLoop processes filesystem events until stopped.
func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("scratch watcher error", "error", err.Error())
		}
	}
}

// handleEvent classifies one fsnotify event and emits an Update for
// registered bases.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	var op Op
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		op = OpWritten
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OpRemoved
	default:
		return
	}

	name := filepath.Base(event.Name)
	if strings.HasSuffix(name, ".lock") || strings.HasPrefix(name, ".tmp-") {
		return
	}

	base, sid, ok := w.parseName(name)
	if !ok {
		return
	}
	if sid == w.selfSession {
		return
	}

	update := Update{
		BaseName:  base,
		SessionID: sid,
		Path:      filepath.Join(w.scratchDir, name),
		Op:        op,
	}

	select {
	case w.updates <- update:
	default:
		// Consumer fell behind; dropping is preferable to blocking the
		// event loop.
		w.logger.Debug("dropped state update",
			"base", update.BaseName,
			"session_id", update.SessionID,
		)
	}
}

// parseName matches a file name against the registered bases and extracts
// the embedded session id.
func (w *Watcher) parseName(name string) (base, sessionID string, ok bool) {
	if !strings.HasSuffix(name, w.ext) {
		return "", "", false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	for b := range w.bases {
		prefix := fmt.Sprintf("%s-%s-", w.namespace, b)
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		sid := strings.TrimSuffix(strings.TrimPrefix(name, prefix), w.ext)
		if sid == "" {
			continue
		}
		return b, sid, true
	}
	return "", "", false
}
