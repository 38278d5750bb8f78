package web

import (
	"context"
	"sync"
	"time"

	"github.com/hurricanerix/darkroom/internal/editor"
	"github.com/hurricanerix/darkroom/internal/logging"
	"github.com/hurricanerix/darkroom/internal/mask"
)

const (
	// DefaultSessionTTL is how long a session can be idle before cleanup.
	DefaultSessionTTL = 30 * time.Minute

	// DefaultMaxSessions is the session cap before LRU eviction.
	DefaultMaxSessions = 64

	// cleanupInterval is how often the cleanup loop runs.
	cleanupInterval = 5 * time.Minute

	// PreviewSettleDelay is how long the low-res preview stays on screen
	// after a slider commit, bridging the gap until the full-resolution
	// render lands.
	PreviewSettleDelay = 50 * time.Millisecond
)

// EditSession bundles one user's editing state: the engine session, the
// in-progress brush accumulator, and the preview settle timer.
//
// Handlers must hold mu across every access; the engine session itself is
// not thread-safe.
type EditSession struct {
	mu sync.Mutex

	Editor *editor.Session

	// Brush accumulates the current mask stroke, nil when no brush work
	// has started since the last non-brush commit.
	Brush *mask.Brush

	// brushCommitted is set once a stroke has landed in history, making
	// subsequent strokes of the same brush run overwrite-commits.
	brushCommitted bool

	settle *time.Timer
}

// Lock acquires the per-session mutex.
func (es *EditSession) Lock() { es.mu.Lock() }

// Unlock releases the per-session mutex.
func (es *EditSession) Unlock() { es.mu.Unlock() }

// ResetBrush discards brush state so the next stroke starts a fresh
// history entry from the committed mask.
func (es *EditSession) ResetBrush() {
	es.Brush = nil
	es.brushCommitted = false
}

// ScheduleSettle (re)arms the preview settle timer. After the delay the
// preview snapshot is deactivated and full-resolution renders resume.
func (es *EditSession) ScheduleSettle() {
	if es.settle != nil {
		es.settle.Stop()
	}
	es.settle = time.AfterFunc(PreviewSettleDelay, func() {
		es.mu.Lock()
		es.Editor.DeactivatePreview()
		es.mu.Unlock()
	})
}

// sessionInfo tracks a session and its last activity time.
type sessionInfo struct {
	session      *EditSession
	lastActivity time.Time
}

// SessionManager provides thread-safe management of edit sessions.
// Each session is identified by a unique session ID and owns its own
// editing state.
//
// SessionManager is safe for concurrent access from multiple goroutines.
// It uses a read-write mutex to allow concurrent reads while serializing
// writes.
//
// Idle sessions are removed by a background goroutine; when the session
// count exceeds the cap, the least recently used session is evicted.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionInfo

	maxSessions int
	ttl         time.Duration
	log         *logging.Logger

	cancelCleanup context.CancelFunc
	cleanupDone   chan struct{}
}

// NewSessionManager creates a session manager and starts its cleanup
// goroutine. Zero maxSessions or ttl fall back to the defaults; a nil
// logger logs to stderr.
func NewSessionManager(maxSessions int, ttl time.Duration, log *logging.Logger) *SessionManager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = logging.New(logging.LevelInfo, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sm := &SessionManager{
		sessions:      make(map[string]*sessionInfo),
		maxSessions:   maxSessions,
		ttl:           ttl,
		log:           log.With("sessions"),
		cancelCleanup: cancel,
		cleanupDone:   make(chan struct{}),
	}

	go sm.cleanupLoop(ctx)

	return sm
}

// GetOrCreate returns the EditSession for the given session ID, creating
// it if needed, and updates the last activity time.
func (sm *SessionManager) GetOrCreate(sessionID string) *EditSession {
	now := time.Now()

	// Fast path for existing sessions.
	sm.mu.RLock()
	if info, ok := sm.sessions[sessionID]; ok {
		sm.mu.RUnlock()
		sm.mu.Lock()
		info.lastActivity = now
		sm.mu.Unlock()
		return info.session
	}
	sm.mu.RUnlock()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Double-check after acquiring the write lock; another goroutine may
	// have created the session while we waited.
	if info, ok := sm.sessions[sessionID]; ok {
		info.lastActivity = now
		return info.session
	}

	if len(sm.sessions) >= sm.maxSessions {
		sm.evictLRU()
	}

	es := &EditSession{Editor: editor.NewSession()}
	sm.sessions[sessionID] = &sessionInfo{
		session:      es,
		lastActivity: now,
	}
	return es
}

// Get returns the EditSession for the given session ID, or nil if it does
// not exist. It does not create a new session.
func (sm *SessionManager) Get(sessionID string) *EditSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if info, ok := sm.sessions[sessionID]; ok {
		return info.session
	}
	return nil
}

// Delete removes the session with the given ID.
func (sm *SessionManager) Delete(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Refs returns every image handle reachable from any live session, for
// the image store's reachability sweep.
func (sm *SessionManager) Refs() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var refs []string
	for _, info := range sm.sessions {
		info.session.mu.Lock()
		refs = append(refs, info.session.Editor.Refs()...)
		info.session.mu.Unlock()
	}
	return refs
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (sm *SessionManager) Shutdown() {
	if sm.cancelCleanup != nil {
		sm.cancelCleanup()
		<-sm.cleanupDone
	}
}

// cleanupLoop runs periodically to remove idle sessions.
func (sm *SessionManager) cleanupLoop(ctx context.Context) {
	defer close(sm.cleanupDone)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.cleanupIdleSessions()
		}
	}
}

// cleanupIdleSessions removes sessions idle longer than the TTL.
func (sm *SessionManager) cleanupIdleSessions() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	removed := 0

	for sessionID, info := range sm.sessions {
		if now.Sub(info.lastActivity) > sm.ttl {
			delete(sm.sessions, sessionID)
			removed++
		}
	}

	if removed > 0 {
		sm.log.Info("cleaned up %d idle sessions (remaining: %d)", removed, len(sm.sessions))
	}
}

// evictLRU removes the least recently used session.
// Must be called with sm.mu held for writing.
func (sm *SessionManager) evictLRU() {
	var oldestID string
	var oldestTime time.Time

	for sessionID, info := range sm.sessions {
		if oldestID == "" || info.lastActivity.Before(oldestTime) {
			oldestID = sessionID
			oldestTime = info.lastActivity
		}
	}

	if oldestID != "" {
		delete(sm.sessions, oldestID)
		sm.log.Info("evicted LRU session %s (idle for %v)", oldestID, time.Since(oldestTime))
	}
}
