package apply

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/models"
)

const defaultQueueSize = 256

// Session is the per-apply coordination object: one bounded event queue, one
// confirmation gate, one cancel signal. At most one live Session exists per
// job key; the registry enforces it.
type Session struct {
	JobKey    string
	Mode      models.ApplyMode
	StartedAt time.Time

	queue      chan models.ApplyEvent
	gate       *ConfirmGate
	cancelCh   chan struct{}
	cancelOnce sync.Once
	finished   atomic.Bool
	logger     arbor.ILogger
}

// NewSession creates a session with a bounded event queue
func NewSession(jobKey string, mode models.ApplyMode, queueSize int, logger arbor.ILogger) *Session {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Session{
		JobKey:    jobKey,
		Mode:      mode,
		StartedAt: time.Now(),
		queue:     make(chan models.ApplyEvent, queueSize),
		gate:      NewConfirmGate(),
		cancelCh:  make(chan struct{}),
		logger:    logger,
	}
}

// Emit enqueues an event without ever blocking the worker. On overflow the
// oldest event is dropped with a warning. Nothing is accepted after the
// terminal done, so the done is always last and never displaced.
func (s *Session) Emit(event models.ApplyEvent) {
	if s.finished.Load() {
		s.logger.Warn().
			Str("job_key", s.JobKey).
			Str("type", string(event.Type)).
			Msg("Event arrived after terminal; discarded")
		return
	}

	for {
		select {
		case s.queue <- event:
			if event.Terminal() {
				s.finished.Store(true)
			}
			return
		default:
		}

		select {
		case dropped := <-s.queue:
			s.logger.Warn().
				Str("job_key", s.JobKey).
				Str("dropped_type", string(dropped.Type)).
				Msg("Session queue full; dropped oldest event")
		default:
		}
	}
}

// Events returns the drain side of the session queue.
func (s *Session) Events() <-chan models.ApplyEvent {
	return s.queue
}

// Gate returns the session's confirmation gate.
func (s *Session) Gate() *ConfirmGate {
	return s.gate
}

// Cancel raises the broadcast cancel signal. Safe to call more than once.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancelCh) })
}

// Cancelled returns the broadcast channel closed on cancellation.
func (s *Session) Cancelled() <-chan struct{} {
	return s.cancelCh
}

// IsCancelled reports whether the cancel signal has fired.
func (s *Session) IsCancelled() bool {
	select {
	case <-s.cancelCh:
		return true
	default:
		return false
	}
}

// Finished reports whether the terminal done has been enqueued.
func (s *Session) Finished() bool {
	return s.finished.Load()
}

// SessionRegistry is the process-wide job_key to Session table. Mutations are
// constant-time under one mutex; reads go through narrow accessors.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Add registers a session. A live session for the same key rejects the add;
// a finished one still awaiting cleanup is displaced.
func (r *SessionRegistry) Add(session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[session.JobKey]; ok && !existing.Finished() {
		return fmt.Errorf("session already exists for %s", session.JobKey)
	}
	r.sessions[session.JobKey] = session
	return nil
}

// Get returns the session for a job key.
func (r *SessionRegistry) Get(jobKey string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[jobKey]
	return s, ok
}

// Remove drops the session for a job key if it is the given one.
func (r *SessionRegistry) Remove(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[session.JobKey]; ok && current == session {
		delete(r.sessions, session.JobKey)
	}
}

// Len returns the number of registered sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
