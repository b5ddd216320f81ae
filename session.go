package docan

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DiagnosticSession identifies the active UDS session type.
type DiagnosticSession uint8

const (
	SessionDefault DiagnosticSession = 1 + iota
	SessionProgramming
	SessionExtended
	SessionSafetySystem
)

func (s DiagnosticSession) String() string {
	switch s {
	case SessionDefault:
		return "default"
	case SessionProgramming:
		return "programming"
	case SessionExtended:
		return "extended"
	case SessionSafetySystem:
		return "safety-system"
	default:
		return "unknown"
	}
}

// DefaultKeepDuration is the spec.md §4.5 default keep_duration.
const DefaultKeepDuration = 5 * time.Second

// SessionManager is the server-side session + SA-level state machine with
// timeout reversion (spec.md §4.5, component C5). Grounded on the
// teacher's NMT/HBConsumer timeout-driven state fields and the
// ticker-plus-goroutine shape of network.go's launchNodeProcess, adapted
// to an idiomatic context.Context-cancellable background goroutine rather
// than a manually polled Process(timeDifferenceUs) call.
//
// Invariant: if current_session == Default, then sa_level == 0.
type SessionManager struct {
	mu           sync.Mutex
	session      DiagnosticSession
	saLevel      uint8
	keepDeadline time.Time
	hasDeadline  bool
	keepDuration time.Duration
}

// NewSessionManager creates a manager starting in the Default session.
func NewSessionManager(keepDuration time.Duration) *SessionManager {
	if keepDuration <= 0 {
		keepDuration = DefaultKeepDuration
	}
	return &SessionManager{session: SessionDefault, keepDuration: keepDuration}
}

// SessionType returns the current session.
func (m *SessionManager) SessionType() DiagnosticSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// SALevel returns the current security access level.
func (m *SessionManager) SALevel() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saLevel
}

// Change applies a new session. If the new session is not Default, the
// caller must immediately call Keep() to arm the deadline (spec.md §4.5).
func (m *SessionManager) Change(session DiagnosticSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	if session == SessionDefault {
		m.saLevel = 0
		m.hasDeadline = false
	}
}

// Keep arms/renews the keep-alive deadline.
func (m *SessionManager) Keep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keepDeadline = time.Now().Add(m.keepDuration)
	m.hasDeadline = true
}

// SetSALevel sets the security access level. Only meaningful following a
// successful security-access exchange; reset to 0 whenever the session
// reverts to Default.
func (m *SessionManager) SetSALevel(level uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saLevel = level
}

// tick reverts to Default if the keep deadline has passed. Returns true if
// a reversion happened (for logging by the caller).
func (m *SessionManager) tick(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == SessionDefault {
		return false
	}
	if !m.hasDeadline || m.keepDeadline.After(now) {
		return false
	}
	m.session = SessionDefault
	m.saLevel = 0
	m.hasDeadline = false
	return true
}

// Run is the long-lived background task (spec.md §4.5 work()): on each
// tick, period = keep_duration, it reverts the session when the deadline
// has passed. It returns when ctx is cancelled, the server's graceful
// shutdown path (spec.md §5).
func (m *SessionManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.keepDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if m.tick(now) {
				log.Debug("[SESSION] reverted to default session after keep-alive timeout")
			}
		}
	}
}
