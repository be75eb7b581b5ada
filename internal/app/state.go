package app

import "sync"

// SessionState is the lifecycle stage of the WhatsApp session.
type SessionState string

const (
	SessionIdle         SessionState = "idle"
	SessionConnecting   SessionState = "connecting"
	SessionConnected    SessionState = "connected"
	SessionDisconnected SessionState = "disconnected"
	SessionLoggedOut    SessionState = "logged-out"
)

// sessionState guards the stage with its own mutex so state changes never
// hold a lock across calls into the protocol client.
type sessionState struct {
	mu  sync.Mutex
	cur SessionState
}

func (s *sessionState) set(v SessionState) {
	s.mu.Lock()
	s.cur = v
	s.mu.Unlock()
}

func (s *sessionState) get() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == "" {
		return SessionIdle
	}
	return s.cur
}
