package session

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager is the registry of live sessions, keyed by user identity.
// One user may hold any number of concurrent sessions; delivery to a
// user reaches every one of them.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string][]*Session // userID → live sessions
	logger   *zap.Logger
}

// NewManager creates a new Manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string][]*Session),
		logger:   logger,
	}
}

// Register adds a session under its user identity. Existing sessions for
// the same user stay registered (multi-device).
func (m *Manager) Register(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = append(m.sessions[s.UserID], s)
	m.logger.Info("session registered",
		zap.String("user_id", s.UserID),
		zap.String("session_id", s.ID),
		zap.Int("connections", len(m.sessions[s.UserID])))
}

// Unregister removes one session by its session ID.
func (m *Manager) Unregister(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.sessions[s.UserID]
	for i, cur := range list {
		if cur.ID == s.ID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m.sessions, s.UserID)
	} else {
		m.sessions[s.UserID] = list
	}
	m.logger.Info("session unregistered",
		zap.String("user_id", s.UserID),
		zap.String("session_id", s.ID))
}

// sessionsOf returns a snapshot of the user's live sessions.
func (m *Manager) sessionsOf(userID string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.sessions[userID]
	out := make([]*Session, len(list))
	copy(out, list)
	return out
}

// SendToUser delivers a packet to every live session of the user.
// A user with no live sessions is a silent no-op: offline recipients are
// the normal case, not an error.
func (m *Manager) SendToUser(userID string, pkt *Packet) {
	data, err := json.Marshal(pkt)
	if err != nil {
		m.logger.Error("failed to marshal packet", zap.Error(err))
		return
	}
	for _, s := range m.sessionsOf(userID) {
		s.SendRaw(data)
	}
}

// SendEvent marshals payload and delivers it to every session of the user.
func (m *Manager) SendEvent(userID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("failed to marshal event payload",
			zap.String("event", event), zap.Error(err))
		return
	}
	m.SendToUser(userID, &Packet{Type: event, Payload: data})
}

// IsOnline reports whether the user has at least one live session.
func (m *Manager) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions[userID]) > 0
}

// Count returns the number of currently connected sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, list := range m.sessions {
		n += len(list)
	}
	return n
}

// All returns a snapshot slice of all current sessions.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, list := range m.sessions {
		out = append(out, list...)
	}
	return out
}

// BroadcastAll sends a raw pre-encoded packet to every connected session.
// Uses non-blocking send to prevent slow connections from blocking the broadcast.
func (m *Manager) BroadcastAll(data []byte) {
	for _, s := range m.All() {
		s.SendRaw(data)
	}
}

// BroadcastEvent sends a typed packet to every connected session.
func (m *Manager) BroadcastEvent(event string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("failed to marshal broadcast payload", zap.Error(err))
		return
	}
	data, err := json.Marshal(&Packet{Type: event, Payload: body})
	if err != nil {
		m.logger.Error("failed to marshal broadcast packet", zap.Error(err))
		return
	}
	m.BroadcastAll(data)
}

// CloseAll gracefully closes all connected sessions.
func (m *Manager) CloseAll() {
	sessions := m.All()
	m.logger.Info("closing all sessions", zap.Int("count", len(sessions)))
	for _, s := range sessions {
		s.Close()
	}

	// Wait for all sessions to unregister (with timeout).
	maxWait := 10 * time.Second
	start := time.Now()
	for time.Since(start) < maxWait {
		if m.Count() == 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
}
