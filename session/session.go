package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadlineS = 60 * time.Second
	pingInterval  = 30 * time.Second // server-side WS ping
)

// Packet is the unified WS message envelope.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Session represents one connected WebSocket client. A session is bound
// to exactly one user identity; a user may own several sessions at once
// (multiple tabs or devices).
type Session struct {
	ID     string // connection id, unique per session
	UserID string // empty until authenticated

	Conn     *websocket.Conn
	SendChan chan []byte
	Done     chan struct{}
	TraceID  string
	LastSeq  uint64

	mu     sync.Mutex
	logger *zap.Logger
}

// New creates a Session bound to userID with its write goroutine started.
func New(userID string, conn *websocket.Conn, logger *zap.Logger) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		Conn:     conn,
		SendChan: make(chan []byte, sendChanBuf),
		Done:     make(chan struct{}),
		logger:   logger,
	}
	go s.writePump()
	return s
}

// NewDetached creates a Session with no WebSocket connection and no write
// goroutine. Sent packets accumulate in SendChan until drained. Tests use
// this to observe exactly what a handler delivered.
func NewDetached(userID string, logger *zap.Logger) *Session {
	return &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		SendChan: make(chan []byte, sendChanBuf),
		Done:     make(chan struct{}),
		logger:   logger,
	}
}

// writePump drains SendChan and writes to the WebSocket connection.
// Also sends periodic WebSocket pings to detect dead connections quickly.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.Conn.Close()
	for {
		select {
		case data, ok := <-s.SendChan:
			if !ok {
				return
			}
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("ws write error",
					zap.String("user_id", s.UserID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done:
			_ = s.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes pkt and sends it non-blocking. Drops if channel full or closed.
func (s *Session) Send(pkt *Packet) {
	if s.IsClosed() {
		return
	}
	data, err := json.Marshal(pkt)
	if err != nil {
		return
	}
	s.SendRaw(data)
}

// SendEvent marshals payload and sends it as a packet of the given type.
func (s *Session) SendEvent(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.Send(&Packet{Type: event, Payload: data})
}

// SendRaw sends raw bytes non-blocking. Drops if channel full or closed.
func (s *Session) SendRaw(data []byte) {
	if s.IsClosed() {
		return
	}
	select {
	case s.SendChan <- data:
	case <-s.Done:
		// Session closed while sending
	default:
		if !s.IsClosed() {
			s.logger.Warn("send channel full, dropping packet",
				zap.String("user_id", s.UserID))
		}
	}
}

// SendError sends an error packet with an opaque reason string.
func (s *Session) SendError(message string) {
	payload, _ := json.Marshal(map[string]string{"message": message})
	s.Send(&Packet{Type: "error", Payload: payload})
}

// Close signals the writePump to shut down.
func (s *Session) Close() {
	select {
	case <-s.Done:
	default:
		close(s.Done)
	}
}

// IsClosed returns true if the session has been closed.
func (s *Session) IsClosed() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}

// SetReadDeadline resets the WebSocket read deadline to 60 s from now.
func (s *Session) SetReadDeadline() {
	_ = s.Conn.SetReadDeadline(time.Now().Add(readDeadlineS))
}
