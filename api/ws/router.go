package ws

import (
	"context"
	"encoding/json"

	"github.com/azattekce/redischat/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandlerFunc processes a decoded WS message payload.
type HandlerFunc func(ctx context.Context, s *session.Session, payload json.RawMessage) error

// Router dispatches incoming WS packets by message type.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewRouter creates a new Router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// On registers a HandlerFunc for the given message type.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Dispatch decodes raw bytes and invokes the matching handler.
func (r *Router) Dispatch(s *session.Session, raw []byte) {
	var pkt session.Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed packet", zap.String("user_id", s.UserID), zap.Error(err))
		return
	}
	if !r.acceptSeq(s, pkt.Seq) {
		return
	}

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		r.logger.Debug("unhandled message type",
			zap.String("type", pkt.Type),
			zap.String("user_id", s.UserID))
		return
	}

	// Each dispatched message carries its own trace ID.
	s.TraceID = uuid.NewString()
	ctx := context.WithValue(context.Background(), ctxKeyTraceID{}, s.TraceID)

	if err := fn(ctx, s, pkt.Payload); err != nil {
		r.logger.Error("handler error",
			zap.String("type", pkt.Type),
			zap.String("user_id", s.UserID),
			zap.String("trace_id", s.TraceID),
			zap.Error(err))
	}
}

// acceptSeq enforces a monotonic per-session sequence. A seq of zero
// opts out of tracking entirely.
func (r *Router) acceptSeq(s *session.Session, seq uint64) bool {
	if seq == 0 {
		return true
	}
	if seq <= s.LastSeq {
		r.logger.Warn("replayed or out-of-order packet",
			zap.String("user_id", s.UserID),
			zap.Uint64("seq", seq),
			zap.Uint64("last_seq", s.LastSeq))
		return false
	}
	s.LastSeq = seq
	return true
}

type ctxKeyTraceID struct{}

// TraceIDFromCtx extracts the trace ID from a handler context.
func TraceIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTraceID{}).(string); ok {
		return v
	}
	return ""
}
