package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/azattekce/redischat/audit"
	"github.com/azattekce/redischat/cache"
	"github.com/azattekce/redischat/session"
	"go.uber.org/zap"
)

const (
	maxMsgLen     = 2000
	globalHistory = 200
)

// Handler is the gateway for chat WS actions. Every private action runs
// the same pipeline: resolve caller → validate target → policy → persist
// → publish to the fanout bus.
type Handler struct {
	store  *MessageStore
	policy *Policy
	cache  cache.Cache
	pubsub cache.PubSub
	sm     *session.Manager
	audit  *audit.Service
	logger *zap.Logger
}

// NewHandler creates a chat gateway Handler.
func NewHandler(store *MessageStore, policy *Policy, c cache.Cache, ps cache.PubSub, sm *session.Manager, auditSvc *audit.Service, logger *zap.Logger) *Handler {
	return &Handler{store: store, policy: policy, cache: c, pubsub: ps, sm: sm, audit: auditSvc, logger: logger}
}

type sendMessageReq struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// HandleSendMessage processes a send_message action: global broadcast
// channel, no persistence, no policy gate. A weaker-guarantee path kept
// separate from private messaging.
func (h *Handler) HandleSendMessage(ctx context.Context, s *session.Session, raw json.RawMessage) error {
	var req sendMessageReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return nil
	}
	if len([]rune(req.Message)) > maxMsgLen {
		s.SendError("message too long")
		return nil
	}

	payload := fmt.Sprintf("%s: %s", req.User, req.Message)
	if err := h.pubsub.Publish(ctx, GlobalChannel, payload); err != nil {
		h.logger.Error("global publish failed", zap.Error(err))
		s.SendError("delivery failed, try again")
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	// Capped history so late joiners can catch up on the global channel.
	_ = h.cache.LPush(ctx, GlobalChannel, payload)
	_ = h.cache.LTrim(ctx, GlobalChannel, 0, globalHistory-1)
	return nil
}

type privateMessageReq struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// HandleSendPrivateMessage processes a send_private_message action.
func (h *Handler) HandleSendPrivateMessage(ctx context.Context, s *session.Session, raw json.RawMessage) error {
	var req privateMessageReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return nil
	}
	if len([]rune(req.Message)) > maxMsgLen {
		s.SendError("message too long")
		return nil
	}
	return h.sendPrivate(ctx, s, "send_private_message", req.To, req.Message)
}

type privateAttachmentReq struct {
	To   string `json:"to"`
	Data string `json:"data"` // base64 image data
}

// HandleSendPrivateAttachment processes a send_private_attachment action.
// The image payload is tagged and then follows the private message path.
func (h *Handler) HandleSendPrivateAttachment(ctx context.Context, s *session.Session, raw json.RawMessage) error {
	var req privateAttachmentReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	if req.Data == "" {
		s.SendError("empty attachment")
		return nil
	}
	return h.sendPrivate(ctx, s, "send_private_attachment", req.To, EncodeImage(req.Data))
}

type privateLocationReq struct {
	To  string  `json:"to"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HandleSendPrivateLocation processes a send_private_location action.
func (h *Handler) HandleSendPrivateLocation(ctx context.Context, s *session.Session, raw json.RawMessage) error {
	var req privateLocationReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	return h.sendPrivate(ctx, s, "send_private_location", req.To, EncodeLocation(req.Lat, req.Lon))
}

// sendPrivate is the shared private-send pipeline. Persistence happens
// before the fanout publish; a failed publish still leaves the message
// stored and surfaces a retryable error to the caller.
func (h *Handler) sendPrivate(ctx context.Context, s *session.Session, action, to, content string) error {
	from := s.UserID
	if from == "" {
		s.SendError("unauthorized")
		return ErrUnauthorized
	}
	if strings.TrimSpace(to) == "" {
		s.SendError("invalid recipient")
		return ErrInvalidTarget
	}

	if err := h.policy.Authorize(ctx, from, to); err != nil {
		if errors.Is(err, ErrForbidden) {
			s.SendError(err.Error())
			h.audit.Log(audit.Entry{
				TraceID: s.TraceID,
				UserID:  from,
				Action:  action,
				Request: map[string]string{"to": to},
				Error:   err.Error(),
			})
			return err
		}
		return err
	}

	msg, err := h.store.Append(ctx, from, to, content)
	if err != nil {
		h.logger.Error("message persist failed",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
		s.SendError("message not saved, try again")
		return err
	}

	payload := from + ":" + content
	if err := h.pubsub.Publish(ctx, UserChannel(to), payload); err != nil {
		h.logger.Error("private publish failed",
			zap.String("from", from),
			zap.String("to", to),
			zap.Int64("message_id", msg.ID),
			zap.Error(err))
		s.SendError("delivery failed, try again")
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	h.audit.Log(audit.Entry{
		TraceID:  s.TraceID,
		UserID:   from,
		Action:   action,
		Request:  map[string]string{"to": to},
		Response: map[string]int64{"message_id": msg.ID},
	})
	return nil
}

// SendGlobalHistory pushes the last N global-channel messages to a newly
// connected session.
func (h *Handler) SendGlobalHistory(ctx context.Context, s *session.Session, count int64) {
	msgs, err := h.cache.LRange(ctx, GlobalChannel, 0, count-1)
	if err != nil {
		return
	}
	// Stored newest first; replay oldest first.
	for i := len(msgs) - 1; i >= 0; i-- {
		s.SendEvent("receive_message", msgs[i])
	}
}
