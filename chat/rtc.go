package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/azattekce/redischat/session"
	"go.uber.org/zap"
)

// RTCHandlers relays WebRTC call signaling between two authorized peers.
// The server keeps no call state: it is a transparent relay that applies
// the same friend/block policy as private chat. Offer and answer surface
// violations to the caller; ICE candidates and hangups fail silently
// because an error is not actionable for those high-frequency signals.
type RTCHandlers struct {
	policy *Policy
	sm     *session.Manager
	logger *zap.Logger
}

// NewRTCHandlers creates the signaling relay handlers.
func NewRTCHandlers(policy *Policy, sm *session.Manager, logger *zap.Logger) *RTCHandlers {
	return &RTCHandlers{policy: policy, sm: sm, logger: logger}
}

type rtcSDPReq struct {
	To  string `json:"to"`
	SDP string `json:"sdp"`
}

type rtcCandidateReq struct {
	To        string `json:"to"`
	Candidate string `json:"candidate"`
}

type rtcHangupReq struct {
	To string `json:"to"`
}

// HandleOffer processes an rtc_offer action.
func (h *RTCHandlers) HandleOffer(ctx context.Context, s *session.Session, raw json.RawMessage) error {
	return h.relaySDP(ctx, s, raw, "rtc_offer")
}

// HandleAnswer processes an rtc_answer action.
func (h *RTCHandlers) HandleAnswer(ctx context.Context, s *session.Session, raw json.RawMessage) error {
	return h.relaySDP(ctx, s, raw, "rtc_answer")
}

func (h *RTCHandlers) relaySDP(ctx context.Context, s *session.Session, raw json.RawMessage, event string) error {
	var req rtcSDPReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	if err := h.authorize(ctx, s, req.To); err != nil {
		if errors.Is(err, ErrForbidden) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidTarget) {
			s.SendError(err.Error())
		}
		return err
	}
	h.sm.SendEvent(req.To, event, map[string]string{
		"from": s.UserID,
		"sdp":  req.SDP,
	})
	return nil
}

// HandleIceCandidate processes an rtc_ice_candidate action. Violations
// and malformed input are dropped without an error.
func (h *RTCHandlers) HandleIceCandidate(ctx context.Context, s *session.Session, raw json.RawMessage) error {
	var req rtcCandidateReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil
	}
	if err := h.authorize(ctx, s, req.To); err != nil {
		h.logger.Debug("ice candidate dropped",
			zap.String("from", s.UserID),
			zap.String("to", req.To),
			zap.Error(err))
		return nil
	}
	h.sm.SendEvent(req.To, "rtc_ice_candidate", map[string]string{
		"from":      s.UserID,
		"candidate": req.Candidate,
	})
	return nil
}

// HandleHangup processes an rtc_hangup action. Violations and malformed
// input are dropped without an error.
func (h *RTCHandlers) HandleHangup(ctx context.Context, s *session.Session, raw json.RawMessage) error {
	var req rtcHangupReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil
	}
	if err := h.authorize(ctx, s, req.To); err != nil {
		h.logger.Debug("hangup dropped",
			zap.String("from", s.UserID),
			zap.String("to", req.To),
			zap.Error(err))
		return nil
	}
	h.sm.SendEvent(req.To, "rtc_hangup", map[string]string{
		"from": s.UserID,
	})
	return nil
}

func (h *RTCHandlers) authorize(ctx context.Context, s *session.Session, to string) error {
	if s.UserID == "" {
		return ErrUnauthorized
	}
	if strings.TrimSpace(to) == "" {
		return ErrInvalidTarget
	}
	return h.policy.Authorize(ctx, s.UserID, to)
}
