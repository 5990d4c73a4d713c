package chat_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/azattekce/redischat/chat"
	"github.com/azattekce/redischat/session"
	"github.com/azattekce/redischat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newRTCEnv(t *testing.T) (*gorm.DB, *session.Manager, *chat.RTCHandlers) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	sm := session.NewManager(logger)
	return db, sm, chat.NewRTCHandlers(chat.NewPolicy(db), sm, logger)
}

func assertNoPacket(t *testing.T, s *session.Session) {
	t.Helper()
	select {
	case data := <-s.SendChan:
		t.Fatalf("unexpected packet: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleOffer_RelayedToPeer(t *testing.T) {
	db, sm, h := newRTCEnv(t)
	makeFriends(t, db, "alice", "bob")

	caller := session.NewDetached("alice", zap.NewNop())
	callee := session.NewDetached("bob", zap.NewNop())
	sm.Register(callee)

	raw, _ := json.Marshal(map[string]string{"to": "bob", "sdp": "v=0 offer"})
	require.NoError(t, h.HandleOffer(context.Background(), caller, raw))

	pkt := recvPacket(t, callee)
	require.Equal(t, "rtc_offer", pkt.Type)
	var body map[string]string
	require.NoError(t, json.Unmarshal(pkt.Payload, &body))
	assert.Equal(t, "alice", body["from"])
	assert.Equal(t, "v=0 offer", body["sdp"])
}

func TestHandleAnswer_RelayedToPeer(t *testing.T) {
	db, sm, h := newRTCEnv(t)
	makeFriends(t, db, "alice", "bob")

	caller := session.NewDetached("bob", zap.NewNop())
	callee := session.NewDetached("alice", zap.NewNop())
	sm.Register(callee)

	raw, _ := json.Marshal(map[string]string{"to": "alice", "sdp": "v=0 answer"})
	require.NoError(t, h.HandleAnswer(context.Background(), caller, raw))

	pkt := recvPacket(t, callee)
	assert.Equal(t, "rtc_answer", pkt.Type)
}

func TestHandleOffer_NotFriendsSurfacesError(t *testing.T) {
	_, sm, h := newRTCEnv(t)

	caller := session.NewDetached("alice", zap.NewNop())
	stranger := session.NewDetached("stranger", zap.NewNop())
	sm.Register(stranger)

	raw, _ := json.Marshal(map[string]string{"to": "stranger", "sdp": "v=0"})
	err := h.HandleOffer(context.Background(), caller, raw)
	require.ErrorIs(t, err, chat.ErrForbidden)

	// Caller is told, the target hears nothing.
	pkt := recvPacket(t, caller)
	assert.Equal(t, "error", pkt.Type)
	assertNoPacket(t, stranger)
}

func TestHandleIceCandidate_SilentOnViolation(t *testing.T) {
	_, sm, h := newRTCEnv(t)

	caller := session.NewDetached("alice", zap.NewNop())
	stranger := session.NewDetached("stranger", zap.NewNop())
	sm.Register(stranger)

	raw, _ := json.Marshal(map[string]string{"to": "stranger", "candidate": "cand"})
	require.NoError(t, h.HandleIceCandidate(context.Background(), caller, raw))

	// Dropped without error and without notifying anyone.
	assertNoPacket(t, caller)
	assertNoPacket(t, stranger)
}

func TestHandleIceCandidate_RelayedBetweenFriends(t *testing.T) {
	db, sm, h := newRTCEnv(t)
	makeFriends(t, db, "alice", "bob")

	caller := session.NewDetached("alice", zap.NewNop())
	callee := session.NewDetached("bob", zap.NewNop())
	sm.Register(callee)

	raw, _ := json.Marshal(map[string]string{"to": "bob", "candidate": "cand-1"})
	require.NoError(t, h.HandleIceCandidate(context.Background(), caller, raw))

	pkt := recvPacket(t, callee)
	require.Equal(t, "rtc_ice_candidate", pkt.Type)
	var body map[string]string
	require.NoError(t, json.Unmarshal(pkt.Payload, &body))
	assert.Equal(t, "cand-1", body["candidate"])
}

func TestHandleHangup_Relayed(t *testing.T) {
	db, sm, h := newRTCEnv(t)
	makeFriends(t, db, "alice", "bob")

	caller := session.NewDetached("alice", zap.NewNop())
	callee := session.NewDetached("bob", zap.NewNop())
	sm.Register(callee)

	raw, _ := json.Marshal(map[string]string{"to": "bob"})
	require.NoError(t, h.HandleHangup(context.Background(), caller, raw))

	pkt := recvPacket(t, callee)
	assert.Equal(t, "rtc_hangup", pkt.Type)
}

func TestHandleHangup_MalformedDropped(t *testing.T) {
	_, _, h := newRTCEnv(t)
	caller := session.NewDetached("alice", zap.NewNop())

	err := h.HandleHangup(context.Background(), caller, json.RawMessage("{not json"))
	assert.NoError(t, err)
	assertNoPacket(t, caller)
}
