package chat_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/azattekce/redischat/chat"
	"github.com/azattekce/redischat/session"
	"github.com/azattekce/redischat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubscriber_DeliversPrivateMessage(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sm := session.NewManager(logger)

	bob := session.NewDetached("bob", logger)
	sm.Register(bob)

	sub := chat.NewSubscriber(ps, sm, logger)
	sub.Start(context.Background())
	defer sub.Stop()

	require.NoError(t, ps.Publish(context.Background(), chat.UserChannel("bob"), "alice:hi bob"))

	pkt := recvPacket(t, bob)
	require.Equal(t, "receive_private_message", pkt.Type)
	var payload string
	require.NoError(t, json.Unmarshal(pkt.Payload, &payload))
	assert.Equal(t, "alice:hi bob", payload)
}

func TestSubscriber_PrivateMessageNotDeliveredToOthers(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sm := session.NewManager(logger)

	bob := session.NewDetached("bob", logger)
	carol := session.NewDetached("carol", logger)
	sm.Register(bob)
	sm.Register(carol)

	sub := chat.NewSubscriber(ps, sm, logger)
	sub.Start(context.Background())
	defer sub.Stop()

	require.NoError(t, ps.Publish(context.Background(), chat.UserChannel("bob"), "alice:secret"))

	recvPacket(t, bob)
	assertNoPacket(t, carol)
}

func TestSubscriber_GlobalMessageBroadcast(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sm := session.NewManager(logger)

	bob := session.NewDetached("bob", logger)
	carol := session.NewDetached("carol", logger)
	sm.Register(bob)
	sm.Register(carol)

	sub := chat.NewSubscriber(ps, sm, logger)
	sub.Start(context.Background())
	defer sub.Stop()

	require.NoError(t, ps.Publish(context.Background(), chat.GlobalChannel, "alice: hello everyone"))

	for _, s := range []*session.Session{bob, carol} {
		pkt := recvPacket(t, s)
		assert.Equal(t, "receive_message", pkt.Type)
	}
}

func TestSubscriber_MultiDeviceDelivery(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sm := session.NewManager(logger)

	// Two live connections for the same user both receive the message.
	phone := session.NewDetached("bob", logger)
	laptop := session.NewDetached("bob", logger)
	sm.Register(phone)
	sm.Register(laptop)

	sub := chat.NewSubscriber(ps, sm, logger)
	sub.Start(context.Background())
	defer sub.Stop()

	require.NoError(t, ps.Publish(context.Background(), chat.UserChannel("bob"), "alice:ping"))

	recvPacket(t, phone)
	recvPacket(t, laptop)
}

func TestSubscriber_OfflineUserIsNoOp(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sm := session.NewManager(logger)

	sub := chat.NewSubscriber(ps, sm, logger)
	sub.Start(context.Background())
	defer sub.Stop()

	// No session registered for "ghost": publish must not panic or block.
	assert.NoError(t, ps.Publish(context.Background(), chat.UserChannel("ghost"), "alice:anyone there"))
}
