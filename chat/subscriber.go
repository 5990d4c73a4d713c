package chat

import (
	"context"

	"github.com/azattekce/redischat/cache"
	"github.com/azattekce/redischat/session"
	"go.uber.org/zap"
)

// Subscriber is the long-lived fanout consumer: one per process. It
// subscribes to the global channel and the per-user pattern, and hands
// each received message to the session registry. Delivery is a
// non-blocking in-memory write, so the bus loop is never held up.
type Subscriber struct {
	pubsub cache.PubSub
	sm     *session.Manager
	logger *zap.Logger
	cancel func()
}

// NewSubscriber creates the bus subscriber.
func NewSubscriber(ps cache.PubSub, sm *session.Manager, logger *zap.Logger) *Subscriber {
	return &Subscriber{pubsub: ps, sm: sm, logger: logger}
}

// Start subscribes and launches the delivery loop. A failed subscribe is
// logged and leaves the subscriber inert until the next process start;
// there is no in-process resubscription.
func (sub *Subscriber) Start(ctx context.Context) {
	ch, cancel, err := sub.pubsub.PSubscribe(ctx, UserChannelGlob, GlobalChannel)
	if err != nil {
		sub.logger.Error("fanout subscribe failed, live delivery disabled", zap.Error(err))
		return
	}
	sub.cancel = cancel
	sub.logger.Info("subscribed to fanout channels",
		zap.Strings("patterns", []string{UserChannelGlob, GlobalChannel}))

	go func() {
		for msg := range ch {
			sub.deliver(msg)
		}
	}()
}

// Stop unsubscribes and ends the delivery loop.
func (sub *Subscriber) Stop() {
	if sub.cancel != nil {
		sub.cancel()
	}
}

func (sub *Subscriber) deliver(msg *cache.Message) {
	if msg.Channel == GlobalChannel {
		sub.sm.BroadcastEvent("receive_message", msg.Payload)
		return
	}
	userID, ok := ParseUserChannel(msg.Channel)
	if !ok {
		sub.logger.Debug("message on unexpected channel", zap.String("channel", msg.Channel))
		return
	}
	sub.sm.SendEvent(userID, "receive_private_message", msg.Payload)
}
