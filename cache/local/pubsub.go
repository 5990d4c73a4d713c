package local

import (
	"context"
	"path"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

type subscriber struct {
	ch chan *LocalMessage
}

type patternSubscriber struct {
	pattern string
	ch      chan *LocalMessage
}

// LocalPubSub is an in-process fan-out pub/sub implementation with both
// exact-channel and glob-pattern subscriptions, mirroring the Redis
// SUBSCRIBE / PSUBSCRIBE split.
type LocalPubSub struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	patterns    []*patternSubscriber
	bufSize     int
}

// NewPubSub creates a new LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		subscribers: make(map[string][]*subscriber),
		bufSize:     bufSize,
	}
}

// Publish sends a message to all exact subscribers of the channel and all
// pattern subscribers whose pattern matches it. The sends happen under the
// read lock: cancel closes the subscriber channel under the write lock, so
// a send can never race the close.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, s := range ps.subscribers[channel] {
		select {
		case s.ch <- msg:
		default:
			// Drop message if buffer is full (non-blocking)
		}
	}
	for _, p := range ps.patterns {
		if ok, _ := path.Match(p.pattern, channel); !ok {
			continue
		}
		select {
		case p.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of messages for the given channels, and a cancel function.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	ch := make(chan *LocalMessage, ps.bufSize)
	subs := make([]*subscriber, len(channels))

	ps.mu.Lock()
	for i, c := range channels {
		s := &subscriber{ch: ch}
		ps.subscribers[c] = append(ps.subscribers[c], s)
		subs[i] = s
	}
	ps.mu.Unlock()

	cancel := func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		for i, c := range channels {
			list := ps.subscribers[c]
			for j, sub := range list {
				if sub == subs[i] {
					ps.subscribers[c] = append(list[:j], list[j+1:]...)
					break
				}
			}
		}
		close(ch)
	}

	return ch, cancel, nil
}

// PSubscribe returns a channel of messages for all channels matching the
// given glob patterns, and a cancel function.
func (ps *LocalPubSub) PSubscribe(_ context.Context, patterns ...string) (<-chan *LocalMessage, func(), error) {
	ch := make(chan *LocalMessage, ps.bufSize)
	added := make([]*patternSubscriber, len(patterns))

	ps.mu.Lock()
	for i, p := range patterns {
		sub := &patternSubscriber{pattern: p, ch: ch}
		ps.patterns = append(ps.patterns, sub)
		added[i] = sub
	}
	ps.mu.Unlock()

	cancel := func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		for _, sub := range added {
			for j, p := range ps.patterns {
				if p == sub {
					ps.patterns = append(ps.patterns[:j], ps.patterns[j+1:]...)
					break
				}
			}
		}
		close(ch)
	}

	return ch, cancel, nil
}
