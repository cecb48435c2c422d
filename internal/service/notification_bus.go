package service

import (
	"context"
	"encoding/json"
	"sync"
	"tp_portal_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const notificationChannel = "notification_channel"

// NotificationBus carries "the notifications of this recipient changed"
// signals to every open stream. Signals carry no payload; streams re-read
// the store when woken.
type NotificationBus interface {
	Publish(ctx context.Context, recipientID uint) error
	Subscribe(recipientID uint) (<-chan struct{}, func())
}

// LocalBus fans signals out to subscribers of this process.
type LocalBus struct {
	mu   sync.Mutex
	subs map[uint]map[chan struct{}]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[uint]map[chan struct{}]struct{})}
}

func (b *LocalBus) Publish(_ context.Context, recipientID uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[recipientID] {
		// a pending signal already covers this change
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe returns the signal channel and its cancel func. Cancel closes
// the channel.
func (b *LocalBus) Subscribe(recipientID uint) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.subs[recipientID] == nil {
		b.subs[recipientID] = make(map[chan struct{}]struct{})
	}
	b.subs[recipientID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[recipientID], ch)
			if len(b.subs[recipientID]) == 0 {
				delete(b.subs, recipientID)
			}
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

func (b *LocalBus) subscriberCount(recipientID uint) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[recipientID])
}

type busMessage struct {
	RecipientID uint `json:"recipientId"`
}

// RedisBus publishes signals on a Redis channel so that every instance wakes
// its local streams.
type RedisBus struct {
	Redis *redis.Client
	local *LocalBus
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{Redis: rdb, local: NewLocalBus()}
}

func (b *RedisBus) Publish(ctx context.Context, recipientID uint) error {
	payload, err := json.Marshal(busMessage{RecipientID: recipientID})
	if err != nil {
		return err
	}
	return b.Redis.Publish(ctx, notificationChannel, payload).Err()
}

func (b *RedisBus) Subscribe(recipientID uint) (<-chan struct{}, func()) {
	return b.local.Subscribe(recipientID)
}

// Run relays Redis messages to local subscribers until ctx is done.
func (b *RedisBus) Run(ctx context.Context) {
	pubsub := b.Redis.Subscribe(ctx, notificationChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m busMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				logger.Log.Error("Notification bus unmarshal error", zap.Error(err))
				continue
			}
			b.local.Publish(ctx, m.RecipientID)
		}
	}
}
