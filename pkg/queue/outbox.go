// Package queue provides a Redis-stream outbox for outbound chat messages.
// The webhook handler enqueues replies; a sender process (the transport
// collaborator) consumes and delivers them.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tomorrowplanner/pkg/domain"
)

// RedisOutbox appends outbound replies to a capped Redis stream.
type RedisOutbox struct {
	client       *redis.Client
	stream       string
	group        string
	consumerBase string
	block        time.Duration
	maxLen       int64
	readCount    int64
	once         sync.Once
}

// RedisOutboxConfig configures the outbox stream.
type RedisOutboxConfig struct {
	Addr      string
	Password  string
	Stream    string
	Group     string
	Consumer  string
	Block     time.Duration
	MaxLen    int64
	ReadCount int64
}

// NewRedisOutbox builds the outbox client.
func NewRedisOutbox(cfg RedisOutboxConfig) (*RedisOutbox, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		return nil, errors.New("outbox stream required")
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "senders"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = uuid.NewString()
	}
	block := cfg.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	readCount := cfg.ReadCount
	if readCount <= 0 {
		readCount = 10
	}
	return &RedisOutbox{
		client:       redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		block:        block,
		maxLen:       maxLen,
		readCount:    readCount,
	}, nil
}

// Enqueue appends one reply to the stream.
func (o *RedisOutbox) Enqueue(ctx context.Context, reply domain.Reply) error {
	payload, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return o.client.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		MaxLen: o.maxLen,
		Approx: true,
		Values: map[string]any{"reply": string(payload)},
	}).Err()
}

// Start launches consumer goroutines delivering replies through handler.
// Messages are acknowledged only after the handler succeeds; unacked
// messages stay pending for another consumer.
func (o *RedisOutbox) Start(ctx context.Context, concurrency int, handler func(context.Context, domain.Reply) error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	o.ensureGroup(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", o.consumerBase, i)
		go o.consumeLoop(ctx, consumer, handler)
	}
}

func (o *RedisOutbox) ensureGroup(ctx context.Context) {
	o.once.Do(func() {
		err := o.client.XGroupCreateMkStream(ctx, o.stream, o.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			// best-effort; errors will surface on consume
		}
	})
}

func (o *RedisOutbox) consumeLoop(ctx context.Context, consumer string, handler func(context.Context, domain.Reply) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := o.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    o.group,
			Consumer: consumer,
			Streams:  []string{o.stream, ">"},
			Count:    o.readCount,
			Block:    o.block,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				o.handleMessage(ctx, msg, handler)
			}
		}
	}
}

func (o *RedisOutbox) handleMessage(ctx context.Context, msg redis.XMessage, handler func(context.Context, domain.Reply) error) {
	raw, _ := msg.Values["reply"].(string)
	if raw == "" {
		o.ackAndDel(ctx, msg.ID)
		return
	}
	var reply domain.Reply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		o.ackAndDel(ctx, msg.ID)
		return
	}
	if err := handler(ctx, reply); err != nil {
		// left pending for redelivery
		return
	}
	o.ackAndDel(ctx, msg.ID)
}

func (o *RedisOutbox) ackAndDel(ctx context.Context, msgID string) {
	_, _ = o.client.XAck(ctx, o.stream, o.group, msgID).Result()
	_, _ = o.client.XDel(ctx, o.stream, msgID).Result()
}
