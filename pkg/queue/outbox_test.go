package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"tomorrowplanner/pkg/domain"
)

func newTestOutbox(t *testing.T) (*RedisOutbox, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	outbox, err := NewRedisOutbox(RedisOutboxConfig{
		Addr:   mr.Addr(),
		Stream: "planner:outbox",
		Block:  50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new outbox: %v", err)
	}
	return outbox, mr
}

func TestOutboxEnqueueAppendsToStream(t *testing.T) {
	outbox, mr := newTestOutbox(t)
	ctx := context.Background()

	reply := domain.Reply{ChatID: 100, Text: "Event saved! Share it with friends."}
	if err := outbox.Enqueue(ctx, reply); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	msgs, err := client.XRange(ctx, "planner:outbox", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(msgs))
	}
	var got domain.Reply
	if err := json.Unmarshal([]byte(msgs[0].Values["reply"].(string)), &got); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if got.ChatID != 100 || got.Text != reply.Text {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestOutboxStartDeliversReplies(t *testing.T) {
	outbox, _ := newTestOutbox(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, text := range []string{"first", "second"} {
		if err := outbox.Enqueue(ctx, domain.Reply{ChatID: 100, Text: text}); err != nil {
			t.Fatalf("enqueue %q: %v", text, err)
		}
	}

	delivered := make(chan domain.Reply, 2)
	outbox.Start(ctx, 1, func(_ context.Context, reply domain.Reply) error {
		delivered <- reply
		return nil
	})

	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case reply := <-delivered:
			seen[reply.Text] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for delivery, got %v", seen)
		}
	}
	if !seen["first"] || !seen["second"] {
		t.Fatalf("expected both replies delivered, got %v", seen)
	}
}
