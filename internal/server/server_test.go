package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"tomorrowplanner/internal/app"
	"tomorrowplanner/internal/invite"
	"tomorrowplanner/internal/ratelimit"
	"tomorrowplanner/pkg/domain"
	"tomorrowplanner/pkg/store"
)

type captureOutbox struct {
	replies []domain.Reply
}

func (c *captureOutbox) Enqueue(_ context.Context, reply domain.Reply) error {
	c.replies = append(c.replies, reply)
	return nil
}

func newTestServer(t *testing.T, secret string, outbox Outbox) *Server {
	t.Helper()
	st, err := store.NewGormStore("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	codec, err := invite.NewCodec("server-test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	core, err := app.New(app.Config{
		Store:       st,
		Sessions:    store.NewMemorySessionStore(),
		Codec:       codec,
		BotUsername: "tomorrow_planner_bot",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return New(Config{App: core, Outbox: outbox, WebhookSecret: secret})
}

func messageBody(userID int64, text string) string {
	payload := map[string]any{
		"update_id": 1,
		"message": map[string]any{
			"from": map[string]any{"id": userID},
			"chat": map[string]any{"id": userID, "type": "private"},
			"text": text,
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func postWebhook(t *testing.T, srv *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeReplies(t *testing.T, rec *httptest.ResponseRecorder) []domain.Reply {
	t.Helper()
	var resp webhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Replies
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestWebhookHandlesMessage(t *testing.T) {
	srv := newTestServer(t, "", nil)
	rec := postWebhook(t, srv, messageBody(7, "/help"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	replies := decodeReplies(t, rec)
	if len(replies) != 1 || !strings.Contains(replies[0].Text, "/new") {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestWebhookHandlesCallback(t *testing.T) {
	srv := newTestServer(t, "", nil)
	payload := map[string]any{
		"update_id": 2,
		"callback_query": map[string]any{
			"from":    map[string]any{"id": 9},
			"message": map[string]any{"chat": map[string]any{"id": 9, "type": "private"}},
			"data":    "view:12",
		},
	}
	raw, _ := json.Marshal(payload)
	rec := postWebhook(t, srv, string(raw), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	replies := decodeReplies(t, rec)
	if len(replies) != 1 {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestWebhookSecretRequired(t *testing.T) {
	srv := newTestServer(t, "hook-secret", nil)

	rec := postWebhook(t, srv, messageBody(1, "/help"), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret: status = %d", rec.Code)
	}

	rec = postWebhook(t, srv, messageBody(1, "/help"), map[string]string{"X-Planner-Secret-Token": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d", rec.Code)
	}

	rec = postWebhook(t, srv, messageBody(1, "/help"), map[string]string{"X-Planner-Secret-Token": "hook-secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("correct secret: status = %d", rec.Code)
	}
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	srv := newTestServer(t, "", nil)
	rec := postWebhook(t, srv, "{not json", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebhookAcknowledgesUnsupportedUpdates(t *testing.T) {
	srv := newTestServer(t, "", nil)
	rec := postWebhook(t, srv, `{"update_id":3}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if replies := decodeReplies(t, rec); len(replies) != 0 {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebhookRateLimitsPerUser(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	srv := newTestServer(t, "", nil)
	srv.limiter = limiter

	for i := 0; i < 2; i++ {
		if rec := postWebhook(t, srv, messageBody(5, "/help"), nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
	rec := postWebhook(t, srv, messageBody(5, "/help"), nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
	// a different user is unaffected
	if rec := postWebhook(t, srv, messageBody(6, "/help"), nil); rec.Code != http.StatusOK {
		t.Fatalf("other user: status = %d", rec.Code)
	}
}

func TestWebhookEnqueuesReplies(t *testing.T) {
	outbox := &captureOutbox{}
	srv := newTestServer(t, "", outbox)
	rec := postWebhook(t, srv, messageBody(4, "/start"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(outbox.replies) != 1 || outbox.replies[0].ChatID != 4 {
		t.Fatalf("enqueued = %+v", outbox.replies)
	}
}
