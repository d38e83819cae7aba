package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"tomorrowplanner/internal/app"
	"tomorrowplanner/internal/ratelimit"
	"tomorrowplanner/internal/util"
	"tomorrowplanner/pkg/domain"
)

// Outbox queues outbound replies for asynchronous delivery.
type Outbox interface {
	Enqueue(ctx context.Context, reply domain.Reply) error
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// Outbox is optional; when nil replies are only returned in the
	// webhook response body.
	Outbox Outbox
	// WebhookSecret, when set, must match the X-Planner-Secret-Token
	// header on webhook calls.
	WebhookSecret string
	// Limiter is optional; when set each user's updates are throttled.
	Limiter *ratelimit.FixedWindowLimiter
}

// Server exposes the webhook and health endpoints.
type Server struct {
	app           *app.App
	outbox        Outbox
	webhookSecret string
	limiter       *ratelimit.FixedWindowLimiter
	mux           *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:           cfg.App,
		outbox:        cfg.Outbox,
		webhookSecret: cfg.WebhookSecret,
		limiter:       cfg.Limiter,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/webhook", s.handleWebhook)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// webhookUpdate mirrors the chat platform's update payload. Exactly one of
// Message or CallbackQuery is set per update.
type webhookUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From *struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat *struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
	CallbackQuery *struct {
		From *struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Message *struct {
			Chat *struct {
				ID   int64  `json:"id"`
				Type string `json:"type"`
			} `json:"chat"`
		} `json:"message"`
		Data string `json:"data"`
	} `json:"callback_query"`
}

type webhookResponse struct {
	Replies []domain.Reply `json:"replies"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.webhookSecret != "" && r.Header.Get("X-Planner-Secret-Token") != s.webhookSecret {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var payload webhookUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	update, ok := toUpdate(payload)
	if !ok {
		// unsupported update kinds are acknowledged so the platform
		// does not redeliver them
		writeJSON(w, http.StatusOK, webhookResponse{Replies: []domain.Reply{}})
		return
	}
	if s.limiter != nil && !s.limiter.Allow(update.UserID) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "too many updates")
		return
	}

	replies := s.app.HandleUpdate(r.Context(), update)
	if s.outbox != nil {
		log := util.LoggerFromContext(r.Context())
		for _, reply := range replies {
			if err := s.outbox.Enqueue(r.Context(), reply); err != nil {
				log.Error("enqueue reply", "err", err, "chat_id", reply.ChatID)
			}
		}
	}
	if replies == nil {
		replies = []domain.Reply{}
	}
	writeJSON(w, http.StatusOK, webhookResponse{Replies: replies})
}

func toUpdate(payload webhookUpdate) (domain.Update, bool) {
	switch {
	case payload.Message != nil:
		m := payload.Message
		if m.From == nil || m.Chat == nil {
			return domain.Update{}, false
		}
		return domain.Update{
			UpdateID: payload.UpdateID,
			UserID:   m.From.ID,
			ChatID:   m.Chat.ID,
			Private:  strings.EqualFold(m.Chat.Type, "private"),
			Text:     m.Text,
		}, true
	case payload.CallbackQuery != nil:
		q := payload.CallbackQuery
		if q.From == nil || q.Message == nil || q.Message.Chat == nil || q.Data == "" {
			return domain.Update{}, false
		}
		return domain.Update{
			UpdateID:     payload.UpdateID,
			UserID:       q.From.ID,
			ChatID:       q.Message.Chat.ID,
			Private:      strings.EqualFold(q.Message.Chat.Type, "private"),
			CallbackData: q.Data,
		}, true
	}
	return domain.Update{}, false
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
