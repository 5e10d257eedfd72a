package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"nuverse/internal/app"
	"nuverse/internal/chatbot"
	"nuverse/internal/ratelimit"
	"nuverse/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                       *app.App
	Chat                      *chatbot.Client
	RedisAddr                 string
	RedisPassword             string
	ContactRateLimitPerMinute int
	ChatbotRateLimitPerMinute int
	TrustedProxyCIDRs         []string
	AllowedOrigins            []string
}

// Server exposes the HTTP endpoints for the marketing site backend.
type Server struct {
	app            *app.App
	chat           *chatbot.Client
	mux            *http.ServeMux
	trustedProxies *util.TrustedProxies
	allowedOrigins []string
	contactLimiter *ratelimit.FixedWindowLimiter
	chatLimiter    *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	contactLimit := cfg.ContactRateLimitPerMinute
	if contactLimit <= 0 {
		contactLimit = 6
	}
	chatLimit := cfg.ChatbotRateLimitPerMinute
	if chatLimit <= 0 {
		chatLimit = 30
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	contactLimiter, err := ratelimit.NewFixedWindowLimiter(redisClient, "nuverse:ratelimit:contact", contactLimit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init contact limiter: %w", err)
	}
	chatLimiter, err := ratelimit.NewFixedWindowLimiter(redisClient, "nuverse:ratelimit:chatbot", chatLimit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init chatbot limiter: %w", err)
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		chat:           cfg.Chat,
		mux:            http.NewServeMux(),
		trustedProxies: trusted,
		allowedOrigins: cfg.AllowedOrigins,
		contactLimiter: contactLimiter,
		chatLimiter:    chatLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	handler := util.WithSecurityHeaders(util.WithCORS(s.allowedOrigins, s.mux))
	handler = util.WithRequestLog("nuverse", handler)
	return util.WithRequestID(handler)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// contact pipeline
	s.mux.HandleFunc("/api/contact", s.handleContact)

	// chatbot proxy
	s.mux.HandleFunc("/api/chatbot/ask", s.handleChatbotAsk)
	s.mux.HandleFunc("/api/chatbot/detect-category", s.handleChatbotDetectCategory)
	s.mux.HandleFunc("/api/chatbot/clear-memory", s.handleChatbotClearMemory)
	s.mux.HandleFunc("/api/chatbot/health", s.handleChatbotHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleContact runs the submission pipeline. Pipeline failures come back as
// HTTP 200 with a status/message payload so the front-end renders them
// inline without special-casing HTTP status codes.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.contactLimiter, "too many contact submissions") {
		s.audit(r, "contact.submit", "rate_limited")
		return
	}
	var req contactRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "contact.submit", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg, ok := req.validate(); !ok {
		s.audit(r, "contact.submit", "fail", "reason", "validation")
		writeStatus(w, "error", msg)
		return
	}

	err := s.app.Submit(r.Context(), app.SubmissionForm{
		FullName:     req.FullName,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		Reason:       req.Reason,
		CaptchaToken: req.CaptchaToken,
		RemoteIP:     s.clientIP(r),
	})
	switch {
	case err == nil:
		s.audit(r, "contact.submit", "success")
		writeStatus(w, "sent", "")
	case errors.Is(err, app.ErrCaptchaRejected):
		s.audit(r, "contact.submit", "fail", "reason", "captcha_rejected")
		writeStatus(w, "error", app.ErrCaptchaRejected.Error())
	case errors.Is(err, app.ErrNotifyFailed):
		s.audit(r, "contact.submit", "fail", "reason", "notify_failed")
		writeStatus(w, "error", app.ErrNotifyFailed.Error())
	default:
		// Unexpected fault: log with detail, report a generic message.
		slog.Error("contact submission failed", "err", err, "request_id", util.RequestIDFromRequest(r))
		writeStatus(w, "error", "an internal server error occurred")
	}
}

func (s *Server) handleChatbotAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.chatLimiter, "too many chatbot requests") {
		s.audit(r, "chatbot.ask", "rate_limited")
		return
	}
	var req chatbotRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	ans, err := s.chat.Ask(r.Context(), req.Question, req.SessionID)
	if err != nil {
		writeChatbotError(w, err)
		return
	}
	s.app.RecordInteraction(r.Context(), req.Question, ans.Answer, req.SessionID, ans.Category)
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleChatbotDetectCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req chatbotRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	category, err := s.chat.DetectCategory(r.Context(), req.Question)
	if err != nil {
		writeChatbotError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"category": category})
}

func (s *Server) handleChatbotClearMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req clearMemoryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.chat.ClearMemory(r.Context(), req.SessionID); err != nil {
		writeChatbotError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("memory cleared for session: %s", req.SessionID),
	})
}

func (s *Server) handleChatbotHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	health, err := s.chat.HealthCheck(r.Context())
	if err != nil {
		writeChatbotError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + s.clientIP(r)
	if limiter.Allow(r.Context(), key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.trustedProxies)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", s.clientIP(r),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
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

// writeStatus emits the contact response contract: always HTTP 200 with a
// status ("sent" or "error") and an optional message.
func writeStatus(w http.ResponseWriter, status, message string) {
	payload := map[string]string{"status": status}
	if message != "" {
		payload["message"] = message
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeChatbotError(w http.ResponseWriter, err error) {
	var apiErr *chatbot.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Status, apiErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, "chatbot service unavailable")
}
