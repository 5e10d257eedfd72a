package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"nuverse/internal/app"
	"nuverse/internal/chatbot"
	"nuverse/internal/store"
)

type stubVerifier struct {
	ok  bool
	err error
}

func (s *stubVerifier) Verify(context.Context, string, string) (bool, error) {
	return s.ok, s.err
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Send(_ context.Context, _, _, _, _ string) error {
	s.calls++
	return s.err
}

type testEnv struct {
	server   *Server
	store    *store.MemoryStore
	notifier *stubNotifier
	verifier *stubVerifier
}

func newTestEnv(t *testing.T, chatbotURL string, contactLimit int) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)

	verifier := &stubVerifier{ok: true}
	notifier := &stubNotifier{}
	st := store.NewMemoryStore()
	a, err := app.New(app.Config{
		Verifier:       verifier,
		Store:          st,
		Notifier:       notifier,
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if chatbotURL == "" {
		chatbotURL = "http://127.0.0.1:0"
	}
	srv, err := New(Config{
		App:                       a,
		Chat:                      chatbot.NewClient(chatbotURL),
		RedisAddr:                 mr.Addr(),
		ContactRateLimitPerMinute: contactLimit,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testEnv{server: srv, store: st, notifier: notifier, verifier: verifier}
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func validContact() map[string]string {
	return map[string]string{
		"fullName":     "Ada Lovelace",
		"email":        "ada@example.com",
		"phoneNumber":  "+20 100 000 0000",
		"reason":       "campus tour request",
		"captchaToken": "tok",
	}
}

func TestContactHappyPath(t *testing.T) {
	env := newTestEnv(t, "", 0)
	rec := postJSON(t, env.server.Router(), "/api/contact", validContact())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "sent" {
		t.Fatalf("body = %v, want status sent", body)
	}
	subs, _ := env.store.ListSubmissions(context.Background())
	if len(subs) != 1 {
		t.Fatalf("len(submissions) = %d, want 1", len(subs))
	}
	if env.notifier.calls != 1 {
		t.Fatalf("notifier calls = %d, want 1", env.notifier.calls)
	}
}

func TestContactValidationFailureIsOKWithErrorStatus(t *testing.T) {
	env := newTestEnv(t, "", 0)
	payload := validContact()
	payload["email"] = ""
	rec := postJSON(t, env.server.Router(), "/api/contact", payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "error" || body["message"] != "email is required" {
		t.Fatalf("body = %v", body)
	}
	if env.notifier.calls != 0 {
		t.Fatalf("nothing should be sent on invalid input")
	}
}

func TestContactCaptchaRejected(t *testing.T) {
	env := newTestEnv(t, "", 0)
	env.verifier.ok = false
	rec := postJSON(t, env.server.Router(), "/api/contact", validContact())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "error" || body["message"] != "captcha verification failed" {
		t.Fatalf("body = %v", body)
	}
	subs, _ := env.store.ListSubmissions(context.Background())
	if len(subs) != 0 {
		t.Fatalf("no row should be written on rejection")
	}
}

func TestContactNotifyFailure(t *testing.T) {
	env := newTestEnv(t, "", 0)
	env.notifier.err = errors.New("smtp timeout")
	rec := postJSON(t, env.server.Router(), "/api/contact", validContact())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "error" || body["message"] != "failed to send email" {
		t.Fatalf("body = %v", body)
	}
}

func TestContactInvalidJSON(t *testing.T) {
	env := newTestEnv(t, "", 0)
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestContactMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, "", 0)
	req := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestContactRateLimit(t *testing.T) {
	env := newTestEnv(t, "", 2)
	handler := env.server.Router()

	for i := 0; i < 2; i++ {
		if rec := postJSON(t, handler, "/api/contact", validContact()); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}
	rec := postJSON(t, handler, "/api/contact", validContact())
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
}

func TestChatbotAskProxiesAndRecords(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(chatbot.Answer{
			Answer:   "Applications open in May.",
			Category: "Admissions",
			Sources:  []string{"admissions.pdf"},
		})
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL, 0)
	rec := postJSON(t, env.server.Router(), "/api/chatbot/ask", map[string]string{
		"question":  "When do applications open?",
		"sessionId": "sess-1",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var ans chatbot.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &ans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ans.Answer != "Applications open in May." || ans.Category != "Admissions" {
		t.Fatalf("answer = %+v", ans)
	}
	interactions, _ := env.store.ListInteractions(context.Background())
	if len(interactions) != 1 {
		t.Fatalf("len(interactions) = %d, want 1", len(interactions))
	}
	if interactions[0].SessionID != "sess-1" || interactions[0].Category != "Admissions" {
		t.Fatalf("interaction = %+v", interactions[0])
	}
}

func TestChatbotAskEmptyQuestion(t *testing.T) {
	env := newTestEnv(t, "", 0)
	rec := postJSON(t, env.server.Router(), "/api/chatbot/ask", map[string]string{"question": "  "})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatbotAskUpstreamErrorPassedThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "model is loading"})
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL, 0)
	rec := postJSON(t, env.server.Router(), "/api/chatbot/ask", map[string]string{"question": "hi"})

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "model is loading" {
		t.Fatalf("body = %v", body)
	}
	interactions, _ := env.store.ListInteractions(context.Background())
	if len(interactions) != 0 {
		t.Fatalf("failed exchanges must not be recorded")
	}
}

func TestChatbotAskUnreachableUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	upstream.Close()

	env := newTestEnv(t, upstream.URL, 0)
	rec := postJSON(t, env.server.Router(), "/api/chatbot/ask", map[string]string{"question": "hi"})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestChatbotDetectCategory(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect-category" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"category": "Fees"})
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL, 0)
	rec := postJSON(t, env.server.Router(), "/api/chatbot/detect-category", map[string]string{"question": "How much?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["category"] != "Fees" {
		t.Fatalf("body = %v", body)
	}
}

func TestChatbotClearMemory(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clear-memory" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL, 0)
	rec := postJSON(t, env.server.Router(), "/api/chatbot/clear-memory", map[string]string{"sessionId": "sess-9"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["message"] == "" {
		t.Fatalf("body = %v", body)
	}
}

func TestChatbotHealth(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(chatbot.Health{Status: "healthy", Version: "1.2.0"})
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/chatbot/health", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var health chatbot.Health
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "healthy" {
		t.Fatalf("health = %+v", health)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, "", 0)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers")
	}
}
