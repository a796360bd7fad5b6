package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendawaks/dialogate/internal/admission"
	"github.com/tendawaks/dialogate/internal/auth"
	"github.com/tendawaks/dialogate/internal/config"
	"github.com/tendawaks/dialogate/internal/intent"
	"github.com/tendawaks/dialogate/internal/nlu"
	"github.com/tendawaks/dialogate/internal/session"
	"github.com/tendawaks/dialogate/internal/store"
	"github.com/tendawaks/dialogate/pkg/protocol"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

type fakeDetector struct {
	mu      sync.Mutex
	queries []nlu.Query
	reply   string
	err     error
}

func (f *fakeDetector) DetectIntent(_ context.Context, q nlu.Query) (*nlu.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return &nlu.Result{FulfillmentText: f.reply, Intent: "Default Welcome Intent", Confidence: 1}, nil
}

func (f *fakeDetector) last() nlu.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type testEnv struct {
	srv      *Server
	cfg      *config.Config
	nlu      *fakeDetector
	sessions *session.MemoryStore
	store    store.Store
	verifier *auth.BuiltinVerifier
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Addr = ":0"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Server.PublicPaths = config.DefaultPublicPaths
	cfg.Auth.JWTSecret = testSecret
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100
	return cfg
}

func setupTestServer(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := newTestConfig()
	for _, m := range mutate {
		m(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	verifier := auth.NewBuiltinVerifier(cfg.Auth.JWTSecret, time.Hour, "")
	sessions := session.NewMemoryStore(time.Hour, time.Hour, time.Hour, logger)
	auditor := store.NewAuditor(st, logger)

	handlers := map[string]intent.Handler{
		"WhoAmI": {
			RequiresIdentity: true,
			Fn: func(_ context.Context, req intent.Request) string {
				return "you are " + req.Identity.UserID
			},
		},
		"Echo": {
			Fn: func(_ context.Context, req intent.Request) string {
				return "echo " + req.Param("word")
			},
		},
	}
	dispatcher := intent.NewDispatcher(logger, sessions, handlers, intent.Handler{})

	gate := admission.NewDefault(logger, admission.NewPathSet(cfg.Server.PublicPaths), verifier,
		admission.WithRejectHook(func(r *http.Request, stage string, d admission.Decision) {
			auditor.Record(r.Context(), store.AuditEvent{
				Action:     store.ActionAdmissionRejected,
				RemoteAddr: r.RemoteAddr,
			})
		}))

	det := &fakeDetector{reply: "Hello there"}
	srv := NewServer(cfg, Deps{
		Gate:       gate,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		NLU:        det,
		Store:      st,
		Auditor:    auditor,
	}, logger)

	return &testEnv{srv: srv, cfg: cfg, nlu: det, sessions: sessions, store: st, verifier: verifier}
}

func (e *testEnv) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := e.verifier.Generate(id)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func bearer(tok string) http.Header {
	return http.Header{"Authorization": {"Bearer " + tok}}
}

func decodeReply(t *testing.T, w *httptest.ResponseRecorder) protocol.ChatReply {
	t.Helper()
	var reply protocol.ChatReply
	if err := json.NewDecoder(w.Body).Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return reply
}

func TestHealthz(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestReadyz(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodGet, "/readyz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	env.store.Close()
	w = env.do(t, http.MethodGet, "/readyz", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status after close = %d, want 503", w.Code)
	}
}

func TestChatBindsEmployeeID(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, http.MethodPost, "/api/chat",
		`{"message":"hi","sessionId":"s-1","employeeId":"E42","languageCode":"sw-KE"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body)
	}
	reply := decodeReply(t, w)
	if !reply.Success || reply.Reply != "Hello there" || reply.SessionID != "s-1" || reply.EmployeeID != "E42" {
		t.Errorf("unexpected reply: %+v", reply)
	}

	q := env.nlu.last()
	if q.SessionID != "s-1" || q.Text != "hi" || q.LanguageCode != "sw-KE" {
		t.Errorf("unexpected query: %+v", q)
	}

	id, err := env.sessions.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("session not bound: %v", err)
	}
	if id.UserID != "E42" {
		t.Errorf("bound UserID = %q, want E42", id.UserID)
	}

	events, err := env.store.ListAuditEvents(context.Background(), store.AuditFilter{Action: store.ActionSessionBound})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(events) != 1 || events[0].UserID != "E42" || events[0].SessionID != "s-1" {
		t.Errorf("unexpected audit events: %+v", events)
	}
}

func TestChatBindsBearerIdentity(t *testing.T) {
	env := setupTestServer(t)
	tok := env.token(t, auth.Identity{UserID: "E7", Username: "amina"})

	w := env.do(t, http.MethodPost, "/api/chat", `{"message":"hi","sessionId":"s-2"}`, bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	// /api/chat is public, so the bearer token is not verified and no
	// identity is bound.
	if _, err := env.sessions.Get(context.Background(), "s-2"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestChatCallerOverridesEmployeeHint(t *testing.T) {
	env := setupTestServer(t, func(c *config.Config) { c.Server.PublicPaths = []string{"/api/webhook"} })
	tok := env.token(t, auth.Identity{UserID: "E7", Username: "amina"})

	w := env.do(t, http.MethodPost, "/api/chat",
		`{"message":"hi","sessionId":"s-x","employeeId":"E99"}`, bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", w.Code, w.Body)
	}
	if reply := decodeReply(t, w); reply.EmployeeID != "E7" {
		t.Errorf("reply EmployeeID = %q, want E7", reply.EmployeeID)
	}

	w = env.do(t, http.MethodPost, "/api/webhook", webhookBody("s-x", "WhoAmI", nil), nil)
	if got := decodeWebhook(t, w); got != "you are E7" {
		t.Errorf("fulfillment = %q, want you are E7", got)
	}
}

func TestChatGeneratesSessionID(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`, nil)
	reply := decodeReply(t, w)
	if reply.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
	if env.nlu.last().SessionID != reply.SessionID {
		t.Error("NLU query did not use the generated session id")
	}
	if env.sessions.Len() != 0 {
		t.Error("anonymous chat should not bind a session")
	}
}

func TestChatBlankSessionIDIsGenerated(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodPost, "/api/chat", `{"message":"hello","sessionId":"   "}`, nil)
	reply := decodeReply(t, w)
	if !reply.Success || strings.TrimSpace(reply.SessionID) == "" {
		t.Fatalf("reply = %+v", reply)
	}
	if env.nlu.last().SessionID != reply.SessionID {
		t.Error("NLU query did not use the generated session id")
	}
}

func TestChatEvent(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodPost, "/api/chat", `{"event":"WELCOME","sessionId":"s-3"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env.nlu.last().Event != "WELCOME" {
		t.Errorf("event not forwarded: %+v", env.nlu.last())
	}
}

func TestChatMissingMessage(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodPost, "/api/chat", `{"message":"   ","sessionId":"s-4"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	reply := decodeReply(t, w)
	if reply.Success || reply.Error != errMessageMissing {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if len(env.nlu.queries) != 0 {
		t.Error("NLU should not be called")
	}
}

func TestChatInvalidBody(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodPost, "/api/chat", `{not json`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestChatNLUError(t *testing.T) {
	env := setupTestServer(t)
	env.nlu.err = errors.New("upstream down")

	w := env.do(t, http.MethodPost, "/api/chat", `{"message":"hi","sessionId":"s-5"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	reply := decodeReply(t, w)
	if reply.Success || reply.Reply != msgChatError || reply.Error != errChatFailed {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if strings.Contains(w.Body.String(), "upstream down") {
		t.Error("error details leaked to the client")
	}
}

func webhookBody(session, intentName string, params map[string]any) string {
	b, _ := json.Marshal(protocol.WebhookRequest{
		Session: "projects/hr/agent/sessions/" + session,
		QueryResult: protocol.QueryResult{
			QueryText:  "question",
			Parameters: params,
			Intent:     protocol.Intent{DisplayName: intentName},
		},
	})
	return string(b)
}

func decodeWebhook(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp protocol.WebhookResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode webhook response: %v", err)
	}
	return resp.FulfillmentText
}

func TestWebhookUsesBoundIdentity(t *testing.T) {
	env := setupTestServer(t)

	env.do(t, http.MethodPost, "/api/chat", `{"message":"hi","sessionId":"s-6","employeeId":"E9"}`, nil)

	w := env.do(t, http.MethodPost, "/api/webhook", webhookBody("s-6", "WhoAmI", nil), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decodeWebhook(t, w); got != "you are E9" {
		t.Errorf("fulfillment = %q", got)
	}

	events, _ := env.store.ListAuditEvents(context.Background(), store.AuditFilter{Action: store.ActionWebhookDispatched})
	if len(events) != 1 || events[0].Intent != "WhoAmI" || events[0].SessionID != "s-6" {
		t.Errorf("unexpected audit events: %+v", events)
	}
}

func TestWebhookWithoutIdentity(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodPost, "/api/webhook", webhookBody("unknown", "WhoAmI", nil), nil)
	if got := decodeWebhook(t, w); got != intent.MsgIdentityRequired {
		t.Errorf("fulfillment = %q", got)
	}
}

func TestWebhookParamsAndFallback(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, http.MethodPost, "/api/webhook", webhookBody("s", "Echo", map[string]any{"word": "jambo"}), nil)
	if got := decodeWebhook(t, w); got != "echo jambo" {
		t.Errorf("fulfillment = %q", got)
	}

	w = env.do(t, http.MethodPost, "/api/webhook", webhookBody("s", "NoSuchIntent", nil), nil)
	if got := decodeWebhook(t, w); got != intent.MsgDefault {
		t.Errorf("fallback = %q", got)
	}
}

func TestWebhookInvalidBody(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodPost, "/api/webhook", `[]`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestWebhookBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hook-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	env := setupTestServer(t, func(c *config.Config) {
		c.Auth.WebhookUsername = "nlu"
		c.Auth.WebhookPasswordHash = string(hash)
	})
	body := webhookBody("s", "Echo", map[string]any{"word": "x"})

	w := env.do(t, http.MethodPost, "/api/webhook", body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no credentials: status = %d, want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(body))
	req.SetBasicAuth("nlu", "wrong")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(body))
	req.SetBasicAuth("nlu", "hook-pass")
	rec = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid credentials: status = %d, want 200", rec.Code)
	}
}

func TestProtectedPathRejections(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name   string
		header http.Header
		body   string
	}{
		{"no header", nil, admission.MsgMissingHeader},
		{"wrong scheme", http.Header{"Authorization": {"Basic abc"}}, admission.MsgMissingHeader},
		{"bad token", bearer("not-a-jwt"), admission.MsgInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/me", "", tt.header)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			if got := w.Body.String(); got != tt.body {
				t.Errorf("body = %q, want %q", got, tt.body)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}

	events, _ := env.store.ListAuditEvents(context.Background(), store.AuditFilter{Action: store.ActionAdmissionRejected})
	if len(events) != len(tests) {
		t.Errorf("rejection audit events = %d, want %d", len(events), len(tests))
	}
}

func TestGetMe(t *testing.T) {
	env := setupTestServer(t)
	tok := env.token(t, auth.Identity{UserID: "E1", Username: "baraka", Role: "user"})

	w := env.do(t, http.MethodGet, "/api/me", "", bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var me map[string]string
	if err := json.NewDecoder(w.Body).Decode(&me); err != nil {
		t.Fatal(err)
	}
	if me["id"] != "E1" || me["username"] != "baraka" || me["role"] != "user" {
		t.Errorf("unexpected /api/me: %v", me)
	}
}

func TestAdminAudit(t *testing.T) {
	env := setupTestServer(t)
	userTok := env.token(t, auth.Identity{UserID: "E1", Role: "user"})
	adminTok := env.token(t, auth.Identity{UserID: "A1", Role: "admin"})

	w := env.do(t, http.MethodGet, "/api/admin/audit", "", bearer(userTok))
	if w.Code != http.StatusForbidden {
		t.Fatalf("user: status = %d, want 403", w.Code)
	}

	env.do(t, http.MethodPost, "/api/chat", `{"message":"hi","sessionId":"a","employeeId":"E1"}`, nil)
	env.do(t, http.MethodPost, "/api/chat", `{"message":"hi","sessionId":"b","employeeId":"E2"}`, nil)

	w = env.do(t, http.MethodGet, "/api/admin/audit?action=session.&user_id=E2", "", bearer(adminTok))
	if w.Code != http.StatusOK {
		t.Fatalf("admin: status = %d", w.Code)
	}
	var events []store.AuditEvent
	if err := json.NewDecoder(w.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].SessionID != "b" {
		t.Errorf("unexpected events: %+v", events)
	}

	w = env.do(t, http.MethodGet, "/api/admin/audit?since=yesterday", "", bearer(adminTok))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad since: status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/admin/audit?action=nothing", "", bearer(adminTok))
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty list body = %q, want []", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodOptions, "/api/chat", "", http.Header{"Origin": {"http://portal.local"}})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestChatRateLimited(t *testing.T) {
	env := setupTestServer(t, func(c *config.Config) {
		c.RateLimit.RequestsPerSecond = 0.001
		c.RateLimit.Burst = 2
	})

	for i := 0; i < 2; i++ {
		if w := env.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	if w := env.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
}

func sendFrame(t *testing.T, conn *websocket.Conn, typ, id string, payload any) {
	t.Helper()
	data, _ := json.Marshal(payload)
	if err := conn.WriteJSON(protocol.Envelope{Type: typ, ID: id, Timestamp: time.Now(), Payload: data}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env protocol.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return env
}

func TestChatWebSocket(t *testing.T) {
	env := setupTestServer(t)
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil); err == nil {
		t.Fatal("expected unauthenticated dial to fail")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated dial: resp = %v", resp)
	}

	tok := env.token(t, auth.Identity{UserID: "E5", Username: "zawadi"})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), bearer(tok))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sendFrame(t, conn, protocol.TypePing, "p1", struct{}{})
	if f := readFrame(t, conn); f.Type != protocol.TypePong || f.ID != "p1" {
		t.Errorf("ping reply = %+v", f)
	}

	sendFrame(t, conn, protocol.TypeChatMessage, "m1", protocol.ChatRequest{Message: "hi", SessionID: "ws-1"})
	f := readFrame(t, conn)
	if f.Type != protocol.TypeChatReply || f.ID != "m1" {
		t.Fatalf("chat reply frame = %+v", f)
	}
	var reply protocol.ChatReply
	if err := json.Unmarshal(f.Payload, &reply); err != nil {
		t.Fatal(err)
	}
	if !reply.Success || reply.Reply != "Hello there" || reply.SessionID != "ws-1" {
		t.Errorf("reply = %+v", reply)
	}

	id, err := env.sessions.Get(context.Background(), "ws-1")
	if err != nil || id.UserID != "E5" {
		t.Errorf("session binding = %+v, %v", id, err)
	}

	sendFrame(t, conn, "bogus", "x1", struct{}{})
	if f := readFrame(t, conn); f.Type != protocol.TypeError || f.ID != "x1" {
		t.Errorf("unknown frame reply = %+v", f)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{oops")); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != protocol.TypeError {
		t.Errorf("bad frame reply = %+v", f)
	}
}

func TestChatWebSocketIgnoresEmployeeHint(t *testing.T) {
	env := setupTestServer(t)
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	tok := env.token(t, auth.Identity{UserID: "E7", Username: "amina"})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), bearer(tok))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sendFrame(t, conn, protocol.TypeChatMessage, "m1",
		protocol.ChatRequest{Message: "hi", SessionID: "ws-x", EmployeeID: "E99"})
	if f := readFrame(t, conn); f.Type != protocol.TypeChatReply {
		t.Fatalf("frame = %+v", f)
	}

	id, err := env.sessions.Get(context.Background(), "ws-x")
	if err != nil || id.UserID != "E7" {
		t.Errorf("session binding = %+v, %v; want E7", id, err)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	env := setupTestServer(t, func(c *config.Config) { c.Server.MaxBodyBytes = 32 })
	body := `{"message":"` + string(bytes.Repeat([]byte("a"), 100)) + `"}`
	w := env.do(t, http.MethodPost, "/api/chat", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
