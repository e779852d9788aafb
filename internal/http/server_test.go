package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"catat/internal/core"
	applog "catat/internal/log"
)

type fakeExecutor struct {
	mu      sync.Mutex
	cmds    []core.Command
	senders []string
	reply   string
	err     error
}

func (f *fakeExecutor) Execute(_ context.Context, cmd core.Command, sender string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	f.senders = append(f.senders, sender)
	return f.reply, f.err
}

type sentText struct{ to, body string }

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentText
	err  error
}

func (f *fakeMessenger) SendText(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentText{to, body})
	return f.err
}

func newTestServer(t *testing.T, exec *fakeExecutor, msgr *fakeMessenger, ready map[string]ReadinessCheck) *Server {
	t.Helper()
	logger := applog.New(applog.Config{Level: applog.DefaultConfig().Level, Output: io.Discard})
	return NewServer(":0", Deps{
		Executor:    exec,
		Messenger:   msgr,
		VerifyToken: "rahasia",
		Logger:      logger,
		Ready:       ready,
	})
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"valid handshake", "hub.mode=subscribe&hub.verify_token=rahasia&hub.challenge=1158201444", http.StatusOK, "1158201444"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=salah&hub.challenge=x", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=rahasia&hub.challenge=x", http.StatusForbidden, ""},
		{"missing params", "", http.StatusForbidden, ""},
	}

	s := newTestServer(t, &fakeExecutor{}, &fakeMessenger{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(s, httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if rr.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestVerifyEmptySecretNeverMatches(t *testing.T) {
	logger := applog.New(applog.Config{Output: io.Discard})
	s := NewServer(":0", Deps{Executor: &fakeExecutor{}, Messenger: &fakeMessenger{}, Logger: logger})

	rr := do(s, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=&hub.challenge=x", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

const textNotification = `{
  "object": "whatsapp_business_account",
  "entry": [{"changes": [{"value": {"messages": [{"from": "62811", "text": {"body": "  Catat Pemasukan 500 "}}]}}]}]
}`

func TestReceiveExecutesAndReplies(t *testing.T) {
	exec := &fakeExecutor{reply: "✅ Pemasukan 500 dicatat."}
	msgr := &fakeMessenger{}
	s := newTestServer(t, exec, msgr, nil)

	rr := do(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textNotification)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	if len(exec.cmds) != 1 {
		t.Fatalf("executor called %d times, want 1", len(exec.cmds))
	}
	if got, ok := exec.cmds[0].(core.RecordIncome); !ok || got.Amount != 500 {
		t.Fatalf("unexpected command %#v", exec.cmds[0])
	}
	if exec.senders[0] != "62811" {
		t.Fatalf("sender = %q", exec.senders[0])
	}
	if len(msgr.sent) != 1 || msgr.sent[0] != (sentText{"62811", "✅ Pemasukan 500 dicatat."}) {
		t.Fatalf("unexpected replies %+v", msgr.sent)
	}
}

func TestReceiveAcknowledgement(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantExec   int
	}{
		{"status update without messages", `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"statuses":[{}]}}]}]}`, http.StatusOK, 0},
		{"object without entries", `{"object":"whatsapp_business_account"}`, http.StatusOK, 0},
		{"non-text message", `{"object":"x","entry":[{"changes":[{"value":{"messages":[{"from":"1","type":"image"}]}}]}]}`, http.StatusOK, 1},
		{"entry of the wrong shape", `{"object":"whatsapp_business_account","entry":{}}`, http.StatusOK, 0},
		{"text that is not an object", `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":"62811","text":"hi"}]}}]}]}`, http.StatusOK, 1},
		{"missing object", `{"entry":[]}`, http.StatusNotFound, 0},
		{"object of the wrong type", `{"object":5,"entry":[]}`, http.StatusNotFound, 0},
		{"malformed json", `{"object":`, http.StatusNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{reply: "help"}
			s := newTestServer(t, exec, &fakeMessenger{}, nil)

			rr := do(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tt.body)))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if len(exec.cmds) != tt.wantExec {
				t.Fatalf("executor called %d times, want %d", len(exec.cmds), tt.wantExec)
			}
		})
	}
}

func TestReceiveNonTextGetsUnrecognized(t *testing.T) {
	exec := &fakeExecutor{reply: "help"}
	s := newTestServer(t, exec, &fakeMessenger{}, nil)

	body := `{"object":"x","entry":[{"changes":[{"value":{"messages":[{"from":"1","type":"image"}]}}]}]}`
	do(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
	if _, ok := exec.cmds[0].(core.Unrecognized); !ok {
		t.Fatalf("expected Unrecognized, got %#v", exec.cmds[0])
	}
}

func TestReceiveTextOfWrongTypeGetsHelp(t *testing.T) {
	exec := &fakeExecutor{reply: "help"}
	msgr := &fakeMessenger{}
	s := newTestServer(t, exec, msgr, nil)

	body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":"62811","text":"hi"}]}}]}]}`
	if rr := do(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))); rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if _, ok := exec.cmds[0].(core.Unrecognized); !ok || exec.senders[0] != "62811" {
		t.Fatalf("unexpected command %#v from %q", exec.cmds[0], exec.senders[0])
	}
	if len(msgr.sent) != 1 || msgr.sent[0].to != "62811" {
		t.Fatalf("unexpected replies %+v", msgr.sent)
	}
}

type panickingExecutor struct{}

func (panickingExecutor) Execute(context.Context, core.Command, string) (string, error) {
	panic("ledger exploded")
}

func TestReceivePanicStillAcknowledges(t *testing.T) {
	logger := applog.New(applog.Config{Output: io.Discard})
	msgr := &fakeMessenger{}
	s := NewServer(":0", Deps{Executor: panickingExecutor{}, Messenger: msgr, VerifyToken: "rahasia", Logger: logger})

	rr := do(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textNotification)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(msgr.sent) != 0 {
		t.Fatalf("expected no reply, got %+v", msgr.sent)
	}
}

func TestReceiveExecutorFailureSendsNoReply(t *testing.T) {
	exec := &fakeExecutor{err: core.ErrCorruptState}
	msgr := &fakeMessenger{}
	s := newTestServer(t, exec, msgr, nil)

	rr := do(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textNotification)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(msgr.sent) != 0 {
		t.Fatalf("expected no reply, got %+v", msgr.sent)
	}
}

func TestReceiveReplyFailureStillAcknowledges(t *testing.T) {
	msgr := &fakeMessenger{err: errors.New("graph api down")}
	s := newTestServer(t, &fakeExecutor{reply: "ok"}, msgr, nil)

	rr := do(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textNotification)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestReceiveRejectsOversizedBody(t *testing.T) {
	exec := &fakeExecutor{}
	s := newTestServer(t, exec, &fakeMessenger{}, nil)

	big := `{"object":"x","pad":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rr := do(s, httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(big)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if len(exec.cmds) != 0 {
		t.Fatalf("executor should not run")
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	failing := false
	ready := map[string]ReadinessCheck{
		"storage": func(context.Context) error {
			if failing {
				return errors.New("database is locked")
			}
			return nil
		},
	}
	s := newTestServer(t, &fakeExecutor{}, &fakeMessenger{}, ready)

	if rr := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
	if rr := do(s, httptest.NewRequest(http.MethodGet, "/readyz", nil)); rr.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rr.Code)
	}

	failing = true
	rr := do(s, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "storage") {
		t.Fatalf("readyz failing: %d %q", rr.Code, rr.Body.String())
	}

	// Hit the webhook once so the counter has a series.
	do(s, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	rr = do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "catat_webhook_requests_total") {
		t.Fatalf("metrics missing webhook counter: %d", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, &fakeExecutor{}, &fakeMessenger{}, nil)
	rr := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct client", "203.0.113.7:5000", "", "203.0.113.7"},
		{"untrusted peer cannot spoof", "203.0.113.7:5000", "1.2.3.4", "203.0.113.7"},
		{"trusted proxy forwards", "10.0.0.2:5000", "198.51.100.9, 10.0.0.2", "198.51.100.9"},
		{"trusted proxy with garbage header", "127.0.0.1:5000", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeBody(t *testing.T) {
	if got := normalizeBody("  LAPORAN\x00\n"); got != "laporan" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeBody("Ingatkan 09:15 Rapat\tTim"); got != "ingatkan 09:15 rapat\ttim" {
		t.Fatalf("got %q", got)
	}
}
