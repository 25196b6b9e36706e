package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// methodRecorder serves a fake Bot API and records the methods called.
type methodRecorder struct {
	mu      sync.Mutex
	methods []string
	webhook SetWebhookRequest
	failOn  string
}

func (m *methodRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		m.mu.Lock()
		m.methods = append(m.methods, method)
		if method == "setWebhook" {
			_ = json.NewDecoder(r.Body).Decode(&m.webhook)
		}
		m.mu.Unlock()

		if method == m.failOn {
			writeJSON(t, w, APIResponse[bool]{OK: false, ErrorCode: 400, Description: "Bad Request: bad webhook"})
			return
		}
		switch method {
		case "getUpdates":
			time.Sleep(20 * time.Millisecond)
			writeJSON(t, w, APIResponse[[]Update]{OK: true, Result: []Update{}})
		default:
			writeJSON(t, w, APIResponse[bool]{OK: true, Result: true})
		}
	}
}

func (m *methodRecorder) called(method string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, got := range m.methods {
		if got == method {
			return true
		}
	}
	return false
}

func TestTransportWebhookLifecycle(t *testing.T) {
	rec := &methodRecorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	cfg := Config{
		Mode:           ModeWebhook,
		WebhookURL:     "https://bot.example.com/telegram/webhook",
		WebhookSecret:  "s3cret",
		AllowedUpdates: DefaultAllowedUpdates,
	}
	tr := NewTransport(NewClient("TOKEN", srv.URL, 0), func(context.Context, *Update) {}, discardLogger(), cfg)
	if tr.ModuleInfo().ID != "telegram.transport" {
		t.Errorf("id = %q", tr.ModuleInfo().ID)
	}

	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.webhook.URL != cfg.WebhookURL || rec.webhook.SecretToken != "s3cret" {
		t.Errorf("setWebhook = %+v", rec.webhook)
	}
	if len(rec.webhook.AllowedUpdates) != len(DefaultAllowedUpdates) {
		t.Errorf("allowed updates = %v", rec.webhook.AllowedUpdates)
	}
	if rec.called("getUpdates") {
		t.Error("webhook mode polled")
	}

	if err := tr.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !rec.called("deleteWebhook") {
		t.Error("webhook not deleted on stop")
	}
}

func TestTransportWebhookRegistrationFailure(t *testing.T) {
	rec := &methodRecorder{failOn: "setWebhook"}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	tr := NewTransport(NewClient("TOKEN", srv.URL, 0), func(context.Context, *Update) {}, discardLogger(),
		Config{Mode: ModeWebhook, WebhookURL: "https://bot.example.com/hook"})
	if err := tr.Start(); err == nil {
		t.Fatal("expected setWebhook error")
	}
}

func TestTransportPollingLifecycle(t *testing.T) {
	rec := &methodRecorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	tr := NewTransport(NewClient("TOKEN", srv.URL, 0), func(context.Context, *Update) {}, discardLogger(),
		Config{Mode: ModePolling})
	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := tr.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if !rec.called("deleteWebhook") || !rec.called("getUpdates") {
		t.Errorf("methods = %v", rec.methods)
	}
	if rec.called("setWebhook") {
		t.Error("polling mode registered a webhook")
	}
}
