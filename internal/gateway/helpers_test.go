package gateway

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// fakePinger reports err on every Ping.
type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

// recordingWebhook records the last payload it was given.
type recordingWebhook struct {
	calls   int
	body    []byte
	headers http.Header
	err     error
}

func (w *recordingWebhook) HandleWebhook(_ context.Context, body []byte, headers http.Header) error {
	w.calls++
	w.body = body
	w.headers = headers
	return w.err
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

// doGet makes a GET request with context.
func doGet(t *testing.T, url string) *http.Response {
	t.Helper()
	return doGetWithBearer(t, url, "")
}

// doGetWithBearer makes a GET request with a bearer token.
func doGetWithBearer(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func testConfig(addr string, auth AuthConfig) Config {
	cfg := Config{
		Bind:            addr,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		Auth:            auth,
	}
	cfg.Defaults()
	return cfg
}
