package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/restcue/restcue/common"
)

const testSecret = "ws-test-secret"

func testMethods() handler.Map {
	return handler.Map{
		"version": handler.New(func(context.Context) (common.VersionResponse, error) {
			return common.VersionResponse{Version: "1.0.0"}, nil
		}),
	}
}

// newTestWebServer starts an httptest server over the web handler and
// returns its URL, the extension registry and a cleanup function.
func newTestWebServer(t *testing.T) (string, *Extensions) {
	t.Helper()
	ext := NewExtensions(nil)
	ws := NewWebServer(nil, Config{Secret: testSecret}, testMethods(), ext)
	srv := httptest.NewServer(ws.handler())
	t.Cleanup(func() {
		ws.cancel()
		srv.Close()
		ws.bridge.Close()
	})
	return srv.URL, ext
}

func wsURL(base string) string {
	return "ws" + strings.TrimPrefix(base, "http") + "/jsonrpc/ws"
}

func waitForCount(t *testing.T, ext *Extensions, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for ext.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d registered extensions, got %d", n, ext.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealthz(t *testing.T) {
	base, _ := newTestWebServer(t)
	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok\n" {
		t.Fatalf("unexpected healthz %d %q", resp.StatusCode, body)
	}
}

func TestHTTPBridge(t *testing.T) {
	base, _ := newTestWebServer(t)
	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"version"}`)

	req, _ := http.NewRequest(http.MethodPost, base+"/jsonrpc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPost, base+"/jsonrpc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testSecret)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Result common.VersionResponse `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Result.Version != "1.0.0" {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestWebSocketEndpoint_AuthRequired(t *testing.T) {
	base, _ := newTestWebServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := cws.Dial(ctx, wsURL(base), nil)
	if err == nil {
		t.Fatal("expected error for unauthorized WebSocket connection")
	}
	if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWebSocketEndpoint_QueryToken(t *testing.T) {
	base, ext := newTestWebServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := cws.Dial(ctx, wsURL(base)+"?token="+testSecret, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	waitForCount(t, ext, 1)
	conn.Close(cws.StatusNormalClosure, "")
	waitForCount(t, ext, 0)
}

func TestWebSocketEndpoint_ExtensionOrigin(t *testing.T) {
	base, ext := newTestWebServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := cws.Dial(ctx, wsURL(base), &cws.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + testSecret},
			"Origin":        []string{"chrome-extension://abcdefghijklmnop"},
		},
	})
	if err != nil {
		t.Fatalf("extension origin rejected: %v", err)
	}
	defer conn.Close(cws.StatusNormalClosure, "")
	waitForCount(t, ext, 1)

	_, _, err = cws.Dial(ctx, wsURL(base), &cws.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + testSecret},
			"Origin":        []string{"https://evil.test"},
		},
	})
	if err == nil {
		t.Fatal("expected foreign origin to be rejected")
	}
}

func TestWebSocketEndpoint_RequestAndCallback(t *testing.T) {
	base, ext := newTestWebServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := cws.Dial(ctx, wsURL(base), &cws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + testSecret}},
	})
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	b := &fakeBrowser{
		tabs:     []common.Tab{{ID: 4, URL: "https://d.test", Active: true}},
		listener: map[int]bool{4: true},
	}
	cli := jrpc2.NewClient(&wsChannel{conn: conn, ctx: ctx}, &jrpc2.ClientOptions{OnCallback: b.onCallback})
	defer cli.Close()

	var v common.VersionResponse
	if err := cli.CallResult(ctx, "version", nil, &v); err != nil {
		t.Fatalf("call over websocket: %v", err)
	}
	if v.Version != "1.0.0" {
		t.Fatalf("unexpected version %+v", v)
	}

	waitForCount(t, ext, 1)
	tabs, err := ext.QueryTabs(ctx, common.TabQuery{Active: true})
	if err != nil {
		t.Fatalf("callback over websocket: %v", err)
	}
	if len(tabs) != 1 || tabs[0].ID != 4 {
		t.Fatalf("unexpected tabs %+v", tabs)
	}
	if err := ext.SendMessage(ctx, 4, common.EndRestMessage{Action: common.ACTION_END_REST}); err != nil {
		t.Fatal(err)
	}
}

func TestWebServer_StartShutdown(t *testing.T) {
	ws := NewWebServer(nil, Config{Addr: "127.0.0.1:0", Secret: testSecret}, testMethods(), NewExtensions(nil))
	ctx, cancel := context.WithCancel(context.Background())
	addr, err := ws.Listen()
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- ws.Start(ctx) }()

	resp, err := http.Get("http://" + addr.String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
