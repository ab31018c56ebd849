package cuecli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/settings"
)

const testSecret = "s3cret"

type daemon struct {
	calls     []string
	lastTrig  common.TriggerNowParams
	lastSet   common.SettingsParams
	lastPause common.PauseNowParams
	failNext  string
}

func (d *daemon) ok(method string) common.OkResponse {
	d.calls = append(d.calls, method)
	if d.failNext != "" {
		msg := d.failNext
		d.failNext = ""
		return common.OkResponse{Error: msg}
	}
	return common.OkResponse{Ok: true}
}

func (d *daemon) methods() handler.Map {
	return handler.Map{
		"start-focus": handler.New(func(_ context.Context, p common.SettingsParams) (common.OkResponse, error) {
			d.lastSet = p
			return d.ok("start-focus"), nil
		}),
		"pause-now": handler.New(func(_ context.Context, p common.PauseNowParams) (common.OkResponse, error) {
			d.lastPause = p
			return d.ok("pause-now"), nil
		}),
		"resume-focus": handler.New(func(context.Context, common.ActionParams) (common.OkResponse, error) {
			return d.ok("resume-focus"), nil
		}),
		"reset-stats": handler.New(func(context.Context, common.ActionParams) (common.OkResponse, error) {
			return d.ok("reset-stats"), nil
		}),
		"trigger-now": handler.New(func(_ context.Context, p common.TriggerNowParams) (common.OkResponse, error) {
			d.lastTrig = p
			return d.ok("trigger-now"), nil
		}),
		"get-stats": handler.New(func(context.Context, common.ActionParams) (common.StatsResponse, error) {
			return common.StatsResponse{FocusMinutes: 12, RestMinutes: 5, Status: "focusing", NextFocusEnd: 1700000000000}, nil
		}),
		"get-settings": handler.New(func(context.Context, common.ActionParams) (settings.Settings, error) {
			s := settings.Default()
			s.IntervalMinutes = 45
			return s, nil
		}),
		"version": handler.New(func(context.Context, common.ActionParams) (common.VersionResponse, error) {
			return common.VersionResponse{Version: "1.2.3"}, nil
		}),
	}
}

func startDaemon(t *testing.T, d *daemon) string {
	t.Helper()
	bridge := jhttp.NewBridge(d.methods(), nil)
	mux := http.NewServeMux()
	mux.Handle("/jsonrpc", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testSecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		bridge.ServeHTTP(w, r)
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		bridge.Close()
	})
	return srv.URL
}

func TestClient_Actions(t *testing.T) {
	d := &daemon{}
	c := NewClient(startDaemon(t, d), testSecret)
	defer c.Close()
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if err := c.StartFocus(ctx, settings.Patch{"intervalMinutes": json.RawMessage("20")}); err != nil {
		t.Fatalf("StartFocus: %v", err)
	}
	if string(d.lastSet.Settings["intervalMinutes"]) != "20" {
		t.Errorf("override not forwarded: %+v", d.lastSet)
	}
	if err := c.PauseNow(ctx, true); err != nil {
		t.Fatalf("PauseNow: %v", err)
	}
	if !d.lastPause.FromPopup {
		t.Errorf("fromPopup not forwarded: %+v", d.lastPause)
	}
	if err := c.ResumeFocus(ctx); err != nil {
		t.Fatalf("ResumeFocus: %v", err)
	}
	if err := c.ResetStats(ctx); err != nil {
		t.Fatalf("ResetStats: %v", err)
	}
	if err := c.TriggerNow(ctx, 30); err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}
	if d.lastTrig.DurationSeconds != 30 {
		t.Errorf("durationSeconds = %v", d.lastTrig.DurationSeconds)
	}

	st, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.FocusMinutes != 12 || st.Status != "focusing" || st.NextFocusEnd != 1700000000000 {
		t.Errorf("Stats() = %+v", st)
	}

	s, err := c.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.IntervalMinutes != 45 {
		t.Errorf("IntervalMinutes = %v", s.IntervalMinutes)
	}

	want := []string{"start-focus", "pause-now", "resume-focus", "reset-stats", "trigger-now"}
	if strings.Join(d.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", d.calls, want)
	}
}

func TestClient_NotOkIsError(t *testing.T) {
	d := &daemon{failNext: "storage unavailable"}
	c := NewClient(startDaemon(t, d), testSecret)
	defer c.Close()

	err := c.PauseNow(context.Background(), false)
	if err == nil || !strings.Contains(err.Error(), "storage unavailable") {
		t.Fatalf("PauseNow() = %v", err)
	}
}

func TestClient_WrongSecret(t *testing.T) {
	c := NewClient(startDaemon(t, &daemon{}), "wrong")
	defer c.Close()
	if _, err := c.Stats(context.Background()); err == nil {
		t.Fatal("expected error with wrong secret")
	}
}

func TestClient_DaemonNotRunning(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	c := NewClient(addr, testSecret)
	defer c.Close()
	if err := c.Health(context.Background()); !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("Health() = %v, want ErrDaemonNotRunning", err)
	}
	if _, err := c.Stats(context.Background()); !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("Stats() = %v, want ErrDaemonNotRunning", err)
	}
}

func TestCheckVersionMismatch(t *testing.T) {
	c := NewClient(startDaemon(t, &daemon{}), testSecret)
	defer c.Close()
	ctx := context.Background()

	var buf bytes.Buffer
	c.CheckVersionMismatch(ctx, &buf, "1.2.3")
	if buf.Len() != 0 {
		t.Errorf("unexpected warning: %s", buf.String())
	}

	c.CheckVersionMismatch(ctx, &buf, "2.0.0")
	if !strings.Contains(buf.String(), "differs") {
		t.Errorf("expected mismatch warning, got %q", buf.String())
	}

	buf.Reset()
	t.Setenv(VersionCheckEnv, "1")
	c.CheckVersionMismatch(ctx, &buf, "2.0.0")
	if buf.Len() != 0 {
		t.Errorf("suppressed check still wrote %q", buf.String())
	}
}
