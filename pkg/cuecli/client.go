// Package cuecli is the JSON-RPC client the restcue command line uses to
// talk to a running daemon over its loopback HTTP endpoint.
package cuecli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/settings"
)

// ErrDaemonNotRunning is returned when nothing answers on the daemon address.
var ErrDaemonNotRunning = errors.New("restcue daemon is not running")

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 10 * time.Second

type Client struct {
	addr string
	http *http.Client
	rpc  *jrpc2.Client
}

// bearerTransport adds the RPC secret to every request.
type bearerTransport struct {
	base  http.RoundTripper
	token string
}

func (t bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}

// NewClient creates a client for the daemon at addr ("host:port" or a full
// http URL) authenticating with secret.
func NewClient(addr, secret string) *Client {
	base := strings.TrimSuffix(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	hc := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: bearerTransport{base: http.DefaultTransport, token: secret},
	}
	ch := jhttp.NewChannel(base+"/jsonrpc", &jhttp.ChannelOptions{Client: hc})
	return &Client{
		addr: base,
		http: hc,
		rpc:  jrpc2.NewClient(ch, nil),
	}
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

// call invokes method and maps connection failures to ErrDaemonNotRunning.
func (c *Client) call(ctx context.Context, method common.Action, params, result any) error {
	err := c.rpc.CallResult(ctx, string(method), params, result)
	if err == nil {
		return nil
	}
	if isDialError(err) {
		return ErrDaemonNotRunning
	}
	return fmt.Errorf("%s: %w", method, err)
}

// isDialError reports a refused connection. jrpc2 may flatten channel
// errors to text, so the message is checked as well.
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}

// ack invokes a state-changing action and turns a not-ok body into an error.
func (c *Client) ack(ctx context.Context, method common.Action, params any) error {
	var res common.OkResponse
	if err := c.call(ctx, method, params, &res); err != nil {
		return err
	}
	if !res.Ok {
		if res.Error == "" {
			return fmt.Errorf("%s: rejected", method)
		}
		return fmt.Errorf("%s: %s", method, res.Error)
	}
	return nil
}

// Health reports whether the daemon answers its unauthenticated probe.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addr+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ErrDaemonNotRunning
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz: %s", resp.Status)
	}
	return nil
}

func (c *Client) StartFocus(ctx context.Context, override settings.Patch) error {
	return c.ack(ctx, common.ACTION_START_FOCUS, common.SettingsParams{Settings: override})
}

// PauseNow starts a rest immediately. fromPopup selects active-tab-first
// delivery.
func (c *Client) PauseNow(ctx context.Context, fromPopup bool) error {
	return c.ack(ctx, common.ACTION_PAUSE_NOW, common.PauseNowParams{FromPopup: fromPopup})
}

func (c *Client) ResumeFocus(ctx context.Context) error {
	return c.ack(ctx, common.ACTION_RESUME_FOCUS, nil)
}

func (c *Client) ResetStats(ctx context.Context) error {
	return c.ack(ctx, common.ACTION_RESET_STATS, nil)
}

func (c *Client) TriggerNow(ctx context.Context, durationSeconds float64) error {
	return c.ack(ctx, common.ACTION_TRIGGER_NOW, common.TriggerNowParams{DurationSeconds: durationSeconds})
}

func (c *Client) UpdateSettings(ctx context.Context, patch settings.Patch) error {
	return c.ack(ctx, common.ACTION_UPDATE_SETTINGS, common.SettingsParams{Settings: patch})
}

func (c *Client) Stats(ctx context.Context) (common.StatsResponse, error) {
	var res common.StatsResponse
	err := c.call(ctx, common.ACTION_GET_STATS, nil, &res)
	return res, err
}

func (c *Client) Settings(ctx context.Context) (settings.Settings, error) {
	var res settings.Settings
	err := c.call(ctx, common.ACTION_GET_SETTINGS, nil, &res)
	return res, err
}

func (c *Client) Version(ctx context.Context) (common.VersionResponse, error) {
	var res common.VersionResponse
	err := c.call(ctx, common.ACTION_VERSION, nil, &res)
	return res, err
}
