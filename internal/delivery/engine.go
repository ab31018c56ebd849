package delivery

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	DefaultRetryDelay = 150 * time.Millisecond
	DefaultStylesheet = "overlay.css"
	DefaultScript     = "content.js"
)

// EligiblePatterns restricts tab queries to web pages.
var EligiblePatterns = []string{"http://*/*", "https://*/*"}

// Config tunes the engine.
type Config struct {
	RetryDelay time.Duration
	Stylesheet string
	Script     string
}

func (c Config) withDefaults() Config {
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Stylesheet == "" {
		c.Stylesheet = DefaultStylesheet
	}
	if c.Script == "" {
		c.Script = DefaultScript
	}
	return c
}

// Engine delivers messages through a Host.
type Engine struct {
	host Host
	log  logger.Logger
	// warn limits per-tab failure warnings; suppressed ones go to Debug.
	warn *rate.Limiter

	mu  sync.RWMutex
	cfg Config

	// wait sleeps between injection and retry. Tests replace it.
	wait func(ctx context.Context, d time.Duration) error
}

func NewEngine(host Host, cfg Config, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Engine{
		host: host,
		log:  log,
		warn: rate.NewLimiter(rate.Every(time.Second), 5),
		cfg:  cfg.withDefaults(),
		wait: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetRetryDelay changes the injection-to-retry delay; non-positive values
// restore the default.
func (e *Engine) SetRetryDelay(d time.Duration) {
	if d <= 0 {
		d = DefaultRetryDelay
	}
	e.mu.Lock()
	e.cfg.RetryDelay = d
	e.mu.Unlock()
}

// RetryDelay reports the current injection-to-retry delay.
func (e *Engine) RetryDelay() time.Duration {
	return e.config().RetryDelay
}

func (e *Engine) config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

func (e *Engine) warnf(format string, args ...interface{}) {
	if e.warn.Allow() {
		e.log.Warning(format, args...)
		return
	}
	e.log.Debug(format, args...)
}

// Eligible reports whether a tab URL can host the overlay.
func Eligible(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	}
	return false
}

// SendEnsuringReceipt delivers msg to one tab. When the first attempt fails
// the stylesheet and listener script are injected, and after the retry
// delay delivery is attempted exactly once more. Injection failures are
// logged and otherwise ignored.
func (e *Engine) SendEnsuringReceipt(ctx context.Context, tabID int, msg any) (res Result) {
	res.TabID = tabID
	defer func() {
		if r := recover(); r != nil {
			res.Delivered = false
			res.Err = fmt.Errorf("deliver to tab %d: panic: %v", tabID, r)
		}
	}()

	res.Attempts = 1
	err := e.host.SendMessage(ctx, tabID, msg)
	if err == nil {
		res.Delivered = true
		return res
	}
	e.log.Debug("tab %d did not receive message: %v", tabID, err)
	if ctx.Err() != nil {
		res.Err = ctx.Err()
		return res
	}

	cfg := e.config()
	if err := e.host.InsertCSS(ctx, tabID, []string{cfg.Stylesheet}); err != nil {
		e.warnf("insertCSS failed for tab %d: %v", tabID, err)
	}
	if err := e.host.ExecuteScript(ctx, tabID, []string{cfg.Script}); err != nil {
		e.warnf("executeScript failed for tab %d: %v", tabID, err)
	}
	if err := e.wait(ctx, cfg.RetryDelay); err != nil {
		res.Err = err
		return res
	}

	res.Attempts = 2
	if err := e.host.SendMessage(ctx, tabID, msg); err != nil {
		e.warnf("delivery to tab %d failed after injection: %v", tabID, err)
		res.Err = err
		return res
	}
	res.Delivered = true
	return res
}

// EligibleTabs lists the open web tabs.
func (e *Engine) EligibleTabs(ctx context.Context) ([]common.Tab, error) {
	tabs, err := e.host.QueryTabs(ctx, common.TabQuery{URL: EligiblePatterns})
	if err != nil {
		return nil, fmt.Errorf("query tabs: %w", err)
	}
	return filterEligible(tabs), nil
}

func filterEligible(tabs []common.Tab) []common.Tab {
	out := tabs[:0:0]
	for _, t := range tabs {
		if Eligible(t.URL) {
			out = append(out, t)
		}
	}
	return out
}

// BroadcastAll delivers msg to every eligible tab sequentially, one result
// per tab. A failure on one tab never stops the rest.
func (e *Engine) BroadcastAll(ctx context.Context, msg any) ([]Result, error) {
	tabs, err := e.EligibleTabs(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(tabs))
	for _, t := range tabs {
		results = append(results, e.SendEnsuringReceipt(ctx, t.ID, msg))
	}
	return results, nil
}

// ActiveTab returns the focused tab of the focused window when it is an
// eligible web page.
func (e *Engine) ActiveTab(ctx context.Context) (common.Tab, bool, error) {
	tabs, err := e.host.QueryTabs(ctx, common.TabQuery{
		Active:            true,
		LastFocusedWindow: true,
		URL:               EligiblePatterns,
	})
	if err != nil {
		return common.Tab{}, false, fmt.Errorf("query active tab: %w", err)
	}
	if tabs = filterEligible(tabs); len(tabs) == 0 {
		return common.Tab{}, false, nil
	}
	return tabs[0], true, nil
}

// SendToActive delivers msg to the active tab only. The result is nil when
// there is no eligible active tab.
func (e *Engine) SendToActive(ctx context.Context, msg any) (*Result, error) {
	tab, ok, err := e.ActiveTab(ctx)
	if err != nil || !ok {
		return nil, err
	}
	res := e.SendEnsuringReceipt(ctx, tab.ID, msg)
	return &res, nil
}

// DeliverActiveFirst tries the active tab alone and broadcasts to every
// eligible tab only when that tab is missing or did not receive msg.
func (e *Engine) DeliverActiveFirst(ctx context.Context, msg any) ([]Result, error) {
	res, err := e.SendToActive(ctx, msg)
	if err != nil {
		e.log.Debug("active tab lookup failed: %v", err)
	}
	var results []Result
	if res != nil {
		if res.Delivered {
			return []Result{*res}, nil
		}
		results = append(results, *res)
	}
	all, berr := e.BroadcastAll(ctx, msg)
	results = append(results, all...)
	return results, berr
}
