// Package delivery gets overlay messages seen by a content listener in at
// least one browser tab. It injects the listener on demand, retries once,
// and falls back from the active tab to every eligible tab.
package delivery

import (
	"context"
	"errors"

	"github.com/restcue/restcue/common"
)

// ErrNoReceiver reports that a tab had no content listener for a message.
var ErrNoReceiver = errors.New("delivery: no receiving end")

// Host is the browser tab API the engine drives.
type Host interface {
	QueryTabs(ctx context.Context, q common.TabQuery) ([]common.Tab, error)
	// SendMessage delivers msg to the tab's content listener. A missing
	// listener is reported as an error wrapping ErrNoReceiver.
	SendMessage(ctx context.Context, tabID int, msg any) error
	InsertCSS(ctx context.Context, tabID int, files []string) error
	ExecuteScript(ctx context.Context, tabID int, files []string) error
}

// Result is the outcome of delivering to one tab.
type Result struct {
	TabID     int
	Delivered bool
	// Attempts counts SendMessage calls, at most two.
	Attempts int
	Err      error
}

// Delivered reports whether any result succeeded.
func Delivered(results []Result) bool {
	for _, r := range results {
		if r.Delivered {
			return true
		}
	}
	return false
}
