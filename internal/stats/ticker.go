package stats

import (
	"context"
	"sync"
	"time"

	"github.com/restcue/restcue/pkg/logger"
	"github.com/robfig/cron/v3"
)

// TickSpec is the schedule of the focus-minute tick.
const TickSpec = "@every 1m"

// Ticker credits a focus minute on every tick of a cron schedule. It is
// recreated on each process start; nothing about it is persisted.
type Ticker struct {
	tracker *Tracker
	log     logger.Logger

	mu     sync.Mutex
	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewTicker(tracker *Tracker, log logger.Logger) *Ticker {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Ticker{tracker: tracker, log: log}
}

// Start schedules the tick. Calling Start on a running ticker is a no-op.
func (t *Ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c != nil {
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	t.ctx, t.cancel = context.WithCancel(ctx)
	if _, err := c.AddFunc(TickSpec, t.Run); err != nil {
		t.cancel()
		return err
	}
	t.c = c
	c.Start()
	return nil
}

// Run performs one tick.
func (t *Ticker) Run() {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	credited, err := t.tracker.Tick(ctx)
	if err != nil {
		t.log.Warning("focus tick: %v", err)
		return
	}
	if credited {
		t.log.Debug("focus minute credited")
	}
}

// Stop cancels the schedule and waits for a running tick to finish.
func (t *Ticker) Stop() {
	t.mu.Lock()
	c := t.c
	t.c = nil
	cancel := t.cancel
	t.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	cancel()
}
