package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/restcue/restcue/cmd/common"
	rcommon "github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/settings"
	"github.com/restcue/restcue/internal/stats"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var statsFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "watch, w",
		Usage: "keep showing the current phase with a countdown",
	},
}

var timeNow = time.Now

func printStats(st rcommon.StatsResponse) {
	now := timeNow()
	fmt.Println(common.Title("Today"))
	fmt.Println(common.Field("status", common.Status(st.Status)))
	fmt.Println(common.Field("focus", fmt.Sprintf("%d min", st.FocusMinutes)))
	fmt.Println(common.Field("rest", fmt.Sprintf("%d min", st.RestMinutes)))
	fmt.Println(common.Field("next break", common.FormatRemaining(st.NextFocusEnd, now)))
	fmt.Println(common.Field("break ends", common.FormatRemaining(st.NextRestEnd, now)))
}

func showStats(ctx *cli.Context) error {
	if ctx.Bool("watch") {
		c, err := newClient(ctx)
		if err != nil {
			common.PrintRuntimeErr(ctx, "stats", "connect", err)
			return cli.NewExitError("", 1)
		}
		defer c.Close()
		sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := watchStats(sigCtx, c, time.Second); err != nil {
			common.PrintRuntimeErr(ctx, "stats", "watch", err)
			return cli.NewExitError("", 1)
		}
		return nil
	}
	return withClient(ctx, "get-stats", func(rctx context.Context, c Client) error {
		st, err := c.Stats(rctx)
		if err != nil {
			return err
		}
		printStats(st)
		return nil
	})
}

// phase describes what the countdown bar is showing.
type phase struct {
	status string
	end    int64
}

func (p phase) target(st rcommon.StatsResponse) int64 {
	switch st.Status {
	case string(stats.Focusing):
		return st.NextFocusEnd
	case string(stats.Resting):
		return st.NextRestEnd
	}
	return 0
}

// phaseLength is the full length of the phase the daemon reports.
func phaseLength(status string, s settings.Settings) time.Duration {
	if status == string(stats.Resting) {
		return s.Rest()
	}
	return s.Interval()
}

// watchStats polls the daemon and redraws a countdown bar per phase until
// ctx is done.
func watchStats(ctx context.Context, c Client, every time.Duration) error {
	p := mpb.NewWithContext(ctx, mpb.WithWidth(40), mpb.WithOutput(os.Stdout))

	var (
		mu     sync.Mutex
		latest rcommon.StatsResponse
	)
	counters := decor.Any(func(decor.Statistics) string {
		mu.Lock()
		defer mu.Unlock()
		return fmt.Sprintf("  focus %dm rest %dm", latest.FocusMinutes, latest.RestMinutes)
	})

	var (
		cur   phase
		bar   *mpb.Bar
		total time.Duration
	)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	defer func() {
		if bar != nil {
			bar.Abort(false)
		}
		p.Wait()
	}()

	for {
		st, err := c.Stats(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		mu.Lock()
		latest = st
		mu.Unlock()

		next := phase{status: st.Status}
		next.end = next.target(st)
		if next != cur {
			if bar != nil {
				bar.Abort(false)
				bar = nil
			}
			cur = next
			if cur.end != 0 {
				s, err := c.Settings(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				total = phaseLength(cur.status, s)
				bar = common.InitCountdown(p, cur.status, total, counters)
			}
		}
		if bar != nil {
			bar.SetCurrent(elapsedSeconds(total, time.UnixMilli(cur.end).Sub(timeNow())))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// elapsedSeconds converts what is left of a phase of length total into the
// bar position, clamped to the bar's range.
func elapsedSeconds(total, left time.Duration) int64 {
	secs := int64(total / time.Second)
	if secs < 1 {
		secs = 1
	}
	if left < 0 {
		left = 0
	}
	done := secs - int64(left/time.Second)
	switch {
	case done < 0:
		return 0
	case done > secs:
		return secs
	}
	return done
}
