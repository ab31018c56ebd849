package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/restcue/restcue/cmd/common"
	rcommon "github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/config"
	"github.com/restcue/restcue/internal/settings"
	"github.com/restcue/restcue/pkg/cuecli"
	"github.com/restcue/restcue/pkg/logger"
	"github.com/urfave/cli"
)

// Client is the subset of cuecli.Client the commands use.
type Client interface {
	StartFocus(ctx context.Context, override settings.Patch) error
	PauseNow(ctx context.Context, fromPopup bool) error
	ResumeFocus(ctx context.Context) error
	ResetStats(ctx context.Context) error
	TriggerNow(ctx context.Context, durationSeconds float64) error
	UpdateSettings(ctx context.Context, patch settings.Patch) error
	Stats(ctx context.Context) (rcommon.StatsResponse, error)
	Settings(ctx context.Context) (settings.Settings, error)
	Close() error
}

// newClient is replaced in tests.
var newClient = func(ctx *cli.Context) (Client, error) {
	path, err := configPath(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(nil)
	secret, err := resolveSecret(cfg, config.DataDir(path), logger.NewNopLogger(), false)
	if err != nil {
		return nil, err
	}
	c := cuecli.NewClient(cfg.Listen, secret)
	c.CheckVersionMismatch(context.Background(), os.Stderr, currentBuildArgs.Version)
	return c, nil
}

const requestTimeout = 15 * time.Second

// withClient runs fn against a fresh client and reports failures the way
// every client command does.
func withClient(ctx *cli.Context, action string, fn func(context.Context, Client) error) error {
	c, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, ctx.Command.Name, "connect", err)
		return cli.NewExitError("", 1)
	}
	defer c.Close()
	rctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := fn(rctx, c); err != nil {
		common.PrintRuntimeErr(ctx, ctx.Command.Name, action, err)
		return cli.NewExitError("", 1)
	}
	return nil
}

var startFlags = []cli.Flag{
	cli.Float64Flag{
		Name:  "interval, i",
		Usage: "focus minutes for this session only",
	},
	cli.Float64Flag{
		Name:  "rest, r",
		Usage: "rest minutes for this session only",
	},
}

// overrideFrom builds a one-call settings override from flags.
func overrideFrom(ctx *cli.Context) settings.Patch {
	p := settings.Patch{}
	if v := ctx.Float64("interval"); v > 0 {
		p[settings.FieldIntervalMinutes] = json.RawMessage(strconv.FormatFloat(v, 'f', -1, 64))
	}
	if v := ctx.Float64("rest"); v > 0 {
		p[settings.FieldRestMinutes] = json.RawMessage(strconv.FormatFloat(v, 'f', -1, 64))
	}
	if len(p) == 0 {
		return nil
	}
	return p
}

func start(ctx *cli.Context) error {
	return withClient(ctx, "start-focus", func(rctx context.Context, c Client) error {
		if err := c.StartFocus(rctx, overrideFrom(ctx)); err != nil {
			return err
		}
		fmt.Println(common.Success("Focus session started."))
		return nil
	})
}

var pauseFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "active-tab",
		Usage: "show the overlay on the active tab first instead of every tab",
	},
}

func pause(ctx *cli.Context) error {
	return withClient(ctx, "pause-now", func(rctx context.Context, c Client) error {
		if err := c.PauseNow(rctx, ctx.Bool("active-tab")); err != nil {
			return err
		}
		fmt.Println(common.Success("Break started."))
		return nil
	})
}

func resume(ctx *cli.Context) error {
	return withClient(ctx, "resume-focus", func(rctx context.Context, c Client) error {
		if err := c.ResumeFocus(rctx); err != nil {
			return err
		}
		fmt.Println(common.Success("Back to focus."))
		return nil
	})
}

func reset(ctx *cli.Context) error {
	return withClient(ctx, "reset-stats", func(rctx context.Context, c Client) error {
		if err := c.ResetStats(rctx); err != nil {
			return err
		}
		fmt.Println(common.Success("Today's counters reset."))
		return nil
	})
}

var triggerFlags = []cli.Flag{
	cli.Float64Flag{
		Name:  "duration, d",
		Usage: "overlay length in seconds (default: configured rest length)",
	},
}

func trigger(ctx *cli.Context) error {
	return withClient(ctx, "trigger-now", func(rctx context.Context, c Client) error {
		if err := c.TriggerNow(rctx, ctx.Float64("duration")); err != nil {
			return err
		}
		fmt.Println(common.Success("Overlay sent."))
		return nil
	})
}

var settingsFlags = []cli.Flag{
	cli.StringSliceFlag{
		Name:  "set",
		Usage: "field=value to change; may be repeated",
	},
}

// parseAssignments turns field=value pairs into a patch. Values that are
// not valid JSON are sent as strings.
func parseAssignments(pairs []string) (settings.Patch, error) {
	p := settings.Patch{}
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected field=value, got %q", kv)
		}
		raw := json.RawMessage(strings.TrimSpace(v))
		if !json.Valid(raw) {
			b, _ := json.Marshal(v)
			raw = b
		}
		p[k] = raw
	}
	return p, nil
}

func printSettings(s settings.Settings) {
	fmt.Println(common.Title("Settings"))
	fmt.Println(common.Field("enabled", s.Enabled))
	fmt.Println(common.Field("interval", fmt.Sprintf("%g min", s.IntervalMinutes)))
	fmt.Println(common.Field("rest", s.Rest().String()))
	fmt.Println(common.Field("suggestions", s.ShowSuggestions))
	for _, sug := range s.Suggestions {
		fmt.Printf("  - %s\n", sug)
	}
}

func settingsCmd(ctx *cli.Context) error {
	return withClient(ctx, "settings", func(rctx context.Context, c Client) error {
		if pairs := ctx.StringSlice("set"); len(pairs) > 0 {
			patch, err := parseAssignments(pairs)
			if err != nil {
				return err
			}
			if err := c.UpdateSettings(rctx, patch); err != nil {
				return err
			}
		}
		s, err := c.Settings(rctx)
		if err != nil {
			return err
		}
		printSettings(s)
		return nil
	})
}
