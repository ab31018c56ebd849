package common

import (
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// InitCountdown adds a bar counting elapsed seconds of a phase of length
// total. Callers advance it with SetCurrent. extra decorators are appended
// after the time left.
func InitCountdown(p *mpb.Progress, name string, total time.Duration, extra ...decor.Decorator) *mpb.Bar {
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")
	secs := int64(total / time.Second)
	if secs < 1 {
		secs = 1
	}
	appended := append([]decor.Decorator{
		decor.OnComplete(
			decor.Any(func(s decor.Statistics) string {
				left := time.Duration(s.Total-s.Current) * time.Second
				return left.String() + " left"
			}, decor.WC{W: 12}),
			"done",
		),
	}, extra...)
	return p.New(secs,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
		),
		mpb.AppendDecorators(appended...),
	)
}
