package api

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/settings"
)

func (s *Api) startFocus(ctx context.Context, p common.SettingsParams) (common.OkResponse, error) {
	return s.ack(common.ACTION_START_FOCUS, s.session.StartFocus(ctx, settings.Patch(p.Settings))), nil
}

func (s *Api) pauseNow(ctx context.Context, p common.PauseNowParams) (common.OkResponse, error) {
	return s.ack(common.ACTION_PAUSE_NOW, s.session.PauseNow(ctx, p.FromPopup, settings.Patch(p.Settings))), nil
}

func (s *Api) resumeFocus(ctx context.Context, _ common.ActionParams) (common.OkResponse, error) {
	return s.ack(common.ACTION_RESUME_FOCUS, s.session.ResumeFocus(ctx)), nil
}

func (s *Api) resetStats(ctx context.Context, _ common.ActionParams) (common.OkResponse, error) {
	return s.ack(common.ACTION_RESET_STATS, s.session.Reset(ctx)), nil
}

func (s *Api) getStats(ctx context.Context, _ common.ActionParams) (common.StatsResponse, error) {
	st, err := s.session.Stats(ctx)
	if err != nil {
		s.log.Error("%s: %v", common.ACTION_GET_STATS, err)
		return common.StatsResponse{}, &jrpc2.Error{Code: codeInternal, Message: err.Error()}
	}
	return st, nil
}
