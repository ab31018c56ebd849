package api

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/settings"
)

// getSettings always answers with usable settings; on a storage failure
// the defaults are returned.
func (s *Api) getSettings(ctx context.Context, _ common.ActionParams) (settings.Settings, error) {
	st, err := s.session.Settings(ctx)
	if err != nil {
		s.log.Warning("%s: %v", common.ACTION_GET_SETTINGS, err)
	}
	return st, nil
}

func (s *Api) updateSettings(ctx context.Context, p common.SettingsParams) (common.OkResponse, error) {
	if p.Settings == nil {
		return common.OkResponse{}, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: settings"}
	}
	_, err := s.session.UpdateSettings(ctx, settings.Patch(p.Settings))
	return s.ack(common.ACTION_UPDATE_SETTINGS, err), nil
}
