package api

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/restcue/restcue/common"
)

func (s *Api) triggerNow(ctx context.Context, p common.TriggerNowParams) (common.OkResponse, error) {
	if p.DurationSeconds < 0 {
		return common.OkResponse{}, &jrpc2.Error{Code: codeInvalidParams, Message: "durationSeconds must not be negative"}
	}
	if !s.trigger.Allow() {
		return common.OkResponse{Error: "too many trigger requests"}, nil
	}
	delivered, err := s.session.TriggerNow(ctx, p.DurationSeconds)
	if err != nil {
		return s.ack(common.ACTION_TRIGGER_NOW, err), nil
	}
	n := 0
	for _, d := range delivered {
		if d {
			n++
		}
	}
	s.log.Info("trigger-now reached %d of %d tab(s)", n, len(delivered))
	return common.OkResponse{Ok: true}, nil
}
