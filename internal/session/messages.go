package session

import (
	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/settings"
)

// TriggerPause builds the overlay payload for a rest period.
func TriggerPause(s settings.Settings) common.TriggerPauseMessage {
	sugg := s.Suggestions
	if sugg == nil {
		sugg = []string{}
	}
	return common.TriggerPauseMessage{
		Action:          common.ACTION_TRIGGER_PAUSE,
		RestMinutes:     s.RestMinutes(),
		DurationSeconds: s.RestSeconds,
		Suggestions:     sugg,
		ShowSuggestions: s.ShowSuggestions,
	}
}

func EndRest() common.EndRestMessage {
	return common.EndRestMessage{Action: common.ACTION_END_REST}
}
