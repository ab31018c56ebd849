// Package settings implements the defaults-merged configuration bundle the
// popup edits: enabled flag, focus interval, rest length and suggestions.
package settings

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Key is the storage key of the settings bundle in the sync area.
const Key = "settings"

// Field names as they appear on the wire and in storage.
const (
	FieldEnabled         = "enabled"
	FieldIntervalMinutes = "intervalMinutes"
	FieldRestMinutes     = "restMinutes"
	FieldDurationSeconds = "durationSeconds"
	FieldSuggestions     = "suggestions"
	FieldShowSuggestions = "showSuggestions"
)

const (
	DefaultIntervalMinutes = 30
	DefaultRestSeconds     = 5 * 60
)

var defaultSuggestions = []string{"Take a deep breath", "Stand and stretch", "Drink some water"}

// Settings is the effective configuration. The rest length is kept in
// seconds regardless of which unit the caller supplied.
type Settings struct {
	Enabled         bool
	IntervalMinutes float64
	RestSeconds     float64
	Suggestions     []string
	ShowSuggestions bool
}

// Default returns a fresh copy of the built-in defaults.
func Default() Settings {
	return Settings{
		Enabled:         true,
		IntervalMinutes: DefaultIntervalMinutes,
		RestSeconds:     DefaultRestSeconds,
		Suggestions:     append([]string(nil), defaultSuggestions...),
		ShowSuggestions: true,
	}
}

func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes * float64(time.Minute))
}

func (s Settings) Rest() time.Duration {
	return time.Duration(s.RestSeconds * float64(time.Second))
}

func (s Settings) RestMinutes() float64 {
	return s.RestSeconds / 60
}

// RestCreditMinutes is the whole number of minutes credited to the daily
// rest counter when a rest period starts.
func (s Settings) RestCreditMinutes() int {
	return int(math.Round(s.RestSeconds / 60))
}

type wireSettings struct {
	Enabled         bool     `json:"enabled"`
	IntervalMinutes float64  `json:"intervalMinutes"`
	RestMinutes     float64  `json:"restMinutes"`
	DurationSeconds float64  `json:"durationSeconds"`
	Suggestions     []string `json:"suggestions"`
	ShowSuggestions bool     `json:"showSuggestions"`
}

// MarshalJSON emits the rest length in both units so either popup variant
// can read it.
func (s Settings) MarshalJSON() ([]byte, error) {
	sugg := s.Suggestions
	if sugg == nil {
		sugg = []string{}
	}
	return json.Marshal(wireSettings{
		Enabled:         s.Enabled,
		IntervalMinutes: s.IntervalMinutes,
		RestMinutes:     s.RestMinutes(),
		DurationSeconds: s.RestSeconds,
		Suggestions:     sugg,
		ShowSuggestions: s.ShowSuggestions,
	})
}

// UnmarshalJSON decodes leniently over the defaults.
func (s *Settings) UnmarshalJSON(b []byte) error {
	var p Patch
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Decode(p)
	return nil
}

// Patch is a partial settings object as stored or as sent by the popup.
type Patch map[string]json.RawMessage

// Merge returns base overlaid with over. Supplying either rest field in over
// drops both rest fields from base, so the newest unit always wins.
func Merge(base, over Patch) Patch {
	out := make(Patch, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	_, hasMin := over[FieldRestMinutes]
	_, hasSec := over[FieldDurationSeconds]
	if hasMin || hasSec {
		delete(out, FieldRestMinutes)
		delete(out, FieldDurationSeconds)
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Decode builds effective settings from a patch. Every field that is
// missing or unusable falls back to its default; a session length is never
// zero, negative or NaN.
func Decode(p Patch) Settings {
	s := Default()
	if v, ok := decodeBool(p[FieldEnabled]); ok {
		s.Enabled = v
	}
	if v, ok := decodePositive(p[FieldIntervalMinutes]); ok {
		s.IntervalMinutes = v
	}
	if v, ok := decodePositive(p[FieldRestMinutes]); ok {
		s.RestSeconds = v * 60
	} else if v, ok := decodePositive(p[FieldDurationSeconds]); ok {
		s.RestSeconds = v
	}
	if raw, ok := p[FieldSuggestions]; ok {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && list != nil {
			s.Suggestions = cleanSuggestions(list)
		}
	}
	if v, ok := decodeBool(p[FieldShowSuggestions]); ok {
		s.ShowSuggestions = v
	}
	return s
}

func decodeBool(raw json.RawMessage) (bool, bool) {
	if len(raw) == 0 {
		return false, false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	return v, true
}

// decodePositive accepts a JSON number or a numeric string.
func decodePositive(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

func cleanSuggestions(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
