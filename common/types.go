package common

import "encoding/json"

// OkResponse is the acknowledgement returned by state-changing actions.
type OkResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StatsResponse answers get-stats.
type StatsResponse struct {
	FocusMinutes int    `json:"focusMinutes"`
	RestMinutes  int    `json:"restMinutes"`
	Status       string `json:"status"`
	NextFocusEnd int64  `json:"nextFocusEnd"`
	NextRestEnd  int64  `json:"nextRestEnd"`
}

type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// ActionParams is accepted by actions that take no fields, so a forwarded
// message object such as {"action":"get-stats"} is not rejected.
type ActionParams struct {
	Action string `json:"action,omitempty"`
}

// SettingsParams carries an optional partial settings object.
type SettingsParams struct {
	Action   string                     `json:"action,omitempty"`
	Settings map[string]json.RawMessage `json:"settings,omitempty"`
}

type PauseNowParams struct {
	Action    string                     `json:"action,omitempty"`
	FromPopup bool                       `json:"fromPopup,omitempty"`
	Settings  map[string]json.RawMessage `json:"settings,omitempty"`
}

type TriggerNowParams struct {
	Action          string  `json:"action,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

// TriggerPauseMessage instructs the overlay to show itself.
type TriggerPauseMessage struct {
	Action          Action   `json:"action"`
	RestMinutes     float64  `json:"restMinutes"`
	DurationSeconds float64  `json:"durationSeconds"`
	Suggestions     []string `json:"suggestions"`
	ShowSuggestions bool     `json:"showSuggestions"`
}

// EndRestMessage instructs the overlay to remove itself.
type EndRestMessage struct {
	Action Action `json:"action"`
}

// Tab mirrors the subset of the browser tab object the daemon needs.
type Tab struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	Active   bool   `json:"active,omitempty"`
	WindowID int    `json:"windowId,omitempty"`
}

// TabQuery is forwarded verbatim to tabs.query.
type TabQuery struct {
	Active            bool     `json:"active,omitempty"`
	LastFocusedWindow bool     `json:"lastFocusedWindow,omitempty"`
	URL               []string `json:"url,omitempty"`
}

type SendMessageParams struct {
	TabID   int `json:"tabId"`
	Message any `json:"message"`
}

// SendMessageResult reports whether a listener in the tab received the
// message. Delivered=false corresponds to the browser's "last error".
type SendMessageResult struct {
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

type InjectParams struct {
	TabID int      `json:"tabId"`
	Files []string `json:"files"`
}
