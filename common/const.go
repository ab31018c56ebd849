package common

// Action is the name carried in the "action" field of extension messages.
// Inbound actions double as JSON-RPC method names.
type Action string

const (
	ACTION_START_FOCUS     Action = "start-focus"
	ACTION_PAUSE_NOW       Action = "pause-now"
	ACTION_RESUME_FOCUS    Action = "resume-focus"
	ACTION_GET_STATS       Action = "get-stats"
	ACTION_GET_SETTINGS    Action = "get-settings"
	ACTION_UPDATE_SETTINGS Action = "update-settings"
	ACTION_RESET_STATS     Action = "reset-stats"
	ACTION_TRIGGER_NOW     Action = "trigger-now"
	ACTION_VERSION         Action = "version"

	// Sent to the overlay inside a tab.
	ACTION_TRIGGER_PAUSE Action = "trigger-pause"
	ACTION_END_REST      Action = "end-rest"
)

// Callback methods the daemon invokes on the connected extension.
const (
	METHOD_TABS_QUERY        = "tabs.query"
	METHOD_TABS_SEND_MESSAGE = "tabs.sendMessage"
	METHOD_INSERT_CSS        = "scripting.insertCSS"
	METHOD_EXECUTE_SCRIPT    = "scripting.executeScript"
)

// Named alarms. At most one of them is armed at a time.
const (
	ALARM_FOCUS_END = "focus-end"
	ALARM_REST_END  = "rest-end"
)

// MaxMessageSize caps a single framed message in either direction.
// Browsers refuse native messages larger than 1 MiB from the host.
const MaxMessageSize = 1 << 20

// DefaultListenAddr is the loopback address the daemon binds to.
const DefaultListenAddr = "127.0.0.1:7311"
