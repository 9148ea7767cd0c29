package config

// Config is the root configuration document (JSON or YAML).
//
// All durations are Go duration strings ("500ms", "10s", "1m"). Empty or
// zero durations take the defaults noted on each field.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Browser  BrowserConfig  `json:"browser"`
	Delivery DeliveryConfig `json:"delivery"`
	Render   RenderConfig   `json:"render"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Debug    DebugConfig    `json:"debug,omitempty"`
	Report   *ReportConfig  `json:"report,omitempty"`
	Jobs     []JobConfig    `json:"jobs,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// BrowserConfig controls the UI session.
type BrowserConfig struct {
	URL string `json:"url,omitempty"` // default: https://web.whatsapp.com
	// ExecPaths are tried in order; only the first two are used.
	// default: ["chromium", "google-chrome"]
	ExecPaths []string `json:"exec_paths,omitempty"`
	// UserDataDir keeps the login between runs when set.
	UserDataDir  string `json:"user_data_dir,omitempty"`
	Headless     bool   `json:"headless,omitempty"`
	WindowWidth  int    `json:"window_width,omitempty"`
	WindowHeight int    `json:"window_height,omitempty"`

	PollInterval     string `json:"poll_interval,omitempty"`      // default: 500ms
	LaunchRetryDelay string `json:"launch_retry_delay,omitempty"` // default: 1s
	ReadyTimeout     string `json:"ready_timeout,omitempty"`      // default: 60s
	SearchTimeout    string `json:"search_timeout,omitempty"`     // default: 20s
	ElementTimeout   string `json:"element_timeout,omitempty"`    // default: 10s

	Selectors *SelectorsConfig `json:"selectors,omitempty"`
	Settle    *SettleConfig    `json:"settle,omitempty"`
}

// SelectorsConfig overrides XPath selectors. result_by_title takes one %s
// verb that receives the quoted group name.
type SelectorsConfig struct {
	SearchBox     string `json:"search_box,omitempty"`
	ResultByTitle string `json:"result_by_title,omitempty"`
	Composer      string `json:"composer,omitempty"`
	SendButton    string `json:"send_button,omitempty"`
}

// SettleConfig overrides the pauses between UI sub-steps. "0s" disables a
// pause; omitted keys keep the default.
type SettleConfig struct {
	AfterClick   string `json:"after_click,omitempty"`
	AfterClear   string `json:"after_clear,omitempty"`
	AfterSearch  string `json:"after_search,omitempty"`
	BeforeSelect string `json:"before_select,omitempty"`
	AfterSelect  string `json:"after_select,omitempty"`
	PerLine      string `json:"per_line,omitempty"`
	BeforeSend   string `json:"before_send,omitempty"`
	AfterSend    string `json:"after_send,omitempty"`
}

type DeliveryConfig struct {
	// UploadDir receives the staged input copy for the duration of a run.
	UploadDir string `json:"upload_dir,omitempty"` // default: ./uploads
	// Pace is the minimum gap between deliveries.
	Pace         string `json:"pace,omitempty"`          // default: 0 (off)
	AuditTimeout string `json:"audit_timeout,omitempty"` // default: 5s
}

type RenderConfig struct {
	DefaultFormat  string `json:"default_format,omitempty"` // default: narrative
	TestSubstring  string `json:"test_substring,omitempty"` // default: testing
	TestMarker     string `json:"test_marker,omitempty"`
	TestDisclaimer string `json:"test_disclaimer,omitempty"`
	DefaultClient  string `json:"default_client,omitempty"` // default: Client
	ClosingNote    string `json:"closing_note,omitempty"`
}

// StorageConfig controls run audit persistence.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data/recobot" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// DebugConfig controls the optional HTTP server (pprof, metrics, health).
//
// Prefer a loopback Addr. A non-loopback Addr needs a token or an explicit
// allow_insecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`   // default: 127.0.0.1:6060
	Prefix        string `json:"prefix,omitempty"` // default: /debug/pprof/
	Token         string `json:"token,omitempty"`  // bearer token; never logged
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// ReportConfig posts run summaries to a Telegram chat.
type ReportConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"` // default: 1
	Timeout    string `json:"timeout,omitempty"`      // default: 10s
	// OnlyFailures suppresses summaries of fully successful runs.
	OnlyFailures bool `json:"only_failures,omitempty"`
}

// JobConfig is a scheduled dispatch run.
//
// Schedule accepts a cron expression ("0 9 * * 1-5"), "every <duration>"
// or a daily "HH:MM".
type JobConfig struct {
	Name        string `json:"name"`
	Disabled    bool   `json:"disabled,omitempty"`
	Schedule    string `json:"schedule"`
	Timezone    string `json:"timezone,omitempty"`
	Input       string `json:"input"`
	Mode        string `json:"mode"`
	Format      string `json:"format,omitempty"`
	Message     string `json:"message,omitempty"`
	MessageFile string `json:"message_file,omitempty"`
}
