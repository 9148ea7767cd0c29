package browser

import "time"

// Selectors locate the client's UI elements (XPath). ResultByTitle is a
// format string receiving the quoted group name.
type Selectors struct {
	SearchBox     string
	ResultByTitle string
	Composer      string
	SendButton    string
}

// Settle holds fixed pauses that let the client finish asynchronous UI
// updates between sub-steps.
type Settle struct {
	AfterClick   time.Duration
	AfterClear   time.Duration
	AfterSearch  time.Duration
	BeforeSelect time.Duration
	AfterSelect  time.Duration
	PerLine      time.Duration
	BeforeSend   time.Duration
	AfterSend    time.Duration
}

// Config is the driver configuration. The app layer maps config.browser
// into this struct; zero fields take the defaults from Defaults().
type Config struct {
	URL string
	// Sources are browser executables tried in order. Only the first two
	// are used: the primary and one alternate.
	Sources      []string
	UserDataDir  string
	Headless     bool
	WindowWidth  int
	WindowHeight int

	PollInterval     time.Duration
	LaunchRetryDelay time.Duration
	ReadyTimeout     time.Duration
	SearchTimeout    time.Duration
	ElementTimeout   time.Duration

	Selectors Selectors
	Settle    Settle
}

func Defaults() Config {
	return Config{
		URL:              "https://web.whatsapp.com",
		Sources:          []string{"chromium", "google-chrome"},
		WindowWidth:      1366,
		WindowHeight:     900,
		PollInterval:     500 * time.Millisecond,
		LaunchRetryDelay: time.Second,
		ReadyTimeout:     60 * time.Second,
		SearchTimeout:    20 * time.Second,
		ElementTimeout:   10 * time.Second,
		Selectors: Selectors{
			SearchBox:     "//div[@contenteditable='true'][@data-tab='3']",
			ResultByTitle: "//span[contains(@title, %s)]",
			Composer:      "//div[@contenteditable='true'][@data-tab='10']",
			SendButton:    "//span[@data-icon='send']",
		},
		Settle: Settle{
			AfterClick:   time.Second,
			AfterClear:   time.Second,
			AfterSearch:  2 * time.Second,
			BeforeSelect: time.Second,
			AfterSelect:  2 * time.Second,
			PerLine:      100 * time.Millisecond,
			BeforeSend:   time.Second,
			AfterSend:    3 * time.Second,
		},
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.URL == "" {
		c.URL = d.URL
	}
	if len(c.Sources) == 0 {
		c.Sources = d.Sources
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		c.WindowWidth, c.WindowHeight = d.WindowWidth, d.WindowHeight
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.LaunchRetryDelay < 0 {
		c.LaunchRetryDelay = 0
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = d.ReadyTimeout
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = d.SearchTimeout
	}
	if c.ElementTimeout <= 0 {
		c.ElementTimeout = d.ElementTimeout
	}
	if c.Selectors.SearchBox == "" {
		c.Selectors.SearchBox = d.Selectors.SearchBox
	}
	if c.Selectors.ResultByTitle == "" {
		c.Selectors.ResultByTitle = d.Selectors.ResultByTitle
	}
	if c.Selectors.Composer == "" {
		c.Selectors.Composer = d.Selectors.Composer
	}
	if c.Selectors.SendButton == "" {
		c.Selectors.SendButton = d.Selectors.SendButton
	}
	return c
}
