package app

import (
	"fmt"
	"strings"
	"time"

	"recobot/internal/browser"
	"recobot/internal/config"
	"recobot/internal/debug"
	"recobot/internal/dispatch"
	"recobot/internal/dispatch/render"
	"recobot/internal/notifier"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

const defaultUploadDir = "./uploads"

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapBrowserConfig(cfg *config.Config) (browser.Config, error) {
	b := cfg.Browser
	out := browser.Defaults()
	if s := strings.TrimSpace(b.URL); s != "" {
		out.URL = s
	}
	if len(b.ExecPaths) > 0 {
		out.Sources = append([]string(nil), b.ExecPaths...)
	}
	out.UserDataDir = strings.TrimSpace(b.UserDataDir)
	out.Headless = b.Headless
	if b.WindowWidth > 0 && b.WindowHeight > 0 {
		out.WindowWidth, out.WindowHeight = b.WindowWidth, b.WindowHeight
	}

	var err error
	durations := []struct {
		path string
		raw  string
		dst  *time.Duration
	}{
		{"browser.poll_interval", b.PollInterval, &out.PollInterval},
		{"browser.launch_retry_delay", b.LaunchRetryDelay, &out.LaunchRetryDelay},
		{"browser.ready_timeout", b.ReadyTimeout, &out.ReadyTimeout},
		{"browser.search_timeout", b.SearchTimeout, &out.SearchTimeout},
		{"browser.element_timeout", b.ElementTimeout, &out.ElementTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = config.ParseDurationOrDefault(d.path, d.raw, *d.dst); err != nil {
			return browser.Config{}, err
		}
	}

	if s := b.Selectors; s != nil {
		set := func(dst *string, v string) {
			if v = strings.TrimSpace(v); v != "" {
				*dst = v
			}
		}
		set(&out.Selectors.SearchBox, s.SearchBox)
		set(&out.Selectors.ResultByTitle, s.ResultByTitle)
		set(&out.Selectors.Composer, s.Composer)
		set(&out.Selectors.SendButton, s.SendButton)
	}

	if s := b.Settle; s != nil {
		pauses := []struct {
			path string
			raw  string
			dst  *time.Duration
		}{
			{"browser.settle.after_click", s.AfterClick, &out.Settle.AfterClick},
			{"browser.settle.after_clear", s.AfterClear, &out.Settle.AfterClear},
			{"browser.settle.after_search", s.AfterSearch, &out.Settle.AfterSearch},
			{"browser.settle.before_select", s.BeforeSelect, &out.Settle.BeforeSelect},
			{"browser.settle.after_select", s.AfterSelect, &out.Settle.AfterSelect},
			{"browser.settle.per_line", s.PerLine, &out.Settle.PerLine},
			{"browser.settle.before_send", s.BeforeSend, &out.Settle.BeforeSend},
			{"browser.settle.after_send", s.AfterSend, &out.Settle.AfterSend},
		}
		for _, p := range pauses {
			d, set, err := config.ParseOptionalDuration(p.path, p.raw)
			if err != nil {
				return browser.Config{}, err
			}
			if set {
				*p.dst = d
			}
		}
	}
	return out, nil
}

func mapRenderOptions(cfg *config.Config) render.Options {
	r := cfg.Render
	out := render.DefaultOptions()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.TestSubstring, strings.TrimSpace(r.TestSubstring))
	set(&out.TestMarker, r.TestMarker)
	set(&out.TestDisclaimer, r.TestDisclaimer)
	set(&out.DefaultClient, strings.TrimSpace(r.DefaultClient))
	set(&out.ClosingNote, r.ClosingNote)
	return out
}

func mapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	ready, err := config.ParseDurationOrDefault("browser.ready_timeout", cfg.Browser.ReadyTimeout, 0)
	if err != nil {
		return dispatch.Config{}, err
	}
	pace, err := config.ParseDurationOrDefault("delivery.pace", cfg.Delivery.Pace, 0)
	if err != nil {
		return dispatch.Config{}, err
	}
	audit, err := config.ParseDurationOrDefault("delivery.audit_timeout", cfg.Delivery.AuditTimeout, 5*time.Second)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		ReadyTimeout: ready,
		Pace:         pace,
		AuditTimeout: audit,
		Render:       mapRenderOptions(cfg),
	}, nil
}

func uploadDir(cfg *config.Config) string {
	if d := strings.TrimSpace(cfg.Delivery.UploadDir); d != "" {
		return d
	}
	return defaultUploadDir
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapDebugConfig(cfg *config.Config) (debug.Config, error) {
	d := cfg.Debug
	out := debug.Config{
		Enabled:       d.Enabled,
		Addr:          strings.TrimSpace(d.Addr),
		Prefix:        strings.TrimSpace(d.Prefix),
		Token:         strings.TrimSpace(d.Token),
		AllowInsecure: d.AllowInsecure,
	}
	if out.Addr == "" {
		out.Addr = "127.0.0.1:6060"
	}
	if out.Prefix == "" {
		out.Prefix = "/debug/pprof/"
	}
	var err error
	if out.ReadTimeout, err = config.ParseDurationOrDefault("debug.read_timeout", d.ReadTimeout, 5*time.Second); err != nil {
		return debug.Config{}, err
	}
	if out.WriteTimeout, err = config.ParseDurationOrDefault("debug.write_timeout", d.WriteTimeout, 30*time.Second); err != nil {
		return debug.Config{}, err
	}
	if out.IdleTimeout, err = config.ParseDurationOrDefault("debug.idle_timeout", d.IdleTimeout, 60*time.Second); err != nil {
		return debug.Config{}, err
	}
	return out, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, bool, error) {
	r := cfg.Report
	if r == nil || !r.Enabled {
		return notifier.Config{}, false, nil
	}
	timeout, err := config.ParseDurationOrDefault("report.timeout", r.Timeout, 10*time.Second)
	if err != nil {
		return notifier.Config{}, false, err
	}
	return notifier.Config{
		Token:        strings.TrimSpace(r.Token),
		ChatID:       r.ChatID,
		ThreadID:     r.ThreadID,
		RatePerSec:   r.RatePerSec,
		Timeout:      timeout,
		OnlyFailures: r.OnlyFailures,
	}, true, nil
}
