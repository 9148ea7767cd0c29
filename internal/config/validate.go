package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate checks fields that can be checked without other packages.
// Schedule expressions are validated by the app's reload hook.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	dur := func(path, raw string) {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	b := cfg.Browser
	dur("browser.poll_interval", b.PollInterval)
	dur("browser.launch_retry_delay", b.LaunchRetryDelay)
	dur("browser.ready_timeout", b.ReadyTimeout)
	dur("browser.search_timeout", b.SearchTimeout)
	dur("browser.element_timeout", b.ElementTimeout)
	if b.WindowWidth < 0 || b.WindowHeight < 0 {
		errs = append(errs, errors.New("browser.window size must be >= 0"))
	}
	if s := b.Selectors; s != nil && s.ResultByTitle != "" && strings.Count(s.ResultByTitle, "%s") != 1 {
		errs = append(errs, errors.New("browser.selectors.result_by_title must contain exactly one %s"))
	}
	if s := b.Settle; s != nil {
		dur("browser.settle.after_click", s.AfterClick)
		dur("browser.settle.after_clear", s.AfterClear)
		dur("browser.settle.after_search", s.AfterSearch)
		dur("browser.settle.before_select", s.BeforeSelect)
		dur("browser.settle.after_select", s.AfterSelect)
		dur("browser.settle.per_line", s.PerLine)
		dur("browser.settle.before_send", s.BeforeSend)
		dur("browser.settle.after_send", s.AfterSend)
	}

	dur("delivery.pace", cfg.Delivery.Pace)
	dur("delivery.audit_timeout", cfg.Delivery.AuditTimeout)

	switch strings.ToLower(strings.TrimSpace(cfg.Render.DefaultFormat)) {
	case "", "table", "tabular", "layout-a", "narrative", "simple", "layout-b":
	default:
		errs = append(errs, fmt.Errorf("render.default_format: unknown format %q", cfg.Render.DefaultFormat))
	}

	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(st.Path) == "" {
				errs = append(errs, errors.New("storage.path is required"))
			}
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
		}
		dur("storage.busy_timeout", st.BusyTimeout)
	}

	if d := cfg.Debug; d.Enabled {
		dur("debug.read_timeout", d.ReadTimeout)
		dur("debug.write_timeout", d.WriteTimeout)
		dur("debug.idle_timeout", d.IdleTimeout)
		if !isLoopback(d.Addr) && strings.TrimSpace(d.Token) == "" && !d.AllowInsecure {
			errs = append(errs, fmt.Errorf("debug.addr %q is not loopback: set debug.token or debug.allow_insecure", d.Addr))
		}
	}

	if r := cfg.Report; r != nil && r.Enabled {
		if strings.TrimSpace(r.Token) == "" {
			errs = append(errs, errors.New("report.token is required when report is enabled"))
		}
		if r.ChatID == 0 {
			errs = append(errs, errors.New("report.chat_id is required when report is enabled"))
		}
		dur("report.timeout", r.Timeout)
	}

	seen := map[string]bool{}
	for i, j := range cfg.Jobs {
		p := fmt.Sprintf("jobs[%d]", i)
		name := strings.TrimSpace(j.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("%s.name is required", p))
		case seen[name]:
			errs = append(errs, fmt.Errorf("%s.name %q is duplicated", p, name))
		}
		seen[name] = true
		if strings.TrimSpace(j.Schedule) == "" {
			errs = append(errs, fmt.Errorf("%s.schedule is required", p))
		}
		if strings.TrimSpace(j.Input) == "" {
			errs = append(errs, fmt.Errorf("%s.input is required", p))
		}
		switch strings.ToLower(strings.TrimSpace(j.Mode)) {
		case "tabular", "stock", "recommendations":
		case "broadcast", "generic":
			if strings.TrimSpace(j.Message) == "" && strings.TrimSpace(j.MessageFile) == "" {
				errs = append(errs, fmt.Errorf("%s: broadcast jobs need message or message_file", p))
			}
		default:
			errs = append(errs, fmt.Errorf("%s.mode: unknown mode %q", p, j.Mode))
		}
	}
	return errors.Join(errs...)
}

func isLoopback(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return true
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
