package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind is the normalized kind of a schedule string.
type Kind int

const (
	KindCron Kind = iota
	KindInterval
	KindDaily
)

// Spec is a parsed schedule.
//
// Accepted forms:
//   - cron: "0 9 * * 1-5", "@hourly", optionally "cron:" prefixed
//   - interval: "every 2h", "every:30m", "interval:45m", "90m"
//   - daily time of day: "09:15" (24h clock, in the job's timezone)
type Spec struct {
	Kind  Kind
	Cron  string
	Every time.Duration
}

var reHHMM = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func Parse(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, errors.New("schedule required")
	}
	low := strings.ToLower(s)

	for _, p := range []string{"every:", "interval:", "every "} {
		if strings.HasPrefix(low, p) {
			return parseInterval(s[len(p):])
		}
	}
	if strings.HasPrefix(low, "cron:") {
		return parseCron(s[len("cron:"):])
	}
	if m := reHHMM.FindStringSubmatch(s); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if hh > 23 || mm > 59 {
			return Spec{}, fmt.Errorf("invalid time of day %q", raw)
		}
		return Spec{Kind: KindDaily, Cron: fmt.Sprintf("%d %d * * *", mm, hh)}, nil
	}
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return parseCron(s)
	}
	if _, err := time.ParseDuration(s); err == nil {
		return parseInterval(s)
	}
	return Spec{}, fmt.Errorf("invalid schedule %q (use cron like '0 9 * * 1-5', a time like '09:15', or 'every 2h')", raw)
}

func parseCron(expr string) (Spec, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Spec{}, errors.New("cron expression required")
	}
	if _, err := parser.Parse(expr); err != nil {
		return Spec{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return Spec{Kind: KindCron, Cron: expr}, nil
}

func parseInterval(v string) (Spec, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return Spec{}, fmt.Errorf("invalid interval %q: %w", v, err)
	}
	if d < time.Minute {
		return Spec{}, fmt.Errorf("interval %s is below the 1m minimum", d)
	}
	return Spec{Kind: KindInterval, Every: d}, nil
}

// schedule resolves s in loc.
func (s Spec) schedule(loc *time.Location) (cron.Schedule, error) {
	if s.Kind == KindInterval {
		return cron.Every(s.Every), nil
	}
	expr := s.Cron
	if loc != nil && !strings.HasPrefix(expr, "CRON_TZ=") && !strings.HasPrefix(expr, "TZ=") {
		expr = "CRON_TZ=" + loc.String() + " " + expr
	}
	return parser.Parse(expr)
}
