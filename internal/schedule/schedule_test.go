package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "recobot/pkg/logx"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw   string
		kind  Kind
		cron  string
		every time.Duration
	}{
		{raw: "0 9 * * 1-5", kind: KindCron, cron: "0 9 * * 1-5"},
		{raw: "cron:@hourly", kind: KindCron, cron: "@hourly"},
		{raw: "@daily", kind: KindCron, cron: "@daily"},
		{raw: "every 2h", kind: KindInterval, every: 2 * time.Hour},
		{raw: "every:30m", kind: KindInterval, every: 30 * time.Minute},
		{raw: "interval:45m", kind: KindInterval, every: 45 * time.Minute},
		{raw: "90m", kind: KindInterval, every: 90 * time.Minute},
		{raw: "09:15", kind: KindDaily, cron: "15 9 * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.cron, got.Cron)
			assert.Equal(t, tt.every, got.Every)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{"", "not-a-schedule", "25:00", "every 10s", "0 99 * * *", "cron:"} {
		_, err := Parse(raw)
		assert.Error(t, err, raw)
	}
}

func TestDailyHonorsTimezone(t *testing.T) {
	spec, err := Parse("09:15")
	require.NoError(t, err)
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	sched, err := spec.schedule(loc)
	require.NoError(t, err)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	next := sched.Next(from).In(loc)
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 15, next.Minute())
}

func TestApplyReplacesJobs(t *testing.T) {
	s := New(logx.Nop())
	noop := func(context.Context) {}

	require.NoError(t, s.Apply([]Job{
		{Name: "morning", Schedule: "09:15", Run: noop},
		{Name: "hourly", Schedule: "every 1h", Run: noop},
	}))
	names := func() []string {
		var out []string
		for _, e := range s.Entries() {
			out = append(out, e.Name)
		}
		return out
	}
	assert.Equal(t, []string{"hourly", "morning"}, names())

	err := s.Apply([]Job{
		{Name: "evening", Schedule: "18:00", Run: noop},
		{Name: "broken", Schedule: "whenever", Run: noop},
		{Name: "evening", Schedule: "19:00", Run: noop},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"evening"}, names())
}

func TestJobFires(t *testing.T) {
	s := New(logx.Nop())
	var fired atomic.Int32
	require.NoError(t, s.Apply([]Job{{Name: "sec", Schedule: "* * * * * *", Run: func(ctx context.Context) {
		fired.Add(1)
	}}}))
	s.Start(context.Background())
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return fired.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
}
