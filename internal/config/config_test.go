package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "recobot/pkg/logx"
)

const sampleYAML = `
logging:
  level: debug
  console: true
browser:
  exec_paths: [chromium, google-chrome]
  ready_timeout: 90s
  settle:
    per_line: 0s
delivery:
  upload_dir: ./uploads
  pace: 2s
render:
  default_format: layout-a
storage:
  driver: file
  path: ./data/recobot
jobs:
  - name: morning
    schedule: "09:15"
    input: ./in/reco.xlsx
    mode: stock
`

func TestParseYAML(t *testing.T) {
	cfg, err := Parse("recobot.yaml", []byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"chromium", "google-chrome"}, cfg.Browser.ExecPaths)
	assert.Equal(t, "90s", cfg.Browser.ReadyTimeout)
	require.NotNil(t, cfg.Browser.Settle)
	assert.Equal(t, "0s", cfg.Browser.Settle.PerLine)
	require.NotNil(t, cfg.Storage)
	assert.Equal(t, "file", cfg.Storage.Driver)
	require.Len(t, cfg.Jobs, 1)
	assert.Equal(t, "09:15", cfg.Jobs[0].Schedule)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse("c.yaml", []byte("browser:\n  exec_path: chromium\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec_path")

	_, err = Parse("c.json", []byte(`{"telegram":{}}`))
	require.Error(t, err)
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Parse("c.json", []byte(`{} {}`))
	require.Error(t, err)
}

func TestParseEmptyYAML(t *testing.T) {
	cfg, err := Parse("c.yml", nil)
	require.NoError(t, err)
	assert.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	cases := map[string]Config{
		"bad duration":       {Browser: BrowserConfig{ReadyTimeout: "soon"}},
		"negative duration":  {Delivery: DeliveryConfig{Pace: "-1s"}},
		"selector verb":      {Browser: BrowserConfig{Selectors: &SelectorsConfig{ResultByTitle: "//span"}}},
		"format":             {Render: RenderConfig{DefaultFormat: "fancy"}},
		"storage driver":     {Storage: &StorageConfig{Driver: "redis", Path: "x"}},
		"storage path":       {Storage: &StorageConfig{Driver: "sqlite"}},
		"insecure debug":     {Debug: DebugConfig{Enabled: true, Addr: "0.0.0.0:6060"}},
		"report token":       {Report: &ReportConfig{Enabled: true, ChatID: 1}},
		"job mode":           {Jobs: []JobConfig{{Name: "a", Schedule: "every 1h", Input: "x", Mode: "sms"}}},
		"broadcast job text": {Jobs: []JobConfig{{Name: "a", Schedule: "every 1h", Input: "x", Mode: "broadcast"}}},
		"duplicate job": {Jobs: []JobConfig{
			{Name: "a", Schedule: "every 1h", Input: "x", Mode: "tabular"},
			{Name: "a", Schedule: "every 2h", Input: "y", Mode: "tabular"},
		}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := cfg
			assert.Error(t, Validate(&cfg))
		})
	}

	ok := Config{Debug: DebugConfig{Enabled: true, Addr: "0.0.0.0:6060", Token: "s3cret"}}
	assert.NoError(t, Validate(&ok))
	ok = Config{Debug: DebugConfig{Enabled: true, Addr: "localhost:6060"}}
	assert.NoError(t, Validate(&ok))
}

func TestParseDurationOrDefault(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	d, err = ParseDurationOrDefault("x", "250ms", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	_, err = ParseDurationOrDefault("x", "abc", time.Minute)
	assert.ErrorContains(t, err, "x: invalid duration")

	d, set, err := ParseOptionalDuration("x", "0s")
	require.NoError(t, err)
	assert.True(t, set)
	assert.Zero(t, d)
}

func TestSummarizeChangeHidesTokens(t *testing.T) {
	oldCfg := &Config{Debug: DebugConfig{Enabled: true, Token: "a"}}
	newCfg := &Config{
		Debug:  DebugConfig{Enabled: true, Token: "b"},
		Report: &ReportConfig{Enabled: true, Token: "t", ChatID: 1},
		Jobs:   []JobConfig{{Name: "j"}},
	}
	changed, attrs := SummarizeChange(oldCfg, newCfg)
	assert.Equal(t, []string{"report", "jobs"}, changed, "rotating a token alone is not a debug change")
	assert.NotEmpty(t, attrs)

	changed, _ = SummarizeChange(newCfg, newCfg)
	assert.Empty(t, changed)
}

func TestManagerWatchPublishesValidReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recobot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logging":{"level":"info"}}`), 0o600))

	m := NewManager(path, logx.Nop())
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`{"logging":{"level":"bogus-json`), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(`{"logging":{"level":"debug"}}`), 0o600))

	select {
	case got := <-ch:
		assert.Equal(t, "debug", got.Logging.Level)
		assert.Equal(t, "debug", m.Get().Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("reload not published")
	}

	cancel()
	<-done
}

func TestManagerLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recobot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"delivery":{"pace":"fast"}}`), 0o600))
	_, err := NewManager(path, logx.Nop()).Load()
	assert.ErrorContains(t, err, "delivery.pace")
}
