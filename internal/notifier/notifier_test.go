package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recobot/internal/eventbus"
	logx "recobot/pkg/logx"
)

type fakeSender struct {
	mu    sync.Mutex
	fails int
	sent  []string
}

func (f *fakeSender) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("telegram: 502")
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestSummary(t *testing.T) {
	info := eventbus.RunInfo{RunID: "r1", Mode: "tabular", Groups: 3, OK: 2, Fail: 1, Took: 61500 * time.Millisecond}
	got := Summary(info, false, []eventbus.GroupInfo{{Group: "Ghost Group", Kind: "timeout"}})
	assert.Equal(t, "Dispatch run finished (tabular)\n"+
		"Groups: 3, sent: 2, failed: 1\n"+
		"Took: 1m2s\n"+
		"Failed groups:\n"+
		"- Ghost Group (timeout)\n"+
		"Run ID: r1", got)
}

func TestSummaryCapsFailedList(t *testing.T) {
	var failed []eventbus.GroupInfo
	for i := 0; i < maxListed+3; i++ {
		failed = append(failed, eventbus.GroupInfo{Group: fmt.Sprintf("g%d", i), Kind: "delivery"})
	}
	got := Summary(eventbus.RunInfo{RunID: "r", Error: "browser session lost"}, true, failed)
	assert.Contains(t, got, "Dispatch run ABORTED")
	assert.Contains(t, got, "Error: browser session lost")
	assert.Contains(t, got, "... and 3 more")
	assert.NotContains(t, got, "g10")
}

func TestHandleCollectsFailuresPerRun(t *testing.T) {
	sender := &fakeSender{fails: 1}
	s := New(Config{RatePerSec: 100, RetryBase: time.Millisecond}, sender, logx.Nop())
	ctx := context.Background()

	s.Handle(ctx, eventbus.Event{Type: eventbus.GroupFailed, Data: eventbus.GroupInfo{RunID: "r1", Group: "Ghost Group", Kind: "timeout"}})
	s.Handle(ctx, eventbus.Event{Type: eventbus.GroupFailed, Data: eventbus.GroupInfo{RunID: "other", Group: "X", Kind: "render"}})
	s.Handle(ctx, eventbus.Event{Type: eventbus.RunFinished, Data: eventbus.RunInfo{RunID: "r1", Groups: 2, OK: 1, Fail: 1}})

	require.Len(t, sender.sent, 1, "retried after a transient failure")
	assert.Contains(t, sender.sent[0], "Ghost Group")
	assert.NotContains(t, sender.sent[0], "- X")
	assert.NotContains(t, s.failures, "r1")
}

func TestRunStartedDropsStaleFailures(t *testing.T) {
	s := New(Config{RatePerSec: 100}, &fakeSender{}, logx.Nop())
	ctx := context.Background()

	s.Handle(ctx, eventbus.Event{Type: eventbus.GroupFailed, Data: eventbus.GroupInfo{RunID: "lost", Group: "A", Kind: "timeout"}})
	s.Handle(ctx, eventbus.Event{Type: eventbus.RunStarted, Data: eventbus.RunInfo{RunID: "r2", Groups: 1}})
	assert.Empty(t, s.failures)

	s.Handle(ctx, eventbus.Event{Type: eventbus.GroupFailed, Data: eventbus.GroupInfo{RunID: "r2", Group: "B", Kind: "delivery"}})
	assert.Len(t, s.failures["r2"], 1)
}

func TestOnlyFailuresSkipsCleanRuns(t *testing.T) {
	sender := &fakeSender{}
	s := New(Config{OnlyFailures: true, RatePerSec: 100}, sender, logx.Nop())
	s.Handle(context.Background(), eventbus.Event{Type: eventbus.RunFinished, Data: eventbus.RunInfo{RunID: "r", Groups: 1, OK: 1}})
	assert.Empty(t, sender.sent)

	s.Handle(context.Background(), eventbus.Event{Type: eventbus.RunAborted, Data: eventbus.RunInfo{RunID: "r2"}})
	assert.Len(t, sender.sent, 1)
}

func TestNewTelegramRequiresToken(t *testing.T) {
	_, err := NewTelegram(Config{})
	require.Error(t, err)

	s, err := NewTelegram(Config{Token: "123:abc", ChatID: -100})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
