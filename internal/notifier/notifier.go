// Package notifier posts dispatch run summaries to a Telegram chat.
//
// It listens on the event bus, collects per-group failures for each run and
// sends one message when the run ends. Sending is rate limited and retried;
// a failed post is logged and never affects the run.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"recobot/internal/eventbus"
	logx "recobot/pkg/logx"
)

// maxListed caps the failed groups named in one summary.
const maxListed = 10

type Config struct {
	Token        string
	ChatID       int64
	ThreadID     int
	RatePerSec   int
	Timeout      time.Duration
	OnlyFailures bool
	RetryMax     int
	RetryBase    time.Duration
}

// Sender posts one text message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type telegramSender struct {
	bot    *tele.Bot
	chat   *tele.Chat
	thread int
}

// NewTelegram builds a Sender for cfg. It does not contact Telegram until
// the first Send.
func NewTelegram(cfg Config) (Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &telegramSender{bot: b, chat: &tele.Chat{ID: cfg.ChatID}, thread: cfg.ThreadID}, nil
}

func (t *telegramSender) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(t.chat, text, &tele.SendOptions{
		ThreadID:              t.thread,
		DisableWebPagePreview: true,
	})
	return err
}

type Service struct {
	cfg     Config
	sender  Sender
	limiter *rate.Limiter
	log     logx.Logger

	failures map[string][]eventbus.GroupInfo
}

func New(cfg Config, sender Sender, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	return &Service{
		cfg:      cfg,
		sender:   sender,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		log:      log.With(logx.Comp("notifier")),
		failures: map[string][]eventbus.GroupInfo{},
	}
}

// Run consumes bus events until ctx ends.
func (s *Service) Run(ctx context.Context, bus eventbus.Bus) error {
	ch, unsub := bus.Subscribe(256)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			s.Handle(ctx, e)
		}
	}
}

// Handle processes one event; run-ending events trigger a post.
func (s *Service) Handle(ctx context.Context, e eventbus.Event) {
	switch e.Type {
	case eventbus.RunStarted:
		// Runs never overlap, so anything left over belongs to a run whose
		// terminal event was dropped.
		if info, ok := e.Data.(eventbus.RunInfo); ok {
			for id := range s.failures {
				if id != info.RunID {
					delete(s.failures, id)
				}
			}
		}
	case eventbus.GroupFailed:
		if g, ok := e.Data.(eventbus.GroupInfo); ok {
			s.failures[g.RunID] = append(s.failures[g.RunID], g)
		}
	case eventbus.RunFinished, eventbus.RunAborted:
		info, ok := e.Data.(eventbus.RunInfo)
		if !ok {
			return
		}
		failed := s.failures[info.RunID]
		delete(s.failures, info.RunID)
		if s.cfg.OnlyFailures && e.Type == eventbus.RunFinished && info.Fail == 0 {
			return
		}
		text := Summary(info, e.Type == eventbus.RunAborted, failed)
		if err := s.post(ctx, text); err != nil {
			s.log.Warn("run summary not sent", logx.String("run", info.RunID), logx.Err(err))
		}
	}
}

func (s *Service) post(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.RetryBase
	eb.Reset()
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.cfg.RetryMax)), ctx)
	return backoff.Retry(func() error { return s.sender.Send(ctx, text) }, b)
}

// Summary renders the chat message for one finished run.
func Summary(info eventbus.RunInfo, aborted bool, failed []eventbus.GroupInfo) string {
	var b strings.Builder
	status := "finished"
	if aborted {
		status = "ABORTED"
	}
	fmt.Fprintf(&b, "Dispatch run %s (%s)\n", status, info.Mode)
	fmt.Fprintf(&b, "Groups: %d, sent: %d, failed: %d\n", info.Groups, info.OK, info.Fail)
	if info.Took > 0 {
		fmt.Fprintf(&b, "Took: %s\n", info.Took.Round(time.Second))
	}
	if info.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", info.Error)
	}
	if len(failed) > 0 {
		b.WriteString("Failed groups:\n")
		for i, g := range failed {
			if i == maxListed {
				fmt.Fprintf(&b, "... and %d more\n", len(failed)-maxListed)
				break
			}
			fmt.Fprintf(&b, "- %s (%s)\n", g.Group, g.Kind)
		}
	}
	fmt.Fprintf(&b, "Run ID: %s", info.RunID)
	return b.String()
}
