package dispatch

import (
	"context"
	"time"

	"recobot/internal/browser"
	logx "recobot/pkg/logx"
)

// Session is the UI session contract the dispatcher drives. *browser.Driver
// implements it.
type Session interface {
	Launch(ctx context.Context) error
	AwaitReady(ctx context.Context, timeout time.Duration) error
	Deliver(ctx context.Context, group, body string) error
	Close() error
}

// SessionFactory creates a fresh session for one run.
type SessionFactory func() Session

// BrowserSessions returns a factory of go-rod backed drivers.
func BrowserSessions(cfg browser.Config, log logx.Logger) SessionFactory {
	return func() Session {
		return browser.NewDriver(cfg, browser.ChromeLauncher{Log: log}, log)
	}
}

var _ Session = (*browser.Driver)(nil)
