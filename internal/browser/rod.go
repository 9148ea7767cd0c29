package browser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	logx "recobot/pkg/logx"
)

// ChromeLauncher starts a Chromium-family browser through go-rod.
type ChromeLauncher struct {
	Log logx.Logger
}

func (l ChromeLauncher) Open(ctx context.Context, spec LaunchSpec) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lc := launcher.New().
		Headless(spec.Headless).
		Leakless(false).
		Set("start-maximized").
		Set("window-size", fmt.Sprintf("%d,%d", spec.WindowWidth, spec.WindowHeight))
	if spec.Source != "" {
		path, err := exec.LookPath(spec.Source)
		if err != nil {
			return nil, fmt.Errorf("locate %q: %w", spec.Source, err)
		}
		lc = lc.Bin(path)
	}
	if spec.UserDataDir != "" {
		lc = lc.UserDataDir(spec.UserDataDir)
	}

	controlURL, err := lc.Launch()
	if err != nil {
		lc.Kill()
		return nil, fmt.Errorf("start %q: %w", spec.Source, err)
	}
	// The browser outlives the launch call; Close tears it down.
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		lc.Kill()
		return nil, fmt.Errorf("connect %q: %w", spec.Source, err)
	}
	pg, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		lc.Kill()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	log := l.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log.Debug("browser connected", logx.Comp("rod"), logx.String("source", spec.Source))
	return &rodPage{
		browser:     b,
		page:        pg,
		launcher:    lc,
		keepDataDir: spec.UserDataDir != "",
	}, nil
}

type rodPage struct {
	browser     *rod.Browser
	page        *rod.Page
	launcher    *launcher.Launcher
	keepDataDir bool

	mu     sync.Mutex
	closed bool
}

// check maps an error to ErrSessionClosed when the browser no longer answers.
func (p *rodPage) check(err error) error {
	if err == nil {
		return nil
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	if _, perr := (proto.BrowserGetVersion{}).Call(p.browser); perr != nil {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return err
}

func (p *rodPage) element(ctx context.Context, sel string) (*rod.Element, error) {
	// Callers wait on Exists first; a node gone by now is an error, not a retry.
	el, err := p.page.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementX(sel)
	return el, p.check(err)
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	return p.check(p.page.Context(ctx).Navigate(url))
}

func (p *rodPage) Exists(ctx context.Context, sel string) (bool, error) {
	has, _, err := p.page.Context(ctx).HasX(sel)
	if err != nil {
		return false, p.check(err)
	}
	return has, nil
}

func (p *rodPage) Click(ctx context.Context, sel string) error {
	el, err := p.element(ctx, sel)
	if err != nil {
		return err
	}
	return p.check(el.Click(proto.InputMouseButtonLeft, 1))
}

func (p *rodPage) Clear(ctx context.Context, sel string) error {
	el, err := p.element(ctx, sel)
	if err != nil {
		return err
	}
	if err := el.Focus(); err != nil {
		return p.check(err)
	}
	mod := selectAllModifier()
	return p.check(p.page.Context(ctx).KeyActions().
		Press(mod).Type(input.KeyA).Release(mod).
		Type(input.Delete).
		Do())
}

func (p *rodPage) Type(ctx context.Context, sel, text string) error {
	if text == "" {
		return nil
	}
	el, err := p.element(ctx, sel)
	if err != nil {
		return err
	}
	if err := el.Focus(); err != nil {
		return p.check(err)
	}
	return p.check(p.page.Context(ctx).InsertText(text))
}

// Newline sends Shift+Enter; a plain Enter would submit the message.
func (p *rodPage) Newline(ctx context.Context, sel string) error {
	el, err := p.element(ctx, sel)
	if err != nil {
		return err
	}
	if err := el.Focus(); err != nil {
		return p.check(err)
	}
	return p.check(p.page.Context(ctx).KeyActions().
		Press(input.ShiftLeft).Type(input.Enter).Release(input.ShiftLeft).
		Do())
}

func (p *rodPage) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.browser.Close()
	if p.keepDataDir {
		// Cleanup would delete the profile holding the login.
		p.launcher.Kill()
	} else {
		p.launcher.Cleanup()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func selectAllModifier() input.Key {
	if runtime.GOOS == "darwin" {
		return input.MetaLeft
	}
	return input.ControlLeft
}
