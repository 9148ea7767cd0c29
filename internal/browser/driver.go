package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	logx "recobot/pkg/logx"
)

// Step names reported on DeliveryError.
const (
	StepSearch  = "search"
	StepSelect  = "select"
	StepCompose = "compose"
	StepSend    = "send"
)

// Driver is the UI session state machine. It is not safe for concurrent
// Deliver calls; one run drives it from one goroutine.
type Driver struct {
	cfg      Config
	launcher Launcher
	log      logx.Logger

	mu    sync.Mutex
	state State
	page  Page
}

func NewDriver(cfg Config, launcher Launcher, log logx.Logger) *Driver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Driver{
		cfg:      cfg.withDefaults(),
		launcher: launcher,
		log:      log.With(logx.Comp("browser")),
		state:    StateUninitialized,
	}
}

func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	prev := d.state
	d.state = s
	d.mu.Unlock()
	if prev != s {
		d.log.Trace("state", logx.String("from", prev.String()), logx.String("to", s.String()))
	}
}

func (d *Driver) sources() []string {
	src := d.cfg.Sources
	if len(src) > 2 {
		src = src[:2]
	}
	return src
}

// Launch provisions a browser from the primary source, falling back once to
// the alternate, and opens the client URL.
func (d *Driver) Launch(ctx context.Context) error {
	if st := d.State(); st != StateUninitialized {
		return fmt.Errorf("launch in state %s", st)
	}
	d.setState(StateLaunching)

	sources := d.sources()
	if len(sources) == 0 {
		d.setState(StateClosed)
		return &LaunchError{Err: ErrNoSources}
	}

	attempt := 0
	var page Page
	op := func() error {
		src := sources[attempt]
		attempt++
		p, err := d.launcher.Open(ctx, LaunchSpec{
			Source:       src,
			UserDataDir:  d.cfg.UserDataDir,
			Headless:     d.cfg.Headless,
			WindowWidth:  d.cfg.WindowWidth,
			WindowHeight: d.cfg.WindowHeight,
		})
		if err != nil {
			d.log.Warn("browser source failed", logx.String("source", src), logx.Err(err))
			return err
		}
		d.log.Info("browser started", logx.String("source", src))
		page = p
		return nil
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(d.cfg.LaunchRetryDelay)
	b = backoff.WithMaxRetries(b, uint64(len(sources)-1))
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		d.setState(StateClosed)
		return &LaunchError{Sources: sources, Err: err}
	}

	d.mu.Lock()
	d.page = page
	d.mu.Unlock()

	if err := page.Navigate(ctx, d.cfg.URL); err != nil {
		_ = d.Close()
		return &LaunchError{Sources: sources, Err: fmt.Errorf("open %s: %w", d.cfg.URL, err)}
	}
	d.setState(StateAwaitingReady)
	return nil
}

// AwaitReady blocks until the client's search surface is present, which
// only happens after the login QR code was scanned. timeout <= 0 uses the
// configured ready timeout.
func (d *Driver) AwaitReady(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = d.cfg.ReadyTimeout
	}
	if st := d.State(); st != StateAwaitingReady {
		return fmt.Errorf("await ready in state %s: %w", st, ErrNotReady)
	}
	d.log.Info("waiting for messaging client; scan the QR code on the phone if prompted",
		logx.Duration("timeout", timeout))

	if err := d.waitFor(ctx, d.cfg.Selectors.SearchBox, timeout); err != nil {
		if errors.Is(err, ErrSessionClosed) {
			d.setState(StateClosed)
			return &LaunchError{Sources: d.sources(), Err: fmt.Errorf("browser exited before login: %w", err)}
		}
		return &ReadyTimeoutError{Timeout: timeout, Err: err}
	}
	d.setState(StateReady)
	d.log.Info("messaging client ready")
	return nil
}

// Deliver sends body to group. On return the driver is back in READY unless
// the browser died, in which case the error wraps ErrSessionClosed.
func (d *Driver) Deliver(ctx context.Context, group, body string) error {
	if st := d.State(); st != StateReady {
		return &DeliveryError{Group: group, Step: StepSearch, Err: fmt.Errorf("state %s: %w", st, ErrNotReady)}
	}
	d.mu.Lock()
	page := d.page
	d.mu.Unlock()

	err := d.deliver(ctx, page, group, body)
	if err != nil && errors.Is(err, ErrSessionClosed) {
		d.setState(StateClosed)
		return err
	}
	d.setState(StateReady)
	return err
}

func (d *Driver) deliver(ctx context.Context, pg Page, group, body string) error {
	page := boundedPage{Page: pg, timeout: d.cfg.ElementTimeout}
	sel := d.cfg.Selectors
	st := d.cfg.Settle
	fail := func(step string, err error) error {
		return &DeliveryError{Group: group, Step: step, Err: err}
	}

	d.setState(StateSearching)
	if err := d.waitFor(ctx, sel.SearchBox, d.cfg.SearchTimeout); err != nil {
		return fail(StepSearch, err)
	}
	if err := page.Click(ctx, sel.SearchBox); err != nil {
		return fail(StepSearch, err)
	}
	if err := pause(ctx, st.AfterClick); err != nil {
		return fail(StepSearch, err)
	}
	if err := page.Clear(ctx, sel.SearchBox); err != nil {
		return fail(StepSearch, err)
	}
	if err := pause(ctx, st.AfterClear); err != nil {
		return fail(StepSearch, err)
	}
	if err := page.Type(ctx, sel.SearchBox, group); err != nil {
		return fail(StepSearch, err)
	}
	if err := pause(ctx, st.AfterSearch); err != nil {
		return fail(StepSearch, err)
	}

	// Substring match on the title: the first hit wins, so "Alpha" may open
	// "Alpha Testing" if that one is listed first.
	d.setState(StateSelecting)
	result := fmt.Sprintf(sel.ResultByTitle, Literal(group))
	if err := pause(ctx, st.BeforeSelect); err != nil {
		return fail(StepSelect, err)
	}
	if err := d.waitFor(ctx, result, d.cfg.ElementTimeout); err != nil {
		return fail(StepSelect, err)
	}
	if err := page.Click(ctx, result); err != nil {
		return fail(StepSelect, err)
	}
	if err := pause(ctx, st.AfterSelect); err != nil {
		return fail(StepSelect, err)
	}

	d.setState(StateComposing)
	if err := d.waitFor(ctx, sel.Composer, d.cfg.ElementTimeout); err != nil {
		return fail(StepCompose, err)
	}
	if err := page.Click(ctx, sel.Composer); err != nil {
		return fail(StepCompose, err)
	}
	if err := page.Clear(ctx, sel.Composer); err != nil {
		return fail(StepCompose, err)
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if line != "" {
			if err := page.Type(ctx, sel.Composer, line); err != nil {
				return fail(StepCompose, err)
			}
		}
		if i < len(lines)-1 {
			if err := page.Newline(ctx, sel.Composer); err != nil {
				return fail(StepCompose, err)
			}
		}
		if err := pause(ctx, st.PerLine); err != nil {
			return fail(StepCompose, err)
		}
	}

	d.setState(StateSending)
	if err := pause(ctx, st.BeforeSend); err != nil {
		return fail(StepSend, err)
	}
	if err := d.waitFor(ctx, sel.SendButton, d.cfg.ElementTimeout); err != nil {
		return fail(StepSend, err)
	}
	if err := page.Click(ctx, sel.SendButton); err != nil {
		return fail(StepSend, err)
	}
	if err := pause(ctx, st.AfterSend); err != nil {
		return fail(StepSend, err)
	}
	d.log.Debug("message sent", logx.String("group", group), logx.Int("lines", len(lines)))
	return nil
}

// boundedPage caps every interaction at timeout, even when ctx never ends.
type boundedPage struct {
	Page
	timeout time.Duration
}

func (p boundedPage) do(ctx context.Context, sel string, fn func(context.Context) error) error {
	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := fn(actx)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %s: %w", ErrElementTimeout, p.timeout, sel, err)
	}
	return err
}

func (p boundedPage) Click(ctx context.Context, sel string) error {
	return p.do(ctx, sel, func(c context.Context) error { return p.Page.Click(c, sel) })
}

func (p boundedPage) Clear(ctx context.Context, sel string) error {
	return p.do(ctx, sel, func(c context.Context) error { return p.Page.Clear(c, sel) })
}

func (p boundedPage) Type(ctx context.Context, sel, text string) error {
	return p.do(ctx, sel, func(c context.Context) error { return p.Page.Type(c, sel, text) })
}

func (p boundedPage) Newline(ctx context.Context, sel string) error {
	return p.do(ctx, sel, func(c context.Context) error { return p.Page.Newline(c, sel) })
}

// waitFor polls until sel exists. A closed session ends the wait at once;
// other probe errors are treated as "not yet".
func (d *Driver) waitFor(ctx context.Context, sel string, timeout time.Duration) error {
	d.mu.Lock()
	page := d.page
	d.mu.Unlock()
	if page == nil {
		return ErrSessionClosed
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	var last error
	for {
		ok, err := page.Exists(ctx, sel)
		if err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return err
			}
			last = err
		} else if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			if last != nil {
				return fmt.Errorf("%w after %s: %s (last probe error: %v)", ErrElementTimeout, timeout, sel, last)
			}
			return fmt.Errorf("%w after %s: %s", ErrElementTimeout, timeout, sel)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the browser. Safe to call more than once.
func (d *Driver) Close() error {
	d.mu.Lock()
	page := d.page
	d.page = nil
	prev := d.state
	d.state = StateClosed
	d.mu.Unlock()

	if prev != StateClosed {
		d.log.Debug("state", logx.String("from", prev.String()), logx.String("to", StateClosed.String()))
	}
	if page == nil {
		return nil
	}
	return page.Close()
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
