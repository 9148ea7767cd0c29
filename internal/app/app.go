// Package app wires configuration, the dispatcher and the daemon services
// into the two entry points: a one-shot Trigger and the long-running Serve.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"recobot/internal/config"
	"recobot/internal/debug"
	"recobot/internal/dispatch"
	"recobot/internal/eventbus"
	"recobot/internal/model"
	"recobot/internal/notifier"
	"recobot/internal/runtime/supervisor"
	"recobot/internal/schedule"
	"recobot/internal/sheet"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
	"recobot/pkg/systemd"
)

// ErrRunActive is returned when a trigger arrives while a run is in flight.
var ErrRunActive = errors.New("a dispatch run is already active")

// Request describes one dispatch trigger.
type Request struct {
	Input       string
	Mode        string
	Format      string
	Message     string
	MessageFile string
	// Trigger names the origin for logs and audit ("cli", "schedule:<job>").
	Trigger string
}

type App struct {
	cfgm  *config.Manager
	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	sessions  func(cfg *config.Config, log logx.Logger) (dispatch.SessionFactory, error)
	newSender func(cfg notifier.Config) (notifier.Sender, error)
	sdnotify  *systemd.Notifier
	now       func() time.Time
	stopGrace time.Duration

	runMu  sync.Mutex
	runs   sync.WaitGroup
	active atomic.Pointer[dispatch.Run]

	sup   *supervisor.Supervisor
	sched *schedule.Service
	dbg   *debug.Server
}

type Option func(*App)

// WithSessions replaces the browser session factory.
func WithSessions(fn func(cfg *config.Config, log logx.Logger) (dispatch.SessionFactory, error)) Option {
	return func(a *App) { a.sessions = fn }
}

// WithSender replaces the Telegram sender used for run reports.
func WithSender(fn func(cfg notifier.Config) (notifier.Sender, error)) Option {
	return func(a *App) { a.newSender = fn }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New loads cfgPath and opens logging and storage.
func New(cfgPath string, opts ...Option) (*App, error) {
	// Logging comes up first so the manager logs through the final sinks.
	boot, err := config.ParseFile(cfgPath)
	if err != nil {
		return nil, err
	}
	logSvc, log := logx.New(mapLogConfig(boot))
	log = log.With(logx.Comp("app"))

	cfgm := config.NewManager(cfgPath, logSvc.Logger())
	cfg, err := cfgm.Load()
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, logSvc.Logger())
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	a := &App{
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		bus:       eventbus.New(),
		store:     store,
		sessions:  browserSessions,
		newSender: notifier.NewTelegram,
		sdnotify:  systemd.New(),
		now:       time.Now,
		stopGrace: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.validate(context.Background(), cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	cfgm.SetValidator(a.validate)
	return a, nil
}

func browserSessions(cfg *config.Config, log logx.Logger) (dispatch.SessionFactory, error) {
	bc, err := mapBrowserConfig(cfg)
	if err != nil {
		return nil, err
	}
	return dispatch.BrowserSessions(bc, log), nil
}

func (a *App) Config() *config.Config { return a.cfgm.Get() }
func (a *App) Logger() logx.Logger    { return a.log }
func (a *App) Bus() eventbus.Bus      { return a.bus }

// Busy reports whether a run is in flight.
func (a *App) Busy() bool { return a.active.Load() != nil }

// StopActive asks the in-flight run, if any, to skip its remaining groups.
func (a *App) StopActive() bool {
	r := a.active.Load()
	if r == nil {
		return false
	}
	r.Stop()
	return true
}

// Close releases storage and log sinks.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.logs.Close())
	return errors.Join(errs...)
}

// validate runs on every reload, after config.Validate.
func (a *App) validate(_ context.Context, cfg *config.Config) error {
	var errs []error
	for i, j := range cfg.Jobs {
		if _, err := schedule.Parse(j.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("jobs[%d].schedule: %w", i, err))
		}
		if tz := strings.TrimSpace(j.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				errs = append(errs, fmt.Errorf("jobs[%d].timezone: invalid %q: %w", i, tz, err))
			}
		}
	}
	if _, err := mapBrowserConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapDispatchConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapDebugConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := mapNotifierConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Trigger runs one dispatch synchronously. Only one run may be active; a
// concurrent trigger gets ErrRunActive without side effects.
func (a *App) Trigger(ctx context.Context, req Request) (dispatch.Result, error) {
	if !a.runMu.TryLock() {
		return dispatch.Result{Error: ErrRunActive.Error()}, ErrRunActive
	}
	a.runs.Add(1)
	defer func() {
		a.runMu.Unlock()
		a.runs.Done()
	}()

	rep, err := a.trigger(ctx, req)
	return dispatch.NewResult(rep, err), err
}

func (a *App) trigger(ctx context.Context, req Request) (model.Report, error) {
	cfg := a.cfgm.Get()
	trigger := strings.TrimSpace(req.Trigger)
	if trigger == "" {
		trigger = "manual"
	}
	log := a.log.With(logx.String("trigger", trigger))

	mode, format, text, err := parseRequest(cfg, req)
	if err != nil {
		return model.Report{}, err
	}

	staged, err := sheet.Stage(req.Input, uploadDir(cfg), a.now())
	if err != nil {
		return model.Report{}, fmt.Errorf("stage input: %w", err)
	}
	table, err := sheet.Load(staged, mode, log)
	if err != nil {
		if rerr := os.Remove(staged); rerr != nil {
			log.Warn("staged input not removed", logx.String("path", staged), logx.Err(rerr))
		}
		return model.Report{}, err
	}

	dcfg, err := mapDispatchConfig(cfg)
	if err != nil {
		_ = os.Remove(staged)
		return model.Report{}, err
	}
	sessions, err := a.sessions(cfg, a.logs.Logger())
	if err != nil {
		_ = os.Remove(staged)
		return model.Report{}, err
	}

	r := dispatch.NewRun(table, trigger)
	r.Format = format
	r.BroadcastText = text
	r.ArtifactPath = staged

	a.active.Store(r)
	defer a.active.Store(nil)

	d := dispatch.New(dcfg, sessions, a.bus, a.store, a.logs.Logger())
	return d.Run(ctx, r)
}

func broadcastText(mode model.Mode, req Request) (string, error) {
	if mode != model.ModeBroadcast {
		return "", nil
	}
	if req.Message != "" {
		return req.Message, nil
	}
	if p := strings.TrimSpace(req.MessageFile); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("read message file: %w", err)
		}
		return string(b), nil
	}
	return "", errors.New("broadcast mode needs a message")
}

func parseRequest(cfg *config.Config, req Request) (model.Mode, model.Format, string, error) {
	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		return "", "", "", err
	}
	rawFormat := req.Format
	if strings.TrimSpace(rawFormat) == "" {
		rawFormat = cfg.Render.DefaultFormat
	}
	format, err := model.ParseFormat(rawFormat)
	if err != nil {
		return "", "", "", err
	}
	text, err := broadcastText(mode, req)
	if err != nil {
		return "", "", "", err
	}
	return mode, format, text, nil
}

// Preview renders every group's message for req without opening a browser
// or staging the input.
func (a *App) Preview(req Request) ([]dispatch.Rendered, error) {
	cfg := a.cfgm.Get()
	mode, format, text, err := parseRequest(cfg, req)
	if err != nil {
		return nil, err
	}
	table, err := sheet.Load(req.Input, mode, a.log)
	if err != nil {
		return nil, err
	}
	r := dispatch.NewRun(table, "preview")
	r.Format = format
	r.BroadcastText = text
	return dispatch.Preview(mapRenderOptions(cfg), r)
}

// RecentRuns returns up to n audited runs, newest first.
func (a *App) RecentRuns(ctx context.Context, n int) ([]storage.RunRecord, error) {
	if a.store == nil {
		return nil, storage.ErrDisabled
	}
	return a.store.RecentRuns(ctx, n)
}
