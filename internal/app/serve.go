package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recobot/internal/config"
	"recobot/internal/debug"
	"recobot/internal/dispatch"
	"recobot/internal/metrics"
	"recobot/internal/notifier"
	"recobot/internal/runtime/supervisor"
	"recobot/internal/schedule"
	logx "recobot/pkg/logx"
	"recobot/pkg/systemd"
)

// Serve runs the daemon until ctx ends or a service fails: scheduled jobs,
// config hot reload, run reports, metrics and the debug server.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.cfgm.Get()
	dcfg, err := mapDebugConfig(cfg)
	if err != nil {
		return err
	}
	var report *notifier.Service
	if ncfg, enabled, err := mapNotifierConfig(cfg); err != nil {
		return err
	} else if enabled {
		sender, err := a.newSender(ncfg)
		if err != nil {
			return fmt.Errorf("report notifier: %w", err)
		}
		report = notifier.New(ncfg, sender, a.logs.Logger())
	}

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	sctx := a.sup.Context()

	a.sup.GoRestart("metrics", func(c context.Context) error {
		return metrics.Consume(c, a.bus, a.log)
	}, time.Second, 30*time.Second)
	if report != nil {
		a.sup.GoRestart("notifier", func(c context.Context) error {
			return report.Run(c, a.bus)
		}, time.Second, 30*time.Second)
	}

	a.dbg = debug.New(debug.Deps{Store: a.store, Supervisor: a.sup.Snapshot, Busy: a.Busy}, a.logs.Logger())
	if err := a.dbg.Apply(sctx, dcfg); err != nil {
		a.log.Warn("debug server not started", logx.Err(err))
	}

	a.sched = schedule.New(a.logs.Logger())
	if err := a.sched.Apply(a.jobs(cfg)); err != nil {
		a.log.Warn("some jobs were not scheduled", logx.Err(err))
	}
	a.sched.Start(sctx)

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return nil
			case next, ok := <-sub:
				if !ok {
					return nil
				}
				// Coalesce bursts; only the newest config matters.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							next = newer
						}
					default:
						drained = true
					}
				}
				a.reload(c, last, next)
				last = next
			}
		}
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch, time.Second, 30*time.Second)

	if iv := systemd.WatchdogInterval(); iv > 0 {
		a.sup.Go("systemd.watchdog", func(c context.Context) error {
			t := time.NewTicker(iv)
			defer t.Stop()
			for {
				select {
				case <-c.Done():
					return nil
				case <-t.C:
					if err := a.sdnotify.Watchdog(); err != nil {
						a.log.Debug("watchdog notify failed", logx.Err(err))
					}
				}
			}
		})
	}

	if err := a.sdnotify.Ready(); err != nil {
		a.log.Debug("sd_notify ready failed", logx.Err(err))
	}
	_ = a.sdnotify.Status("serving %d jobs", len(a.sched.Entries()))
	a.log.Info("serving", logx.Int("jobs", len(a.sched.Entries())))

	<-sctx.Done()
	return a.shutdown(context.Background())
}

// reload applies the parts of a new config that can change at runtime.
// Browser, delivery and render settings are read per run and need nothing.
func (a *App) reload(ctx context.Context, prev, next *config.Config) {
	_ = a.sdnotify.Reloading()
	defer func() { _ = a.sdnotify.Ready() }()

	sections, attrs := config.SummarizeChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	changed := map[string]bool{}
	for _, s := range sections {
		changed[s] = true
	}

	if changed["logging"] {
		a.logs.Apply(mapLogConfig(next))
	}
	if changed["jobs"] {
		if err := a.sched.Apply(a.jobs(next)); err != nil {
			a.log.Warn("some jobs were not scheduled", logx.Err(err))
		}
	}
	if changed["debug"] {
		if dcfg, err := mapDebugConfig(next); err != nil {
			a.log.Warn("invalid debug config; keeping previous", logx.Err(err))
		} else if err := a.dbg.Apply(ctx, dcfg); err != nil {
			a.log.Warn("debug server apply failed", logx.Err(err))
		}
	}
	for _, s := range []string{"storage", "report"} {
		if changed[s] {
			a.log.Warn(s + " config changed; restart required for changes to take effect")
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// jobs turns enabled job configs into scheduled triggers.
func (a *App) jobs(cfg *config.Config) []schedule.Job {
	var out []schedule.Job
	for _, jc := range cfg.Jobs {
		if jc.Disabled {
			continue
		}
		out = append(out, schedule.Job{
			Name:     jc.Name,
			Schedule: jc.Schedule,
			Timezone: jc.Timezone,
			Run:      func(ctx context.Context) { a.runJob(ctx, jc) },
		})
	}
	return out
}

func (a *App) runJob(ctx context.Context, jc config.JobConfig) {
	log := a.log.With(logx.String("job", jc.Name))
	res, err := a.Trigger(ctx, Request{
		Input:       jc.Input,
		Mode:        jc.Mode,
		Format:      jc.Format,
		Message:     jc.Message,
		MessageFile: jc.MessageFile,
		Trigger:     "schedule:" + jc.Name,
	})
	switch {
	case errors.Is(err, ErrRunActive):
		log.Warn("job skipped: a run is already active")
	case err != nil && dispatch.Fatal(err):
		log.Error("job run aborted", logx.String("run", res.RunID), logx.Err(err))
	case err != nil:
		log.Error("job run failed", logx.Err(err))
	default:
		log.Info("job run finished",
			logx.String("run", res.RunID),
			logx.Int("groups", res.GroupsCount),
			logx.Int("failed", len(res.Details.FailedGroups)),
		)
	}
}

// shutdown stops services in order, each step bounded so one stuck
// component cannot hold the process.
func (a *App) shutdown(ctx context.Context) error {
	_ = a.sdnotify.Stopping()
	a.log.Info("stopping")

	step := func(name string, max time.Duration, fn func(context.Context)) {
		start := time.Now()
		sctx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			fn(sctx)
		}()
		select {
		case <-done:
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-sctx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("scheduler", 5*time.Second, a.sched.Stop)
	step("active run", a.stopGrace, func(c context.Context) {
		if a.StopActive() {
			a.log.Info("waiting for the active run to finish its current group")
		}
		waitGroup(c, a.runs.Wait)
	})
	step("debug", 3*time.Second, a.dbg.Stop)
	step("services", 5*time.Second, func(c context.Context) { _ = a.sup.Stop(c) })

	a.log.Info("stopped")
	err := a.sup.Err()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func waitGroup(ctx context.Context, wait func()) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
