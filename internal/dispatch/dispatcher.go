package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/time/rate"

	"recobot/internal/browser"
	"recobot/internal/dispatch/group"
	"recobot/internal/dispatch/render"
	"recobot/internal/eventbus"
	"recobot/internal/model"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

// Config tunes a Dispatcher.
type Config struct {
	// ReadyTimeout bounds the wait for the operator login; 0 uses the
	// session's default.
	ReadyTimeout time.Duration
	// Pace is the minimum gap between two deliveries; 0 disables pacing.
	Pace time.Duration
	// AuditTimeout bounds the run audit write.
	AuditTimeout time.Duration
	Render       render.Options
}

type Dispatcher struct {
	cfg        Config
	log        logx.Logger
	bus        eventbus.Bus
	store      storage.Store
	newSession SessionFactory
	now        func() time.Time
}

// New builds a Dispatcher. bus and store may be nil.
func New(cfg Config, newSession SessionFactory, bus eventbus.Bus, store storage.Store, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = 5 * time.Second
	}
	return &Dispatcher{
		cfg:        cfg,
		log:        log.With(logx.Comp("dispatch")),
		bus:        bus,
		store:      store,
		newSession: newSession,
		now:        time.Now,
	}
}

// Run delivers every unit of r and returns the report. The report holds one
// outcome per group unless the session could not be brought up, in which
// case it is empty and err is a *LaunchError or *ReadyTimeoutError.
// Teardown of r always happens before Run returns.
func (d *Dispatcher) Run(ctx context.Context, r *Run) (rep model.Report, err error) {
	if r == nil {
		return model.Report{}, ErrNilRun
	}
	log := d.log.With(logx.String("run", r.ID), logx.String("mode", string(r.Mode())))
	rep = model.Report{RunID: r.ID, Mode: r.Mode(), StartedAt: d.now()}

	defer func() {
		if terr := r.Teardown(); terr != nil {
			log.Warn("teardown incomplete", logx.Err(terr))
		}
		rep.FinishedAt = d.now()
		d.finish(log, r, &rep, err)
		rep = rep.Frozen()
	}()

	units, err := group.Units(r.Table)
	if err != nil {
		return rep, &GroupingError{Err: err}
	}
	rep.Groups = len(units)
	d.bus.Publish(eventbus.Event{Type: eventbus.RunStarted, Data: eventbus.RunInfo{
		RunID: r.ID, Mode: string(r.Mode()), Trigger: r.Trigger, Groups: len(units),
	}})
	log.Info("run started", logx.Int("groups", len(units)), logx.String("trigger", r.Trigger))
	if len(units) == 0 {
		return rep, nil
	}

	sess := d.newSession()
	r.attach(sess)
	if err := sess.Launch(ctx); err != nil {
		return rep, err
	}
	if err := sess.AwaitReady(ctx, d.cfg.ReadyTimeout); err != nil {
		return rep, err
	}

	pace := rate.NewLimiter(rate.Inf, 1)
	if d.cfg.Pace > 0 {
		pace = rate.NewLimiter(rate.Every(d.cfg.Pace), 1)
	}

	for i, u := range units {
		name := u.Group.Name
		if r.Stopped() || ctx.Err() != nil || pace.Wait(ctx) != nil {
			for _, rest := range units[i:] {
				d.fail(log, r, &rep, rest.Group.Name, model.KindCancelled, errCancelled, 0)
			}
			log.Warn("run cancelled", logx.Int("skipped", len(units)-i))
			return rep, nil
		}

		start := d.now()
		kind, gerr := d.deliverOne(ctx, sess, r, u)
		took := d.now().Sub(start)
		if gerr == nil {
			rep.Succeed(name)
			d.bus.Publish(eventbus.Event{Type: eventbus.GroupDelivered, Data: eventbus.GroupInfo{RunID: r.ID, Group: name, Took: took}})
			log.Info("delivered", logx.String("group", name), logx.Duration("took", took))
			continue
		}

		d.fail(log, r, &rep, name, kind, gerr, took)
		if errors.Is(gerr, browser.ErrSessionClosed) {
			for _, rest := range units[i+1:] {
				d.fail(log, r, &rep, rest.Group.Name, model.KindCancelled, errSessionLost, 0)
			}
			return rep, &SessionError{Group: name, Err: gerr}
		}
	}
	return rep, nil
}

// deliverOne renders and delivers a single unit. A panic is converted into a
// failure of this unit only.
func (d *Dispatcher) deliverOne(ctx context.Context, sess Session, r *Run, u model.Unit) (kind string, err error) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error("panic delivering group", logx.String("group", u.Group.Name),
				logx.Any("panic", p), logx.String("stack", string(debug.Stack())))
			kind, err = model.KindPanic, fmt.Errorf("panic: %v", p)
		}
	}()

	body, err := renderUnit(d.cfg.Render, r, u)
	if err != nil {
		return model.KindRender, err
	}

	// A started delivery runs to completion or to its own timeouts; Stop and
	// ctx cancellation take effect before the next group.
	if err := sess.Deliver(context.WithoutCancel(ctx), u.Group.Name, body); err != nil {
		var de *DeliveryError
		if errors.As(err, &de) && de.Timeout() {
			return model.KindTimeout, err
		}
		return model.KindDelivery, err
	}
	return "", nil
}

func (d *Dispatcher) fail(log logx.Logger, r *Run, rep *model.Report, name, kind string, err error, took time.Duration) {
	rep.Fail(name, kind, err.Error())
	d.bus.Publish(eventbus.Event{Type: eventbus.GroupFailed, Data: eventbus.GroupInfo{
		RunID: r.ID, Group: name, Kind: kind, Reason: err.Error(), Took: took,
	}})
	if kind != model.KindCancelled {
		log.Warn("delivery failed", logx.String("group", name), logx.String("kind", kind), logx.Err(err))
	}
}

// finish publishes the terminal event and writes the audit record.
func (d *Dispatcher) finish(log logx.Logger, r *Run, rep *model.Report, err error) {
	info := eventbus.RunInfo{
		RunID:   r.ID,
		Mode:    string(rep.Mode),
		Trigger: r.Trigger,
		Groups:  rep.Groups,
		OK:      len(rep.Succeeded()),
		Fail:    len(rep.Failed()),
		Took:    rep.Duration(),
	}
	if err != nil {
		info.Error = err.Error()
		d.bus.Publish(eventbus.Event{Type: eventbus.RunAborted, Data: info})
		log.Error("run aborted", logx.Err(err), logx.Int("ok", info.OK), logx.Int("fail", info.Fail))
	} else {
		d.bus.Publish(eventbus.Event{Type: eventbus.RunFinished, Data: info})
		log.Info("run finished", logx.Int("ok", info.OK), logx.Int("fail", info.Fail), logx.Duration("took", info.Took))
	}

	if d.store == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.Background(), d.cfg.AuditTimeout)
	defer cancel()
	rec := storage.RunRecord{
		RunID:      r.ID,
		Mode:       info.Mode,
		Trigger:    r.Trigger,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Groups:     info.Groups,
		OK:         info.OK,
		Fail:       info.Fail,
		Aborted:    err != nil,
		Error:      info.Error,
		TookMS:     info.Took.Milliseconds(),
	}
	if aerr := d.store.AppendRun(actx, rec); aerr != nil {
		log.Warn("audit write failed", logx.Err(aerr))
	}
}
