// Package schedule triggers dispatch jobs on cron, interval or daily
// time-of-day schedules.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "recobot/pkg/logx"
)

// Job is one scheduled trigger.
type Job struct {
	Name     string
	Schedule string
	Timezone string
	Run      func(ctx context.Context)
}

// Entry is the public view of a scheduled job.
type Entry struct {
	Name string    `json:"name"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type Service struct {
	log logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	ctx     context.Context
	entries map[string]cron.EntryID
}

func New(log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.Comp("schedule"))
	cl := cronLogger{log: log}
	return &Service{
		log: log,
		c: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		ctx:     context.Background(),
		entries: map[string]cron.EntryID{},
	}
}

// Start begins firing jobs; ctx is passed to every job run.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.c.Start()
}

// Stop halts the scheduler and waits for running jobs up to ctx.
func (s *Service) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out; job still running")
	}
}

// Apply replaces the scheduled set with jobs. Invalid jobs are skipped and
// reported in the returned error; valid ones are still scheduled.
func (s *Service) Apply(jobs []Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, id := range s.entries {
		s.c.Remove(id)
		delete(s.entries, name)
	}

	var bad []string
	for _, j := range jobs {
		if err := s.addLocked(j); err != nil {
			s.log.Warn("job not scheduled", logx.String("job", j.Name), logx.Err(err))
			bad = append(bad, fmt.Sprintf("%s: %v", j.Name, err))
			continue
		}
	}
	s.log.Info("schedule applied", logx.Int("jobs", len(s.entries)))
	if len(bad) > 0 {
		return fmt.Errorf("invalid jobs: %s", strings.Join(bad, "; "))
	}
	return nil
}

func (s *Service) addLocked(j Job) error {
	if _, dup := s.entries[j.Name]; dup {
		return fmt.Errorf("duplicate job name")
	}
	spec, err := Parse(j.Schedule)
	if err != nil {
		return err
	}
	var loc *time.Location
	if tz := strings.TrimSpace(j.Timezone); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return fmt.Errorf("timezone %q: %w", tz, err)
		}
	}
	sched, err := spec.schedule(loc)
	if err != nil {
		return err
	}
	run := j.Run
	name := j.Name
	id := s.c.Schedule(sched, cron.FuncJob(func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		s.log.Info("job fired", logx.String("job", name))
		run(ctx)
	}))
	s.entries[j.Name] = id
	return nil
}

// Entries lists scheduled jobs by name.
func (s *Service) Entries() []Entry {
	s.mu.Lock()
	ids := make(map[cron.EntryID]string, len(s.entries))
	for name, id := range s.entries {
		ids[id] = name
	}
	s.mu.Unlock()

	var out []Entry
	for _, e := range s.c.Entries() {
		if name, ok := ids[e.ID]; ok {
			out = append(out, Entry{Name: name, Next: e.Next, Prev: e.Prev})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct {
	log logx.Logger
}

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, logx.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, logx.Err(err), logx.Any("kv", kv))
}
