package dispatch

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"recobot/internal/model"
)

// Run is the state of one dispatch run. It is created per request and never
// shared between runs.
type Run struct {
	ID      string
	Trigger string

	Format        model.Format
	BroadcastText string
	Table         *model.Table
	// ArtifactPath is the staged input file removed on teardown.
	ArtifactPath string

	stopped atomic.Bool

	mu       sync.Mutex
	session  Session
	once     sync.Once
	teardown error
}

func NewRun(table *model.Table, trigger string) *Run {
	return &Run{
		ID:      uuid.NewString(),
		Trigger: trigger,
		Table:   table,
	}
}

func (r *Run) Mode() model.Mode {
	if r.Table == nil {
		return ""
	}
	return r.Table.Mode
}

// Stop asks the run to skip remaining groups. The group in flight finishes.
func (r *Run) Stop()         { r.stopped.Store(true) }
func (r *Run) Stopped() bool { return r.stopped.Load() }

func (r *Run) attach(s Session) {
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
}

// Teardown closes the session, drops the loaded rows and removes the staged
// artifact. Only the first call does work; later calls return its result.
func (r *Run) Teardown() error {
	r.once.Do(func() {
		var errs []error

		r.mu.Lock()
		s := r.session
		r.session = nil
		r.mu.Unlock()
		if s != nil {
			if err := s.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close session: %w", err))
			}
		}

		r.Table.Reset()

		if r.ArtifactPath != "" {
			if err := os.Remove(r.ArtifactPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove artifact: %w", err))
			}
		}
		r.teardown = errors.Join(errs...)
	})
	return r.teardown
}
