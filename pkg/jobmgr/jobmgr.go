// Package jobmgr tracks named units of work so they can be listed, kept from
// running twice and cancelled.
//
//	jm := jobmgr.NewManager(slog.Default())
//	err := jm.Run(ctx, "clear-channel:123", func(ctx context.Context) error {
//	    // work until ctx is cancelled
//	    return nil
//	})
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	ErrJobRunning    = errors.New("job is already running")
	ErrJobNotRunning = errors.New("job is not running")
)

// Job is a running unit of work.
type Job struct {
	Name    string
	Started time.Time

	cancel context.CancelFunc
}

// Manager is safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*Job
	log  *slog.Logger
	now  func() time.Time
}

// NewManager creates a Manager. A nil logger uses slog.Default().
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		jobs: make(map[string]*Job),
		log:  log.With("component", "jobs"),
		now:  time.Now,
	}
}

// Run executes fn in the calling goroutine under name and returns its error.
func (m *Manager) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, done, err := m.start(ctx, name)
	if err != nil {
		return err
	}
	defer done()
	return m.finish(name, fn(ctx))
}

// Go starts fn in a new goroutine under name and returns immediately.
func (m *Manager) Go(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, done, err := m.start(ctx, name)
	if err != nil {
		return err
	}
	go func() {
		defer done()
		_ = m.finish(name, fn(ctx))
	}()
	return nil
}

func (m *Manager) start(parent context.Context, name string) (context.Context, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[name]; exists {
		return nil, nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}

	ctx, cancel := context.WithCancel(parent)
	job := &Job{Name: name, Started: m.now(), cancel: cancel}
	m.jobs[name] = job
	m.log.Debug("Job started", "job", name)

	done := func() {
		cancel()
		m.mu.Lock()
		if m.jobs[name] == job {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}
	return ctx, done, nil
}

func (m *Manager) finish(name string, err error) error {
	switch {
	case err == nil:
		m.log.Debug("Job done", "job", name)
	case errors.Is(err, context.Canceled):
		m.log.Info("Job cancelled", "job", name)
	default:
		m.log.Warn("Job failed", "job", name, "error", err)
	}
	return err
}

// Stop cancels a running job. The job is forgotten once its function returns.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotRunning, name)
	}
	job.cancel()
	return nil
}

// List returns the running jobs, oldest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, Job{Name: j.Name, Started: j.Started})
	}
	slices.SortFunc(out, func(a, b Job) int {
		if c := a.Started.Compare(b.Started); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Status returns a one-line summary such as "Running jobs: sweep, clear-channel:1".
func (m *Manager) Status() string {
	jobs := m.List()
	if len(jobs) == 0 {
		return "No jobs are running."
	}
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name
	}
	return "Running jobs: " + strings.Join(names, ", ")
}
