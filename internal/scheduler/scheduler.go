// Package scheduler runs vigil's background work under a supervision
// tree: the check loop, the periodic compress/transform/trim jobs, and
// the blocked-app watchdog. A crashed service is restarted with
// backoff instead of taking the daemon down.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thejerf/suture/v4"
)

// Default job cadences.
const (
	CompressInterval = 30 * time.Minute
	TransformNightly = 24 * time.Hour
	TrimInterval     = time.Minute
	WatchdogInterval = 5 * time.Second
)

// Job is a named periodic task. A panicking or failing run is logged
// and the ticker keeps going; RunAtStart controls whether the first
// run happens immediately or only after the first interval.
type Job struct {
	Name       string
	Interval   time.Duration
	RunAtStart bool
	Fn         func(context.Context) error
}

// Serve implements suture.Service.
func (j *Job) Serve(ctx context.Context) error {
	if j.Interval <= 0 {
		return fmt.Errorf("job %s has no interval", j.Name)
	}
	if j.RunAtStart {
		j.run(ctx)
	}
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

// run executes one tick with panic isolation.
func (j *Job) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("job", j.Name).Interface("panic", r).Msg("job panicked")
		}
	}()
	if err := j.Fn(ctx); err != nil {
		log.Warn().Err(err).Str("job", j.Name).Msg("job run failed")
	}
}

func (j *Job) String() string { return j.Name }

// serviceFunc adapts a long-running function into a suture service.
type serviceFunc struct {
	name string
	fn   func(context.Context) error
}

func (s serviceFunc) Serve(ctx context.Context) error { return s.fn(ctx) }
func (s serviceFunc) String() string                  { return s.name }

// Scheduler is a thin wrapper over a suture supervision tree.
type Scheduler struct {
	tree *suture.Supervisor
}

// New creates a scheduler with the given tree name.
func New(name string) *Scheduler {
	return &Scheduler{tree: suture.NewSimple(name)}
}

// AddJob registers a periodic job.
func (s *Scheduler) AddJob(job *Job) {
	s.tree.Add(job)
}

// AddService registers a long-running service by name.
func (s *Scheduler) AddService(name string, fn func(context.Context) error) {
	s.tree.Add(serviceFunc{name: name, fn: fn})
}

// Serve runs the tree until the context is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	return s.tree.Serve(ctx)
}
