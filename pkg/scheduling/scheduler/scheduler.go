package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
	"github.com/vnykmshr/reactflow/pkg/common/validation"
	"github.com/vnykmshr/reactflow/pkg/metrics"
	"github.com/vnykmshr/reactflow/pkg/scheduling/timer"
)

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Entry describes a scheduled job.
type Entry struct {
	ID       string
	Spec     string        // cron expression, empty for interval jobs
	Interval time.Duration // zero for cron jobs
	Next     time.Time
	Runs     int
	Created  time.Time
}

// Config holds scheduler configuration.
type Config struct {
	Timer    timer.Scheduler   // time source (default: system clock)
	Location *time.Location    // for cron evaluation (default: time.Local)
	MaxJobs  int               // maximum number of scheduled jobs (default: 1000)
	Logger   *slog.Logger      // optional
	Metrics  *metrics.Registry // optional
}

type entry struct {
	id       string
	spec     string
	interval time.Duration
	schedule cron.Schedule
	job      Job
	next     time.Time
	created  time.Time
	runs     int
	timer    timer.Timer
	running  atomic.Bool
}

// Scheduler runs named jobs on cron expressions or fixed intervals. A run
// that comes due while the previous run of the same job is still going is
// skipped.
type Scheduler struct {
	clock    timer.Scheduler
	location *time.Location
	maxJobs  int
	logger   *slog.Logger
	metrics  *metrics.Registry
	parser   cron.Parser

	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// New creates a scheduler. Jobs may be added before or after Start.
func New(cfg Config) *Scheduler {
	clock := cfg.Timer
	if clock == nil {
		clock = timer.System()
	}
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	maxJobs := cfg.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 1000
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Scheduler{
		clock:    clock,
		location: location,
		maxJobs:  maxJobs,
		logger:   logger,
		metrics:  cfg.Metrics,
		parser:   newParser(),
		entries:  make(map[string]*entry),
	}
}

// ScheduleCron runs job whenever spec fires. See ParseSpec for the accepted
// formats.
func (s *Scheduler) ScheduleCron(id, spec string, job Job) error {
	if err := validation.ValidateNotEmpty("scheduler", "spec", spec); err != nil {
		return err
	}
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return rferrors.NewValidationError("scheduler", "spec", spec, err.Error()).
			WithHint("use five fields, six with seconds, or a descriptor such as @every 1m")
	}
	return s.add(&entry{id: id, spec: spec, schedule: schedule, job: job})
}

// ScheduleEvery runs job every interval, starting one interval after Start.
func (s *Scheduler) ScheduleEvery(id string, interval time.Duration, job Job) error {
	if err := validation.ValidatePositiveDuration("scheduler", "interval", interval); err != nil {
		return err
	}
	return s.add(&entry{id: id, interval: interval, job: job})
}

func (s *Scheduler) add(e *entry) error {
	if err := validation.ValidateNotEmpty("scheduler", "id", e.id); err != nil {
		return err
	}
	if e.job == nil {
		return rferrors.NewValidationError("scheduler", "job", nil, "job cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.id]; exists {
		return fmt.Errorf("job with ID %q already exists, cancel it first", e.id)
	}
	if len(s.entries) >= s.maxJobs {
		return fmt.Errorf("cannot schedule job: maximum number of jobs (%d) reached", s.maxJobs)
	}

	e.created = s.clock.Now()
	s.entries[e.id] = e
	if s.running {
		s.arm(e)
	}
	return nil
}

// Cancel removes a job. A run already in progress is not interrupted.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[id]
	if !exists {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.entries, id)
	return true
}

// List returns the scheduled jobs ordered by next run time.
func (s *Scheduler) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, Entry{
			ID:       e.id,
			Spec:     e.spec,
			Interval: e.interval,
			Next:     e.next,
			Runs:     e.runs,
			Created:  e.created,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Next.Equal(entries[j].Next) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Next.Before(entries[j].Next)
	})
	return entries
}

// Start arms every job. Runs receive a context derived from ctx that is
// cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}

	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		s.arm(e)
	}
	return nil
}

// Stop disarms every job and cancels running ones. The returned channel is
// closed once all runs have returned.
func (s *Scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.running {
		s.running = false
		for _, e := range s.entries {
			if e.timer != nil {
				e.timer.Stop()
				e.timer = nil
			}
		}
		s.cancel()
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.wg.Wait()
	}()
	return stopped
}

// arm schedules the next firing of e. Callers hold s.mu.
func (s *Scheduler) arm(e *entry) {
	now := s.clock.Now()
	if e.schedule != nil {
		e.next = e.schedule.Next(now.In(s.location))
	} else {
		e.next = now.Add(e.interval)
	}
	e.timer = s.clock.AfterFunc(e.next.Sub(now), func() { s.fire(e) })
}

func (s *Scheduler) fire(e *entry) {
	s.mu.Lock()
	if !s.running || s.entries[e.id] != e {
		s.mu.Unlock()
		return
	}
	s.arm(e)
	ctx := s.ctx

	if !e.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		s.metrics.ObserveJobSkipped(e.id)
		s.logger.Warn("job still running, skipping", "job", e.id)
		return
	}
	e.runs++
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, e)
}

func (s *Scheduler) run(ctx context.Context, e *entry) {
	defer s.wg.Done()

	start := s.clock.Now()
	err := runJob(ctx, e.job)
	elapsed := s.clock.Now().Sub(start)
	e.running.Store(false)

	s.metrics.ObserveJob(e.id, elapsed, err)
	if err != nil {
		s.logger.Error("job failed", "job", e.id, "duration", elapsed, "error", err)
		return
	}
	s.logger.Info("job finished", "job", e.id, "duration", elapsed)
}

func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return job.Run(ctx)
}
