package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a named periodic task. A failing run is logged and waits for the
// next tick; it is never retried early.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type JobStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int           `json:"runs"`
	Failures  int           `json:"failures"`
	LastRun   time.Time     `json:"last_run"`
	LastError string        `json:"last_error,omitempty"`
}

type jobEntry struct {
	job    Job
	ticker *time.Ticker
	cancel context.CancelFunc

	mu     sync.Mutex
	status JobStatus
}

type Scheduler struct {
	jobs       map[string]*jobEntry
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	runOnStart bool
	started    bool
	wg         sync.WaitGroup
	log        *zap.SugaredLogger
}

func NewScheduler(runOnStart bool, log *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:       make(map[string]*jobEntry),
		ctx:        ctx,
		cancel:     cancel,
		runOnStart: runOnStart,
		log:        log.Sugar().With("component", "scheduler"),
	}
}

// Start launches every job registered so far. Jobs added later start
// immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	for _, entry := range s.jobs {
		s.launchLocked(entry)
	}
	s.log.Infow("scheduler started", "jobs", len(s.jobs))
}

// Stop cancels all jobs and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.log.Info("stopping scheduler")
	s.cancel()

	s.mu.Lock()
	for _, entry := range s.jobs {
		if entry.ticker != nil {
			entry.ticker.Stop()
		}
		if entry.cancel != nil {
			entry.cancel()
		}
	}
	s.jobs = make(map[string]*jobEntry)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// AddJob registers a job, replacing any job with the same name.
func (s *Scheduler) AddJob(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[job.Name]; ok {
		s.stopLocked(existing)
	}
	entry := &jobEntry{job: job, status: JobStatus{Name: job.Name, Interval: job.Interval}}
	s.jobs[job.Name] = entry
	if s.started {
		s.launchLocked(entry)
	}
	s.log.Infow("added job", "job", job.Name, "interval", job.Interval)
	return nil
}

func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.jobs[name]; ok {
		s.stopLocked(entry)
		delete(s.jobs, name)
		s.log.Infow("removed job", "job", name)
	}
}

// RunNow executes a job synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	entry, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	return s.execute(ctx, entry)
}

func (s *Scheduler) stopLocked(entry *jobEntry) {
	if entry.ticker != nil {
		entry.ticker.Stop()
	}
	if entry.cancel != nil {
		entry.cancel()
	}
}

func (s *Scheduler) launchLocked(entry *jobEntry) {
	jobCtx, jobCancel := context.WithCancel(s.ctx)
	entry.ticker = time.NewTicker(entry.job.Interval)
	entry.cancel = jobCancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.runOnStart {
			_ = s.execute(jobCtx, entry)
		}
		s.runJob(jobCtx, entry)
	}()
}

func (s *Scheduler) runJob(ctx context.Context, entry *jobEntry) {
	defer entry.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-entry.ticker.C:
			_ = s.execute(ctx, entry)
		}
	}
}

// execute runs the job once, converting a panic into an error.
func (s *Scheduler) execute(ctx context.Context, entry *jobEntry) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", entry.job.Name, r)
		}

		entry.mu.Lock()
		entry.status.Runs++
		entry.status.LastRun = start
		entry.status.LastError = ""
		if err != nil {
			entry.status.Failures++
			entry.status.LastError = err.Error()
		}
		entry.mu.Unlock()

		if err != nil {
			s.log.Errorw("job failed", "job", entry.job.Name, "err", err, "duration", time.Since(start))
		} else {
			s.log.Debugw("job finished", "job", entry.job.Name, "duration", time.Since(start))
		}
	}()

	return entry.job.Run(ctx)
}

// Status reports whether the scheduler is running and per-job counters.
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobStatus, 0, len(s.jobs))
	for _, entry := range s.jobs {
		entry.mu.Lock()
		jobs = append(jobs, entry.status)
		entry.mu.Unlock()
	}
	return map[string]interface{}{
		"active_jobs": len(s.jobs),
		"running":     s.started && s.ctx.Err() == nil,
		"jobs":        jobs,
	}
}
