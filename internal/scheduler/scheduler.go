package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job represents a scheduled job
type Job struct {
	Name        string
	Schedule    string // cron format with seconds: "0 */1 * * * *" for every minute
	Description string
	Run         func(ctx context.Context) error
}

// Status represents scheduler status
type Status struct {
	Running bool          `json:"running"`
	Jobs    int           `json:"jobs"`
	NextRun time.Time     `json:"next_run"`
	LastRun time.Time     `json:"last_run"`
	Uptime  time.Duration `json:"uptime"`
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// Scheduler runs jobs on cron schedules
type Scheduler struct {
	mu        sync.Mutex
	cron      *rcron.Cron
	jobs      map[string]Job
	entryMap  map[string]rcron.EntryID
	results   map[string]JobResult
	startTime time.Time
	running   bool
	ctx       context.Context
}

// NewScheduler creates an idle scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:     rcron.New(rcron.WithSeconds()),
		jobs:     make(map[string]Job),
		entryMap: make(map[string]rcron.EntryID),
		results:  make(map[string]JobResult),
		ctx:      context.Background(),
	}
}

// AddJob registers a job; the schedule is validated immediately
func (s *Scheduler) AddJob(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	name := job.Name
	id, err := s.cron.AddFunc(job.Schedule, func() {
		if _, err := s.RunJob(s.context(), name); err != nil {
			log.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}
	s.jobs[job.Name] = job
	s.entryMap[job.Name] = id
	return nil
}

// Start begins the cron loop; jobs receive ctx
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx = ctx
	s.running = true
	s.startTime = time.Now()
	s.cron.Start()
	log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop halts scheduling and waits for running jobs up to ctx
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		log.Warn().Msg("Scheduler stop timed out with jobs still running")
	}
	log.Info().Msg("Scheduler stopped")
}

// RunJob executes a job immediately and records the result
func (s *Scheduler) RunJob(ctx context.Context, name string) (JobResult, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return JobResult{}, fmt.Errorf("job not found: %s", name)
	}

	res := JobResult{JobName: name, StartTime: time.Now()}
	err := job.Run(ctx)
	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	res.Success = err == nil
	if err != nil {
		res.Error = err.Error()
	}

	s.mu.Lock()
	s.results[name] = res
	s.mu.Unlock()

	log.Debug().Str("job", name).Dur("duration", res.Duration).Bool("success", res.Success).Msg("Job finished")
	if err != nil {
		return res, fmt.Errorf("job %s: %w", name, err)
	}
	return res, nil
}

// ListJobs returns the registered jobs sorted by name
func (s *Scheduler) ListJobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// LastResult returns the most recent result of a job
func (s *Scheduler) LastResult(name string) (JobResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[name]
	return r, ok
}

// GetStatus returns current scheduler status
func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.running, Jobs: len(s.jobs)}
	if s.running {
		st.Uptime = time.Since(s.startTime)
	}
	for _, id := range s.entryMap {
		next := s.cron.Entry(id).Next
		if !next.IsZero() && (st.NextRun.IsZero() || next.Before(st.NextRun)) {
			st.NextRun = next
		}
	}
	for _, r := range s.results {
		if r.EndTime.After(st.LastRun) {
			st.LastRun = r.EndTime
		}
	}
	return st
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
