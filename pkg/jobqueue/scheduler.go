package jobqueue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultJobTimeout = time.Minute

type ScheduledJob struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Handler  func(ctx context.Context) error
}

type JobScheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]registered
}

type registered struct {
	id  cron.EntryID
	job ScheduledJob
}

func NewJobScheduler(logger *zap.Logger) *JobScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobScheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
		jobs:   make(map[string]registered),
	}
}

func (js *JobScheduler) AddJob(job ScheduledJob) error {
	if job.Name == "" || job.Handler == nil {
		return fmt.Errorf("job requires a name and a handler")
	}
	if job.Timeout <= 0 {
		job.Timeout = defaultJobTimeout
	}

	js.mu.Lock()
	defer js.mu.Unlock()
	if _, exists := js.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	entryID, err := js.cron.AddFunc(job.Schedule, func() {
		_ = js.execute(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule for job %q: %w", job.Name, err)
	}

	js.jobs[job.Name] = registered{id: entryID, job: job}
	return nil
}

// RunNow executes a registered job synchronously outside its schedule
func (js *JobScheduler) RunNow(ctx context.Context, name string) error {
	js.mu.Lock()
	r, ok := js.jobs[name]
	js.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return js.execute(ctx, r.job)
}

func (js *JobScheduler) execute(ctx context.Context, job ScheduledJob) error {
	ctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	js.logger.Debug("Executing scheduled job", zap.String("job", job.Name))
	if err := job.Handler(ctx); err != nil {
		js.logger.Error("Scheduled job failed", zap.String("job", job.Name), zap.Error(err))
		return err
	}
	return nil
}

func (js *JobScheduler) RemoveJob(name string) {
	js.mu.Lock()
	defer js.mu.Unlock()
	if r, exists := js.jobs[name]; exists {
		js.cron.Remove(r.id)
		delete(js.jobs, name)
	}
}

func (js *JobScheduler) Start() {
	js.cron.Start()
	js.logger.Info("Job scheduler started", zap.Int("jobs", len(js.GetJobs())))
}

func (js *JobScheduler) Stop() {
	ctx := js.cron.Stop()
	<-ctx.Done()
	js.logger.Info("Job scheduler stopped")
}

func (js *JobScheduler) GetJobs() []string {
	js.mu.Lock()
	defer js.mu.Unlock()
	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
