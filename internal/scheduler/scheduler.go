package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one periodic maintenance task.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Scheduler runs maintenance jobs once at startup and then on their
// interval. Jobs never overlap.
type Scheduler struct {
	jobs     []Job
	logger   *logrus.Logger
	tick     time.Duration
	now      func() time.Time
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex
	lastRun  map[string]time.Time
	stopOnce sync.Once
}

func NewScheduler(logger *logrus.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		jobs:     jobs,
		logger:   logger,
		tick:     time.Minute,
		now:      time.Now,
		stopChan: make(chan struct{}),
		lastRun:  make(map[string]time.Time),
	}
}

// Start begins the scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	s.logger.Info("Running startup maintenance jobs")
	s.runDue(time.Time{})

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.runDue(t)
		}
	}
}

// runDue runs every job whose interval has passed since its last run. A
// zero time runs them all.
func (s *Scheduler) runDue(t time.Time) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	for _, job := range s.jobs {
		last, ran := s.lastRun[job.Name]
		if !t.IsZero() && ran && t.Sub(last) < job.Every {
			continue
		}
		select {
		case <-s.stopChan:
			return
		default:
		}
		s.runJob(job)
	}
}

func (s *Scheduler) runJob(job Job) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := s.now()
	log := s.logger.WithField("job", job.Name)
	log.Debug("Starting maintenance job")
	if err := job.Run(ctx); err != nil {
		log.WithError(err).Error("Maintenance job failed")
	} else {
		log.WithField("duration", s.now().Sub(start).String()).Info("Maintenance job completed successfully")
	}
	s.lastRun[job.Name] = start
}

// Stop cancels a running job and waits for the scheduler to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}
