package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/vcfgen/internal/tasks"
)

// Enqueuer adds tasks to the background queue.
type Enqueuer interface {
	Enqueue(task backlite.Task) (string, error)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// RetentionScheduler periodically enqueues a cleanup of old generations.
type RetentionScheduler struct {
	enqueuer Enqueuer
	schedule string
	maxAge   time.Duration

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewRetentionScheduler creates a new scheduler instance
func NewRetentionScheduler(enqueuer Enqueuer, schedule string, maxAge time.Duration) *RetentionScheduler {
	return &RetentionScheduler{
		enqueuer: enqueuer,
		schedule: schedule,
		maxAge:   maxAge,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the cleanup job and starts the cron loop. The scheduler
// stops itself when ctx is cancelled.
func (s *RetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunNow(); err != nil {
			log.Printf("Retention scheduler: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Retention scheduler: started with schedule '%s', max age %v", s.schedule, s.maxAge)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Retention scheduler: stopped")
}

// RunNow enqueues a cleanup immediately and returns the task ID.
func (s *RetentionScheduler) RunNow() (string, error) {
	hours := int(s.maxAge / time.Hour)
	if hours < 1 {
		hours = 1
	}
	id, err := s.enqueuer.Enqueue(tasks.CleanupGenerationsTask{MaxAgeHours: hours})
	if err != nil {
		return "", fmt.Errorf("enqueue cleanup: %w", err)
	}
	log.Printf("Retention scheduler: enqueued cleanup task %s", id)
	return id, nil
}

// IsRunning returns whether the scheduler is active
func (s *RetentionScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next cleanup will occur
func (s *RetentionScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}
