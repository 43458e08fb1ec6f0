// Package scheduler runs periodic tag maintenance.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/nvoss/shelfmark/internal/tasks"
)

// TaskEnqueuer is the task client surface the scheduler needs.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// TagMaintenanceScheduler periodically enqueues orphan tag cleanup and
// usage count recalculation.
type TagMaintenanceScheduler struct {
	queue    TaskEnqueuer
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewTagMaintenanceScheduler creates a scheduler that fires on the given
// five-field cron schedule.
func NewTagMaintenanceScheduler(queue TaskEnqueuer, schedule string) *TagMaintenanceScheduler {
	return &TagMaintenanceScheduler{
		queue:    queue,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler. An empty schedule disables it.
func (s *TagMaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.schedule == "" {
		log.Printf("Tag maintenance scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runMaintenance()
	})
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Tag maintenance scheduler: started with schedule '%s'. Next run: %v",
		s.schedule, s.cron.Entry(entryID).Next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running job to complete.
func (s *TagMaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Tag maintenance scheduler: stopped")
}

// RunNow enqueues the maintenance tasks immediately.
func (s *TagMaintenanceScheduler) RunNow() {
	go s.runMaintenance()
}

// IsRunning returns whether the scheduler is active.
func (s *TagMaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next maintenance run will occur.
func (s *TagMaintenanceScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

func (s *TagMaintenanceScheduler) runMaintenance() {
	if _, err := s.queue.Add(tasks.CleanupOrphanTagsTask{}).Save(); err != nil {
		log.Printf("Tag maintenance: failed to enqueue orphan cleanup: %v", err)
	}
	if _, err := s.queue.Add(tasks.RecalculateTagCountsTask{}).Save(); err != nil {
		log.Printf("Tag maintenance: failed to enqueue count recalculation: %v", err)
	}
}
