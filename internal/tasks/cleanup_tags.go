package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// maintenanceQueueConfig is shared by the tag maintenance tasks: they run
// once per trigger, are cheap enough to retry manually, and keep payload
// data only for failed runs.
func maintenanceQueueConfig(name string) backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        name,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OrphanTagsCleaner deletes tags that no book references anymore.
type OrphanTagsCleaner interface {
	DeleteOrphanTags() (int64, error)
}

// CleanupOrphanTagsTask removes tags that are no longer attached to any book.
type CleanupOrphanTagsTask struct{}

func (t CleanupOrphanTagsTask) Config() backlite.QueueConfig {
	return maintenanceQueueConfig("cleanup_orphan_tags")
}

// CleanupOrphanTagsProcessor creates the processor function for CleanupOrphanTagsTask.
func CleanupOrphanTagsProcessor(cleaner OrphanTagsCleaner) backlite.QueueProcessor[CleanupOrphanTagsTask] {
	return func(ctx context.Context, task CleanupOrphanTagsTask) error {
		if cleaner == nil {
			return fmt.Errorf("orphan tags cleaner not configured")
		}
		deleted, err := cleaner.DeleteOrphanTags()
		if err != nil {
			return fmt.Errorf("cleanup orphan tags: %w", err)
		}
		log.Printf("tasks: cleaned up %d orphan tags", deleted)
		return nil
	}
}

// NewCleanupOrphanTagsQueue creates the backlite queue for tag cleanup tasks.
func NewCleanupOrphanTagsQueue(cleaner OrphanTagsCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupOrphanTagsProcessor(cleaner))
}
