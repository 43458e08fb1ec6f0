package tasks

import (
	"context"
	"fmt"
	"log"

	"github.com/mikestefanello/backlite"
)

// UsageCountRecalculator reconciles denormalized tag usage counts.
type UsageCountRecalculator interface {
	RecalculateUsageCounts() (int64, error)
}

// RecalculateTagCountsTask rebuilds tag usage counts from the book-tag edges.
type RecalculateTagCountsTask struct{}

func (t RecalculateTagCountsTask) Config() backlite.QueueConfig {
	return maintenanceQueueConfig("recalculate_tag_counts")
}

// RecalculateTagCountsProcessor creates the processor function for RecalculateTagCountsTask.
func RecalculateTagCountsProcessor(recalc UsageCountRecalculator) backlite.QueueProcessor[RecalculateTagCountsTask] {
	return func(ctx context.Context, task RecalculateTagCountsTask) error {
		if recalc == nil {
			return fmt.Errorf("usage count recalculator not configured")
		}
		fixed, err := recalc.RecalculateUsageCounts()
		if err != nil {
			return fmt.Errorf("recalculate tag counts: %w", err)
		}
		log.Printf("tasks: corrected usage counts for %d tags", fixed)
		return nil
	}
}

// NewRecalculateTagCountsQueue creates the backlite queue for count recalculation tasks.
func NewRecalculateTagCountsQueue(recalc UsageCountRecalculator) backlite.Queue {
	return backlite.NewQueue(RecalculateTagCountsProcessor(recalc))
}
