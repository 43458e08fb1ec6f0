package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/nvoss/shelfmark/internal/tasks"
)

// TaskQueue is the subset of the task client used by the HTTP layer.
type TaskQueue interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// MaintenanceScheduler is the scheduler surface exposed over HTTP.
type MaintenanceScheduler interface {
	RunNow()
	IsRunning() bool
	NextRunTime() *time.Time
}

// TasksController exposes maintenance task operations over HTTP. The
// scheduler is optional; when nil the scheduler endpoints report it as
// disabled.
type TasksController struct {
	queue     TaskQueue
	scheduler MaintenanceScheduler
}

// NewTasksController creates a controller backed by the given task queue.
func NewTasksController(queue TaskQueue, scheduler MaintenanceScheduler) *TasksController {
	return &TasksController{queue: queue, scheduler: scheduler}
}

// TaskTypeInfo describes an enqueueable maintenance task.
type TaskTypeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func taskByName(name string) (backlite.Task, bool) {
	switch name {
	case "cleanup-orphan-tags":
		return tasks.CleanupOrphanTagsTask{}, true
	case "recalculate-tag-counts":
		return tasks.RecalculateTagCountsTask{}, true
	default:
		return nil, false
	}
}

// ListTaskTypes returns the task types that can be enqueued.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, []TaskTypeInfo{
		{
			Name:        "cleanup-orphan-tags",
			Description: "Delete tags that are no longer attached to any book",
		},
		{
			Name:        "recalculate-tag-counts",
			Description: "Rebuild denormalized tag usage counts from book-tag edges",
		},
	})
}

// RunTask enqueues a maintenance task by name.
func (tc *TasksController) RunTask(c *gin.Context) {
	name := c.Param("name")
	task, ok := taskByName(name)
	if !ok {
		respondNotFound(c, "task type")
		return
	}

	ids, err := tc.queue.Add(task).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	respondAccepted(c, "task enqueued", gin.H{"task": name, "task_ids": ids})
}

// SchedulerStatus reports whether periodic maintenance is enabled and when
// it fires next.
func (tc *TasksController) SchedulerStatus(c *gin.Context) {
	if tc.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	response := gin.H{
		"enabled": true,
		"running": tc.scheduler.IsRunning(),
	}
	if next := tc.scheduler.NextRunTime(); next != nil {
		response["next_run"] = next.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, response)
}

// TriggerMaintenance runs the scheduled maintenance tasks immediately,
// outside the cron schedule.
func (tc *TasksController) TriggerMaintenance(c *gin.Context) {
	if tc.scheduler == nil {
		respondNotFound(c, "maintenance scheduler")
		return
	}

	tc.scheduler.RunNow()
	respondAccepted(c, "maintenance run triggered", nil)
}

// GetTaskStatus reports the queue status of a previously enqueued task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": taskID, "status": taskStatusToString(status)})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}
