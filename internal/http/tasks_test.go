package http

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoss/shelfmark/internal/tasks"
)

// stubScheduler satisfies MaintenanceScheduler for endpoint tests.
type stubScheduler struct {
	running   bool
	next      *time.Time
	triggered int
}

func (s *stubScheduler) RunNow()                 { s.triggered++ }
func (s *stubScheduler) IsRunning() bool         { return s.running }
func (s *stubScheduler) NextRunTime() *time.Time { return s.next }

func setupTasksTest(t *testing.T) (*tasks.Client, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalogPath := "./test_http_tasks_" + t.Name() + ".db"
	client, err := tasks.NewClient(catalogPath, tasks.DefaultConfig())
	require.NoError(t, err)

	cleanup := func() {
		client.Close()
		queuePath := "./test_http_tasks_" + t.Name() + "-tasks.db"
		os.Remove(queuePath)
		os.Remove(queuePath + "-wal")
		os.Remove(queuePath + "-shm")
	}
	return client, cleanup
}

func newTasksRouter(queue TaskQueue, scheduler MaintenanceScheduler) *gin.Engine {
	controller := NewTasksController(queue, scheduler)
	router := gin.New()
	router.GET("/api/tasks/types", controller.ListTaskTypes)
	router.GET("/api/tasks/scheduler", controller.SchedulerStatus)
	router.GET("/api/tasks/:id", controller.GetTaskStatus)
	router.POST("/api/tasks/scheduler/run", controller.TriggerMaintenance)
	router.POST("/api/tasks/:name/run", controller.RunTask)
	return router
}

func TestTasksController_ListTaskTypes(t *testing.T) {
	client, cleanup := setupTasksTest(t)
	defer cleanup()
	router := newTasksRouter(client, nil)

	w := doJSON(router, "GET", "/api/tasks/types", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var types []TaskTypeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	require.Len(t, types, 2)

	names := []string{types[0].Name, types[1].Name}
	assert.ElementsMatch(t, []string{"cleanup-orphan-tags", "recalculate-tag-counts"}, names)
}

func TestTasksController_RunTask(t *testing.T) {
	client, cleanup := setupTasksTest(t)
	defer cleanup()
	router := newTasksRouter(client, nil)

	t.Run("enqueues a known task and reports it as pending", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/tasks/cleanup-orphan-tags/run", nil)
		require.Equal(t, http.StatusAccepted, w.Code)

		var response struct {
			Message string `json:"message"`
			Data    struct {
				Task    string   `json:"task"`
				TaskIDs []string `json:"task_ids"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "task enqueued", response.Message)
		assert.Equal(t, "cleanup-orphan-tags", response.Data.Task)
		require.Len(t, response.Data.TaskIDs, 1)

		// Workers were never started, so the task stays pending.
		status := doJSON(router, "GET", "/api/tasks/"+response.Data.TaskIDs[0], nil)
		require.Equal(t, http.StatusOK, status.Code)

		var statusBody map[string]string
		require.NoError(t, json.Unmarshal(status.Body.Bytes(), &statusBody))
		assert.Equal(t, "pending", statusBody["status"])
	})

	t.Run("rejects an unknown task name", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/tasks/rebuild-index/run", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reports an unknown task id as not found", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/tasks/no-such-task", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTasksController_Scheduler(t *testing.T) {
	client, cleanup := setupTasksTest(t)
	defer cleanup()

	t.Run("reports the active schedule", func(t *testing.T) {
		next := time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC)
		scheduler := &stubScheduler{running: true, next: &next}
		router := newTasksRouter(client, scheduler)

		w := doJSON(router, "GET", "/api/tasks/scheduler", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["enabled"])
		assert.Equal(t, true, body["running"])
		assert.Equal(t, "2026-09-01T03:00:00Z", body["next_run"])
	})

	t.Run("reports disabled when no scheduler is wired", func(t *testing.T) {
		router := newTasksRouter(client, nil)

		w := doJSON(router, "GET", "/api/tasks/scheduler", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["enabled"])
		assert.NotContains(t, body, "next_run")
	})

	t.Run("triggers an immediate maintenance run", func(t *testing.T) {
		scheduler := &stubScheduler{running: true}
		router := newTasksRouter(client, scheduler)

		w := doJSON(router, "POST", "/api/tasks/scheduler/run", nil)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 1, scheduler.triggered)
	})

	t.Run("rejects a trigger when no scheduler is wired", func(t *testing.T) {
		router := newTasksRouter(client, nil)

		w := doJSON(router, "POST", "/api/tasks/scheduler/run", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
