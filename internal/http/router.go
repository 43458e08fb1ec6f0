package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nvoss/shelfmark/internal/database"
)

// RouterConfig contains all dependencies needed to create the HTTP router.
// Optional dependencies may be nil; the corresponding routes are skipped.
type RouterConfig struct {
	// Core dependencies
	Database  *database.Database
	BookStore BookStore
	TagStore  TagStore

	// Tag attachment and metadata import for book routes
	BookTagStore     BookTagStore
	MetadataImporter MetadataImporter

	// Reading progress
	ProgressStore ProgressStore

	// Task queue client and maintenance scheduler (optional)
	TaskQueue TaskQueue
	Scheduler MaintenanceScheduler

	// Application info
	Version string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Book endpoints
	if cfg.BookStore != nil {
		booksController := NewBooksController(cfg.BookStore, cfg.BookTagStore, cfg.MetadataImporter)
		router.GET("/api/books", booksController.List)
		router.POST("/api/books", booksController.Create)
		router.GET("/api/books/:id", booksController.Get)
		router.DELETE("/api/books/:id", booksController.Delete)
		router.POST("/api/books/:id/tags", booksController.AddTag)
		router.DELETE("/api/books/:id/tags/:tagId", booksController.RemoveTag)
	}

	// Tag management endpoints
	if cfg.TagStore != nil {
		tagsController := NewTagsController(cfg.TagStore)
		router.GET("/api/tags/autocomplete", tagsController.Autocomplete)
		router.GET("/api/tags/popular", tagsController.Popular)
		router.GET("/api/tags/types", tagsController.Types)
		router.GET("/api/tags/:id", tagsController.Detail)
		router.POST("/api/tags", tagsController.Create)
		router.PATCH("/api/tags/:id", tagsController.Update)
		router.DELETE("/api/tags/:id", tagsController.Delete)
		router.GET("/api/tags/:id/aliases", tagsController.ListAliases)
		router.POST("/api/tags/:id/aliases", tagsController.CreateAlias)
		router.DELETE("/api/tags/aliases/:aliasId", tagsController.DeleteAlias)
		router.POST("/api/tags/bulk", tagsController.BulkTag)
		router.POST("/api/tags/copy/:sourceId/:targetId", tagsController.CopyTags)
	}

	// Reading progress endpoints
	if cfg.ProgressStore != nil {
		progressController := NewProgressController(cfg.ProgressStore)
		router.GET("/api/books/:id/progress", progressController.Get)
		router.PUT("/api/books/:id/progress", progressController.Put)
	}

	// Maintenance task endpoints
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue, cfg.Scheduler)
		router.GET("/api/tasks/types", tasksController.ListTaskTypes)
		router.GET("/api/tasks/scheduler", tasksController.SchedulerStatus)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/api/tasks/scheduler/run", tasksController.TriggerMaintenance)
		router.POST("/api/tasks/:name/run", tasksController.RunTask)
	}

	return router
}
