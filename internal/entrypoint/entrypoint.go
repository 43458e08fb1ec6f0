package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvoss/shelfmark/internal/config"
	"github.com/nvoss/shelfmark/internal/database"
	"github.com/nvoss/shelfmark/internal/database/books"
	"github.com/nvoss/shelfmark/internal/database/progress"
	"github.com/nvoss/shelfmark/internal/database/tags"
	http_controllers "github.com/nvoss/shelfmark/internal/http"
	"github.com/nvoss/shelfmark/internal/scheduler"
	"github.com/nvoss/shelfmark/internal/services"
	"github.com/nvoss/shelfmark/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before refusing connections
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the repositories, task queue, scheduler and HTTP router, then
// serves until shutdown.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelfmark v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	tagRepo := tags.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	progressRepo := progress.NewRepository(db.DB)
	importService := services.NewTagImportService(tagRepo)

	// Task queue with its own sqlite database
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var maintenanceScheduler *scheduler.TagMaintenanceScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewCleanupOrphanTagsQueue(tagRepo),
			tasks.NewRecalculateTagCountsQueue(tagRepo),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if cfg.Maintenance.Enabled {
			maintenanceScheduler = scheduler.NewTagMaintenanceScheduler(taskClient, cfg.Maintenance.Schedule)
			if err := maintenanceScheduler.Start(context.Background()); err != nil {
				log.Fatalf("Failed to start maintenance scheduler: %v", err)
			}
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:         db,
		BookStore:        bookRepo,
		TagStore:         tagRepo,
		BookTagStore:     tagRepo,
		MetadataImporter: importService,
		ProgressStore:    progressRepo,
		Version:          version,
	}
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}
	if maintenanceScheduler != nil {
		routerCfg.Scheduler = maintenanceScheduler
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if maintenanceScheduler != nil {
			maintenanceScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
