package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Client runs background maintenance tasks on a backlite queue backed by
// its own SQLite database, kept separate from the catalog database so queue
// churn never contends with catalog writes.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config

	mu      sync.Mutex
	started bool
}

// queueDBPath derives the queue database path from the catalog path by
// appending a "-tasks" suffix before the extension.
func queueDBPath(catalogPath string) string {
	ext := filepath.Ext(catalogPath)
	return strings.TrimSuffix(catalogPath, ext) + "-tasks" + ext
}

// NewClient opens the queue database and installs the backlite schema.
func NewClient(catalogPath string, cfg Config) (*Client, error) {
	dsn := queueDBPath(catalogPath) + "?_journal=WAL&_timeout=5000&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	blc, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &queueLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}
	if err := blc.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{client: blc, db: db, config: cfg}, nil
}

// Register adds task queues to the client. Call before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start launches the workers. Non-blocking; cancel the context or call Stop
// to shut down.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	log.Printf("Task queue started with %d workers", c.config.Workers)
	c.client.Start(ctx)
}

// Stop waits for in-flight tasks until the context expires. Returns false if
// the deadline hit first.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return true
	}

	log.Println("Stopping task queue...")
	if c.client.Stop(ctx) {
		log.Println("Task queue stopped gracefully")
		return true
	}
	log.Println("Task queue stop timed out, some tasks may still be running")
	return false
}

// Close releases the queue database. Call after Stop.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Add begins an enqueue operation for one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// Status looks up the current status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

type queueLogger struct{}

func (l *queueLogger) Info(message string, params ...any) {
	log.Printf("tasks: "+message, params...)
}

func (l *queueLogger) Error(message string, params ...any) {
	log.Printf("tasks: error: "+message, params...)
}
