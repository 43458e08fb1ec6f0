package tasks

import "time"

// Config tunes the task queue runtime. Start from DefaultConfig and
// override individual fields from the application configuration.
type Config struct {
	Workers int // concurrent task workers

	MaxRetries  int           // retry attempts before a task is marked failed
	RetryDelay  time.Duration // backoff between retries
	TaskTimeout time.Duration // per-execution deadline

	ReleaseAfter      time.Duration // reclaim tasks from crashed workers after this long
	CleanupInterval   time.Duration // how often completed tasks are swept
	RetentionDuration time.Duration // how long completed tasks are kept for inspection
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
