package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/nvoss/shelfmark/internal/config"
	"github.com/nvoss/shelfmark/internal/database"
	"github.com/nvoss/shelfmark/internal/database/tags"
)

// CleanupTagsCommand deletes tags that no book references anymore.
type CleanupTagsCommand struct {
	DatabasePath string
	DryRun       bool
}

func NewCleanupTagsCommand() *CleanupTagsCommand {
	return &CleanupTagsCommand{}
}

// ParseFlags parses command line flags
func (cmd *CleanupTagsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("cleanup-tags", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show how many tags would be deleted without making changes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cleanup-tags [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete orphan tags (tags no longer attached to any book) and their aliases.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s cleanup-tags\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s cleanup-tags -db ./library.db -dry-run\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the cleanup command
func (cmd *CleanupTagsCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := tags.NewRepository(db.DB)

	if cmd.DryRun {
		count, err := repo.CountOrphanTags()
		if err != nil {
			return fmt.Errorf("failed to count orphan tags: %w", err)
		}
		fmt.Printf("Would delete %d orphan tags\n", count)
		return nil
	}

	deleted, err := repo.DeleteOrphanTags()
	if err != nil {
		return fmt.Errorf("failed to delete orphan tags: %w", err)
	}

	fmt.Printf("Deleted %d orphan tags\n", deleted)
	return nil
}
