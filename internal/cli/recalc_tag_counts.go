package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/nvoss/shelfmark/internal/config"
	"github.com/nvoss/shelfmark/internal/database"
	"github.com/nvoss/shelfmark/internal/database/tags"
)

// RecalcTagCountsCommand rebuilds denormalized tag usage counts.
type RecalcTagCountsCommand struct {
	DatabasePath string
}

func NewRecalcTagCountsCommand() *RecalcTagCountsCommand {
	return &RecalcTagCountsCommand{}
}

// ParseFlags parses command line flags
func (cmd *RecalcTagCountsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("recalc-tag-counts", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s recalc-tag-counts [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Rebuild tag usage counts from the book-tag associations.\n\n")
		fmt.Fprintf(os.Stderr, "Usage counts are maintained incrementally; this command repairs any\n")
		fmt.Fprintf(os.Stderr, "drift caused by interrupted writes or manual database edits.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s recalc-tag-counts\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s recalc-tag-counts -db ./library.db\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the recalculation command
func (cmd *RecalcTagCountsCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := tags.NewRepository(db.DB)

	fixed, err := repo.RecalculateUsageCounts()
	if err != nil {
		return fmt.Errorf("failed to recalculate usage counts: %w", err)
	}

	fmt.Printf("Corrected usage counts for %d tags\n", fixed)
	return nil
}
