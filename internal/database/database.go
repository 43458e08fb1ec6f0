// Package database owns the sqlite catalog store: connection setup,
// migrations and the per-domain repositories in its subpackages.
package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nvoss/shelfmark/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("Database initialized at %s", dbPath)

	return &Database{DB: db}, nil
}

// Migrate sets up the join table and runs auto-migration for all catalog
// entities. Exposed so repository tests can prepare schemas without going
// through NewDatabase.
func Migrate(db *gorm.DB) error {
	// The book-tag edge carries confidence and source, so it needs an
	// explicit join model instead of gorm's implicit table. Both sides of
	// the association must be registered, otherwise AutoMigrate builds the
	// implicit two-column table for the unregistered side.
	if err := db.SetupJoinTable(&entities.Book{}, "Tags", &entities.BookTag{}); err != nil {
		return fmt.Errorf("failed to set up book_tags join table: %w", err)
	}
	if err := db.SetupJoinTable(&entities.Tag{}, "Books", &entities.BookTag{}); err != nil {
		return fmt.Errorf("failed to set up book_tags join table: %w", err)
	}

	err := db.AutoMigrate(
		&entities.Author{},
		&entities.Book{},
		&entities.Tag{},
		&entities.TagAlias{},
		&entities.BookTag{},
		&entities.ReadingProgress{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
