// Package progress stores per-book reading positions.
package progress

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/nvoss/shelfmark/internal/entities"
)

// Repository handles reading progress persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetProgress returns the stored progress for a book, or nil when none has
// been recorded yet.
func (r *Repository) GetProgress(bookID uint) (*entities.ReadingProgress, error) {
	var record entities.ReadingProgress
	err := r.db.Where("book_id = ?", bookID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertProgress records the current reading position for a book.
func (r *Repository) UpsertProgress(bookID uint, position string, percentage float64, finished bool) (*entities.ReadingProgress, error) {
	record, err := r.GetProgress(bookID)
	if err != nil {
		return nil, err
	}

	if record == nil {
		record = &entities.ReadingProgress{BookID: bookID}
	}
	record.Position = position
	record.Percentage = percentage
	record.IsFinished = finished
	record.LastReadAt = time.Now()

	if err := r.db.Save(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}
