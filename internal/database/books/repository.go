// Package books provides database operations for the book catalog,
// including the tag expression filter used by search.
package books

import (
	"strings"

	"gorm.io/gorm"

	"github.com/nvoss/shelfmark/internal/entities"
	"github.com/nvoss/shelfmark/internal/tagging"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListOptions narrows a book listing. Expression and Substring are mutually
// exclusive search modes: a booru tag expression or a plain text scan over
// titles, authors and tag names.
type ListOptions struct {
	Expression string
	Substring  string
	Tag        string
	Limit      int
	Offset     int
}

// ListBooks returns a page of books matching the options plus the total
// match count. The resolver is only consulted when Expression is set.
func (r *Repository) ListBooks(opts ListOptions, resolver *tagging.Resolver) ([]entities.Book, int64, error) {
	q := r.db.Model(&entities.Book{})

	if opts.Expression != "" {
		q = r.ApplyTagFilter(q, opts.Expression, resolver)
	} else if opts.Substring != "" {
		q = applySubstringFilter(q, opts.Substring)
	}

	if opts.Tag != "" {
		q = q.Where(
			"books.id IN (SELECT book_id FROM book_tags JOIN tags ON tags.id = book_tags.tag_id WHERE tags.name = ?)",
			tagging.Normalize(opts.Tag),
		)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Preload("Authors").Preload("Tags").Order("books.title")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var books []entities.Book
	err := q.Find(&books).Error
	return books, total, err
}

// applySubstringFilter is the plain text fallback: case-insensitive
// substring match over title, author names and tag names. Used when the
// search input is not a tag expression or when alias loading failed.
func applySubstringFilter(q *gorm.DB, term string) *gorm.DB {
	pattern := "%" + strings.ToLower(term) + "%"
	return q.Where(`
		LOWER(books.title) LIKE ?
		OR books.id IN (
			SELECT ba.book_id FROM book_authors ba
			JOIN authors ON authors.id = ba.author_id
			WHERE LOWER(authors.name) LIKE ?
		)
		OR books.id IN (
			SELECT bt.book_id FROM book_tags bt
			JOIN tags ON tags.id = bt.tag_id
			WHERE tags.name LIKE ?
		)
	`, pattern, pattern, pattern)
}

// CreateBook stores a book together with its authors, creating author
// records as needed.
func (r *Repository) CreateBook(book *entities.Book, authorNames []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, name := range authorNames {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			var author entities.Author
			if err := tx.Where("name = ?", name).FirstOrCreate(&author, entities.Author{Name: name}).Error; err != nil {
				return err
			}
			book.Authors = append(book.Authors, author)
		}
		return tx.Create(book).Error
	})
}

// GetBookByID retrieves a book with its authors and tags.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Authors").Preload("Tags").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// DeleteBook soft-deletes a book and drops its tag associations.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Usage counts must stay in step with the edges being removed.
		err := tx.Exec(`
			UPDATE tags
			SET usage_count = CASE WHEN usage_count > 0 THEN usage_count - 1 ELSE 0 END
			WHERE id IN (SELECT tag_id FROM book_tags WHERE book_id = ?)
		`, id).Error
		if err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Book{}, id).Error
	})
}
