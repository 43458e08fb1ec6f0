// Package tags provides database operations for the booru-style tag system:
// tag CRUD, alias management, book associations and the maintenance
// operations that keep usage counts honest.
//
// All tag names cross this boundary in normalized form; the repository
// normalizes on every write so the storage invariant holds no matter what
// the caller passes in.
package tags

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nvoss/shelfmark/internal/entities"
	"github.com/nvoss/shelfmark/internal/tagging"
)

var (
	// ErrInvalidName is returned for names that normalize to something
	// too short or empty to be a usable tag.
	ErrInvalidName = errors.New("invalid tag name")

	// ErrTagExists is returned when creating a tag whose normalized name
	// is already taken.
	ErrTagExists = errors.New("tag already exists")

	// ErrAliasExists is returned when an alias string is already taken,
	// by any tag.
	ErrAliasExists = errors.New("alias already exists")

	// ErrSelfAlias is returned when an alias would normalize to the
	// canonical tag's own name.
	ErrSelfAlias = errors.New("alias matches the tag's own name")
)

// Repository handles all tag database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tags repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTag creates a tag with a normalized name. An empty tagType falls
// back to the default category.
func (r *Repository) CreateTag(name, tagType, description string) (*entities.Tag, error) {
	if !tagging.IsValid(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	normalized := tagging.Normalize(name)

	var existing entities.Tag
	err := r.db.Where("name = ?", normalized).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: %q", ErrTagExists, normalized)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if tagType == "" {
		tagType = entities.DefaultTagType
	}

	tag := &entities.Tag{
		Name:        normalized,
		Type:        tagType,
		Description: description,
	}
	if err := r.db.Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// GetOrCreateTag retrieves a tag by normalized name, creating it with the
// given type when absent. Lookup is by name alone since names are unique
// across types.
func (r *Repository) GetOrCreateTag(name, tagType string) (*entities.Tag, error) {
	if !tagging.IsValid(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	normalized := tagging.Normalize(name)

	var tag entities.Tag
	err := r.db.Where("name = ?", normalized).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.CreateTag(normalized, tagType, "")
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetTagByID retrieves a tag by ID.
func (r *Repository) GetTagByID(id uint) (*entities.Tag, error) {
	var tag entities.Tag
	if err := r.db.First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetTagByName retrieves a tag by (normalized) name.
func (r *Repository) GetTagByName(name string) (*entities.Tag, error) {
	var tag entities.Tag
	if err := r.db.Where("name = ?", tagging.Normalize(name)).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// Autocomplete returns tags whose name contains the query, optionally
// restricted to one type, most used first.
func (r *Repository) Autocomplete(query, tagType string, limit int) ([]entities.Tag, error) {
	q := r.db.Where("name LIKE ?", "%"+tagging.Normalize(query)+"%")
	if tagType != "" {
		q = q.Where("type = ?", tagType)
	}

	var tags []entities.Tag
	err := q.Order("usage_count DESC").Order("name").Limit(limit).Find(&tags).Error
	return tags, err
}

// PopularTags returns the most used tags, optionally restricted to one type.
func (r *Repository) PopularTags(tagType string, limit int) ([]entities.Tag, error) {
	q := r.db.Where("usage_count > 0")
	if tagType != "" {
		q = q.Where("type = ?", tagType)
	}

	var tags []entities.Tag
	err := q.Order("usage_count DESC").Limit(limit).Find(&tags).Error
	return tags, err
}

// TagTypes lists the distinct tag types in use.
func (r *Repository) TagTypes() ([]string, error) {
	var types []string
	err := r.db.Model(&entities.Tag{}).Distinct().Order("type").Pluck("type", &types).Error
	return types, err
}

// RelatedTags returns tags that co-occur on books carrying the given tag,
// most frequent first.
func (r *Repository) RelatedTags(tagID uint, limit int) ([]entities.Tag, error) {
	var tags []entities.Tag
	err := r.db.Raw(`
		SELECT tags.* FROM tags
		JOIN book_tags bt ON bt.tag_id = tags.id
		WHERE bt.book_id IN (SELECT book_id FROM book_tags WHERE tag_id = ?)
		AND tags.id != ?
		GROUP BY tags.id
		ORDER BY COUNT(*) DESC
		LIMIT ?
	`, tagID, tagID, limit).Scan(&tags).Error
	return tags, err
}

// UpdateTag changes a tag's type and/or description. Empty arguments leave
// the corresponding field untouched.
func (r *Repository) UpdateTag(id uint, tagType, description string) (*entities.Tag, error) {
	tag, err := r.GetTagByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if tagType != "" {
		updates["type"] = tagType
	}
	if description != "" {
		updates["description"] = description
	}
	if len(updates) == 0 {
		return tag, nil
	}

	if err := r.db.Model(tag).Updates(updates).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// DeleteTag removes a tag together with its aliases and book associations.
func (r *Repository) DeleteTag(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&entities.BookTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("canonical_tag_id = ?", id).Delete(&entities.TagAlias{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Tag{}, id).Error
	})
}

// --- Aliases ---

// AliasMap implements tagging.AliasSource: every persisted alias mapped to
// its canonical tag's current name.
func (r *Repository) AliasMap() (map[string]string, error) {
	var rows []struct {
		Alias string
		Name  string
	}
	err := r.db.Table("tag_aliases").
		Select("tag_aliases.alias AS alias, tags.name AS name").
		Joins("JOIN tags ON tags.id = tag_aliases.canonical_tag_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	aliases := make(map[string]string, len(rows))
	for _, row := range rows {
		aliases[tagging.Normalize(row.Alias)] = row.Name
	}
	return aliases, nil
}

// AliasesForTag lists the aliases owned by a tag.
func (r *Repository) AliasesForTag(tagID uint) ([]entities.TagAlias, error) {
	var aliases []entities.TagAlias
	err := r.db.Where("canonical_tag_id = ?", tagID).Order("alias").Find(&aliases).Error
	return aliases, err
}

// CreateAlias adds a normalized alias pointing at a tag. Aliases are unique
// across the whole table and may not shadow the tag's own name.
func (r *Repository) CreateAlias(tagID uint, alias string) (*entities.TagAlias, error) {
	tag, err := r.GetTagByID(tagID)
	if err != nil {
		return nil, err
	}

	normalized := tagging.Normalize(alias)
	if !tagging.IsValid(normalized) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, alias)
	}
	if normalized == tag.Name {
		return nil, fmt.Errorf("%w: %q", ErrSelfAlias, normalized)
	}

	var existing entities.TagAlias
	err = r.db.Where("alias = ?", normalized).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: %q", ErrAliasExists, normalized)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record := &entities.TagAlias{Alias: normalized, CanonicalTagID: tagID}
	if err := r.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteAlias removes an alias by ID.
func (r *Repository) DeleteAlias(id uint) error {
	result := r.db.Delete(&entities.TagAlias{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// --- Book associations ---

// AddTagToBook associates a tag with a book, recording where the edge came
// from and how certain it is. Adding an existing association is a no-op.
func (r *Repository) AddTagToBook(bookID, tagID uint, source entities.TagSource, confidence float64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			return err
		}
		var tag entities.Tag
		if err := tx.First(&tag, tagID).Error; err != nil {
			return err
		}

		var existing entities.BookTag
		err := tx.Where("book_id = ? AND tag_id = ?", bookID, tagID).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		edge := entities.BookTag{
			BookID:     bookID,
			TagID:      tagID,
			Source:     source,
			Confidence: confidence,
		}
		if err := tx.Create(&edge).Error; err != nil {
			return err
		}

		return tx.Model(&tag).UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
	})
}

// RemoveTagFromBook drops the association and decrements the tag's usage
// count, never below zero.
func (r *Repository) RemoveTagFromBook(bookID, tagID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("book_id = ? AND tag_id = ?", bookID, tagID).Delete(&entities.BookTag{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		return tx.Model(&entities.Tag{}).Where("id = ? AND usage_count > 0", tagID).
			UpdateColumn("usage_count", gorm.Expr("usage_count - 1")).Error
	})
}

// BulkTagResult reports the outcome of a bulk tagging operation.
type BulkTagResult struct {
	AffectedBooks int      `json:"affected_books"`
	TagsModified  []string `json:"tags_modified"`
	Errors        []string `json:"errors,omitempty"`
}

// BulkTag adds or removes a set of tags across a set of books. Missing tags
// are created on add and reported on remove; usage counts are reconciled
// within the same transaction as the edge mutations.
func (r *Repository) BulkTag(bookIDs []uint, tagNames []string, add bool, source entities.TagSource) (*BulkTagResult, error) {
	result := &BulkTagResult{TagsModified: []string{}, Errors: []string{}}

	var books []entities.Book
	if err := r.db.Where("id IN ?", bookIDs).Find(&books).Error; err != nil {
		return nil, err
	}
	if len(books) != len(bookIDs) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("some books not found: expected %d, found %d", len(bookIDs), len(books)))
	}
	result.AffectedBooks = len(books)

	var tags []entities.Tag
	for _, name := range tagNames {
		normalized := tagging.Normalize(name)

		tag, err := r.GetTagByName(normalized)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if !add {
				result.Errors = append(result.Errors,
					fmt.Sprintf("tag %q not found, skipping removal", normalized))
				continue
			}
			tag, err = r.CreateTag(normalized, "", "")
		}
		if err != nil {
			return nil, err
		}

		tags = append(tags, *tag)
		result.TagsModified = append(result.TagsModified, tag.Name)
	}

	for _, book := range books {
		for _, tag := range tags {
			var err error
			if add {
				err = r.AddTagToBook(book.ID, tag.ID, source, 1.0)
			} else {
				err = r.RemoveTagFromBook(book.ID, tag.ID)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// CopyTags copies every tag from one book to another, skipping edges the
// target already has. Returns the number of tags added.
func (r *Repository) CopyTags(sourceBookID, targetBookID uint) (int, error) {
	var source entities.Book
	if err := r.db.Preload("Tags").First(&source, sourceBookID).Error; err != nil {
		return 0, err
	}
	var target entities.Book
	if err := r.db.First(&target, targetBookID).Error; err != nil {
		return 0, err
	}

	added := 0
	for _, tag := range source.Tags {
		var existing entities.BookTag
		err := r.db.Where("book_id = ? AND tag_id = ?", targetBookID, tag.ID).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return added, err
		}

		if err := r.AddTagToBook(targetBookID, tag.ID, entities.TagSourceManual, 1.0); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// --- Maintenance ---

// CountOrphanTags returns how many tags have no book associations.
func (r *Repository) CountOrphanTags() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Tag{}).
		Where("id NOT IN (SELECT tag_id FROM book_tags)").
		Count(&count).Error
	return count, err
}

// DeleteOrphanTags removes all tags with no book associations.
func (r *Repository) DeleteOrphanTags() (int64, error) {
	result := r.db.Exec(`
		DELETE FROM tags
		WHERE id NOT IN (SELECT tag_id FROM book_tags)
	`)
	if result.Error != nil {
		return 0, result.Error
	}

	// Aliases of deleted tags go with them.
	if err := r.db.Exec(`
		DELETE FROM tag_aliases
		WHERE canonical_tag_id NOT IN (SELECT id FROM tags)
	`).Error; err != nil {
		return result.RowsAffected, err
	}

	return result.RowsAffected, nil
}

// RecalculateUsageCounts rewrites every stale usage_count from the live
// book_tags rows and returns how many tags were corrected.
func (r *Repository) RecalculateUsageCounts() (int64, error) {
	result := r.db.Exec(`
		UPDATE tags
		SET usage_count = (
			SELECT COUNT(*) FROM book_tags WHERE book_tags.tag_id = tags.id
		)
		WHERE usage_count != (
			SELECT COUNT(*) FROM book_tags WHERE book_tags.tag_id = tags.id
		)
	`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
