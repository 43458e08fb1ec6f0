package services

import "github.com/nvoss/shelfmark/internal/entities"

// TagWriter is the slice of the tags repository the import service needs.
type TagWriter interface {
	GetOrCreateTag(name, tagType string) (*entities.Tag, error)
	AddTagToBook(bookID, tagID uint, source entities.TagSource, confidence float64) error
}

// BookMetadata carries the fields extracted from an ebook file that can be
// converted into typed tags. Extraction itself (EPUB/MOBI parsing) happens
// upstream; this service only maps fields to tags.
type BookMetadata struct {
	Authors   []string `json:"authors,omitempty"`
	Subjects  []string `json:"subjects,omitempty"`
	Series    string   `json:"series,omitempty"`
	Language  string   `json:"language,omitempty"`
	Format    string   `json:"format,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
}

// ImportResult reports the outcome of a metadata tag import.
type ImportResult struct {
	TagsAdded   []string `json:"tags_added"`
	TagsSkipped []string `json:"tags_skipped,omitempty"`
}
