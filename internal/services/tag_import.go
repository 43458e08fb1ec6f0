// Package services contains the higher-level operations composed from the
// repositories, currently the metadata-to-tag import.
package services

import (
	"fmt"

	"github.com/nvoss/shelfmark/internal/entities"
	"github.com/nvoss/shelfmark/internal/tagging"
)

// Field-to-type mapping for imported metadata: each metadata field lands in
// a fixed tag type so imported tags stay queryable with type: prefixes.
const (
	tagTypeAuthor   = "author"
	tagTypeGenre    = "genre"
	tagTypeSeries   = "series"
	tagTypeLanguage = "language"
	tagTypeFormat   = "format"
)

// TagImportService converts book metadata into typed tag associations.
type TagImportService struct {
	tags TagWriter
}

func NewTagImportService(tags TagWriter) *TagImportService {
	return &TagImportService{tags: tags}
}

// ImportMetadata turns the metadata fields of a book into tags and attaches
// them with source=import. Candidates that fail validation (empty, too
// short, all punctuation) are skipped, not errors: metadata in the wild is
// full of garbage entries.
func (s *TagImportService) ImportMetadata(bookID uint, meta BookMetadata) (*ImportResult, error) {
	result := &ImportResult{TagsAdded: []string{}, TagsSkipped: []string{}}

	type candidate struct {
		name    string
		tagType string
	}
	var candidates []candidate

	for _, author := range meta.Authors {
		candidates = append(candidates, candidate{author, tagTypeAuthor})
	}
	for _, subject := range meta.Subjects {
		candidates = append(candidates, candidate{subject, tagTypeGenre})
	}
	if meta.Series != "" {
		candidates = append(candidates, candidate{meta.Series, tagTypeSeries})
	}
	if meta.Language != "" {
		candidates = append(candidates, candidate{meta.Language, tagTypeLanguage})
	}
	if meta.Format != "" {
		candidates = append(candidates, candidate{meta.Format, tagTypeFormat})
	}
	if meta.Publisher != "" {
		candidates = append(candidates, candidate{meta.Publisher, entities.DefaultTagType})
	}

	seen := map[string]bool{}
	for _, c := range candidates {
		if !tagging.IsValid(c.name) {
			result.TagsSkipped = append(result.TagsSkipped, c.name)
			continue
		}

		normalized := tagging.Normalize(c.name)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		tag, err := s.tags.GetOrCreateTag(normalized, c.tagType)
		if err != nil {
			return nil, fmt.Errorf("import tag %q: %w", normalized, err)
		}
		if err := s.tags.AddTagToBook(bookID, tag.ID, entities.TagSourceImport, 1.0); err != nil {
			return nil, fmt.Errorf("attach tag %q: %w", normalized, err)
		}
		result.TagsAdded = append(result.TagsAdded, tag.Name)
	}

	return result, nil
}
