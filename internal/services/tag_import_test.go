package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoss/shelfmark/internal/entities"
)

type fakeTagWriter struct {
	tags  map[string]*entities.Tag
	edges map[uint][]uint
	types map[string]string
	next  uint
}

func newFakeTagWriter() *fakeTagWriter {
	return &fakeTagWriter{
		tags:  map[string]*entities.Tag{},
		edges: map[uint][]uint{},
		types: map[string]string{},
	}
}

func (f *fakeTagWriter) GetOrCreateTag(name, tagType string) (*entities.Tag, error) {
	if tag, ok := f.tags[name]; ok {
		return tag, nil
	}
	f.next++
	tag := &entities.Tag{ID: f.next, Name: name, Type: tagType}
	f.tags[name] = tag
	f.types[name] = tagType
	return tag, nil
}

func (f *fakeTagWriter) AddTagToBook(bookID, tagID uint, source entities.TagSource, confidence float64) error {
	f.edges[bookID] = append(f.edges[bookID], tagID)
	return nil
}

func TestImportMetadata_MapsFieldsToTypedTags(t *testing.T) {
	writer := newFakeTagWriter()
	service := NewTagImportService(writer)

	result, err := service.ImportMetadata(1, BookMetadata{
		Authors:   []string{"Gene Wolfe"},
		Subjects:  []string{"Science Fiction", "Dying Earth"},
		Series:    "The Book of the New Sun",
		Language:  "en",
		Format:    "EPUB",
		Publisher: "Tor Books",
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"gene_wolfe", "science_fiction", "dying_earth",
		"the_book_of_the_new_sun", "en", "epub", "tor_books",
	}, result.TagsAdded)
	assert.Empty(t, result.TagsSkipped)

	assert.Equal(t, "author", writer.types["gene_wolfe"])
	assert.Equal(t, "genre", writer.types["science_fiction"])
	assert.Equal(t, "series", writer.types["the_book_of_the_new_sun"])
	assert.Equal(t, "language", writer.types["en"])
	assert.Equal(t, "format", writer.types["epub"])
	assert.Equal(t, entities.DefaultTagType, writer.types["tor_books"])

	assert.Len(t, writer.edges[1], 7)
}

func TestImportMetadata_SkipsInvalidCandidates(t *testing.T) {
	writer := newFakeTagWriter()
	service := NewTagImportService(writer)

	result, err := service.ImportMetadata(1, BookMetadata{
		Subjects: []string{"fantasy", "!", "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"fantasy"}, result.TagsAdded)
	assert.ElementsMatch(t, []string{"!", "x"}, result.TagsSkipped)
}

func TestImportMetadata_DeduplicatesNormalizedNames(t *testing.T) {
	writer := newFakeTagWriter()
	service := NewTagImportService(writer)

	result, err := service.ImportMetadata(1, BookMetadata{
		Subjects: []string{"Sci Fi", "sci-fi", "SCI_FI"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sci_fi"}, result.TagsAdded)
	assert.Len(t, writer.edges[1], 1)
}
