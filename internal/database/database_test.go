package database

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoss/shelfmark/internal/entities"
)

func setupTestDatabase(t *testing.T) (*Database, func()) {
	t.Helper()

	dbPath := "./test_database_" + t.Name() + ".db"
	db, err := NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func TestMigrate_BookTagJoinTableCarriesMetadata(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	// Both association sides share the explicit join model, so the
	// migrated table must carry the edge metadata columns.
	migrator := db.DB.Migrator()
	for _, column := range []string{"confidence", "source", "created_at"} {
		assert.True(t, migrator.HasColumn(&entities.BookTag{}, column),
			"book_tags is missing column %q", column)
	}
}

func TestMigrate_BookTagEdgeIsWritable(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	book := entities.Book{Title: "The Dispossessed", FilePath: "/books/dispossessed.epub"}
	require.NoError(t, db.DB.Create(&book).Error)

	tag := entities.Tag{Name: "anarchism", Type: "genre"}
	require.NoError(t, db.DB.Create(&tag).Error)

	edge := entities.BookTag{
		BookID:     book.ID,
		TagID:      tag.ID,
		Confidence: 0.8,
		Source:     entities.TagSourceImport,
	}
	require.NoError(t, db.DB.Create(&edge).Error)

	var stored entities.BookTag
	require.NoError(t, db.DB.Where("book_id = ? AND tag_id = ?", book.ID, tag.ID).First(&stored).Error)
	assert.InDelta(t, 0.8, stored.Confidence, 0.001)
	assert.Equal(t, entities.TagSourceImport, stored.Source)
	assert.False(t, stored.CreatedAt.IsZero())

	var tagged entities.Tag
	require.NoError(t, db.DB.Preload("Books").First(&tagged, tag.ID).Error)
	require.Len(t, tagged.Books, 1)
	assert.Equal(t, "The Dispossessed", tagged.Books[0].Title)
}
