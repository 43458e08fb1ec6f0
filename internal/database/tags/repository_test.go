package tags

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nvoss/shelfmark/internal/database"
	"github.com/nvoss/shelfmark/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, func()) {
	t.Helper()
	dbPath := "./test_tags_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return NewRepository(db), db, cleanup
}

func createTestBook(t *testing.T, db *gorm.DB, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, FilePath: "/library/" + title + ".epub"}
	require.NoError(t, db.Create(book).Error)
	return book
}

func TestRepository_CreateTag_NormalizesName(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	tag, err := repo.CreateTag("Science Fiction", "genre", "books about the future")

	require.NoError(t, err)
	assert.Equal(t, "science_fiction", tag.Name)
	assert.Equal(t, "genre", tag.Type)
	assert.Equal(t, 0, tag.UsageCount)
}

func TestRepository_CreateTag_DefaultsType(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	tag, err := repo.CreateTag("fantasy", "", "")

	require.NoError(t, err)
	assert.Equal(t, entities.DefaultTagType, tag.Type)
}

func TestRepository_CreateTag_RejectsInvalidName(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.CreateTag("!", "genre", "")

	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRepository_CreateTag_RejectsDuplicate(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.CreateTag("sci-fi", "genre", "")
	require.NoError(t, err)

	// Different raw spelling, same normalized name.
	_, err = repo.CreateTag("Sci Fi", "genre", "")
	assert.ErrorIs(t, err, ErrTagExists)
}

func TestRepository_GetOrCreateTag(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.GetOrCreateTag("Epic Fantasy", "genre")
	require.NoError(t, err)

	found, err := repo.GetOrCreateTag("epic_fantasy", "theme")
	require.NoError(t, err)

	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "genre", found.Type, "existing tag keeps its original type")
}

func TestRepository_Aliases(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	tag, err := repo.CreateTag("science_fiction", "genre", "")
	require.NoError(t, err)

	t.Run("creates normalized alias", func(t *testing.T) {
		alias, err := repo.CreateAlias(tag.ID, "Sci-Fi")
		require.NoError(t, err)
		assert.Equal(t, "sci_fi", alias.Alias)
		assert.Equal(t, tag.ID, alias.CanonicalTagID)
	})

	t.Run("rejects duplicate alias", func(t *testing.T) {
		_, err := repo.CreateAlias(tag.ID, "sci fi")
		assert.ErrorIs(t, err, ErrAliasExists)
	})

	t.Run("rejects self alias", func(t *testing.T) {
		_, err := repo.CreateAlias(tag.ID, "Science Fiction")
		assert.ErrorIs(t, err, ErrSelfAlias)
	})

	t.Run("alias map follows alias to canonical name", func(t *testing.T) {
		aliases, err := repo.AliasMap()
		require.NoError(t, err)
		assert.Equal(t, "science_fiction", aliases["sci_fi"])
	})

	t.Run("delete alias", func(t *testing.T) {
		aliases, err := repo.AliasesForTag(tag.ID)
		require.NoError(t, err)
		require.Len(t, aliases, 1)

		require.NoError(t, repo.DeleteAlias(aliases[0].ID))

		assert.ErrorIs(t, repo.DeleteAlias(aliases[0].ID), gorm.ErrRecordNotFound)
	})
}

func TestRepository_AddTagToBook_IsIdempotent(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db, "Hyperion")
	tag, err := repo.CreateTag("space_opera", "genre", "")
	require.NoError(t, err)

	require.NoError(t, repo.AddTagToBook(book.ID, tag.ID, entities.TagSourceManual, 1.0))
	require.NoError(t, repo.AddTagToBook(book.ID, tag.ID, entities.TagSourceManual, 1.0))

	var edges int64
	require.NoError(t, db.Model(&entities.BookTag{}).Where("book_id = ?", book.ID).Count(&edges).Error)
	assert.EqualValues(t, 1, edges)

	updated, err := repo.GetTagByID(tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UsageCount, "double add must not double count")
}

func TestRepository_AddTagToBook_RecordsEdgeMetadata(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune")
	tag, err := repo.CreateTag("desert", "setting", "")
	require.NoError(t, err)

	require.NoError(t, repo.AddTagToBook(book.ID, tag.ID, entities.TagSourceAuto, 0.72))

	var edge entities.BookTag
	require.NoError(t, db.Where("book_id = ? AND tag_id = ?", book.ID, tag.ID).First(&edge).Error)
	assert.Equal(t, entities.TagSourceAuto, edge.Source)
	assert.InDelta(t, 0.72, edge.Confidence, 1e-9)
}

func TestRepository_RemoveTagFromBook(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db, "Hyperion")
	tag, err := repo.CreateTag("space_opera", "genre", "")
	require.NoError(t, err)
	require.NoError(t, repo.AddTagToBook(book.ID, tag.ID, entities.TagSourceManual, 1.0))

	require.NoError(t, repo.RemoveTagFromBook(book.ID, tag.ID))

	updated, err := repo.GetTagByID(tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.UsageCount)

	// Removing an absent edge neither errors nor underflows the count.
	require.NoError(t, repo.RemoveTagFromBook(book.ID, tag.ID))
	updated, err = repo.GetTagByID(tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.UsageCount)
}

func TestRepository_BulkTag(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	first := createTestBook(t, db, "A Wizard of Earthsea")
	second := createTestBook(t, db, "The Tombs of Atuan")

	result, err := repo.BulkTag(
		[]uint{first.ID, second.ID},
		[]string{"Fantasy", "coming-of-age"},
		true,
		entities.TagSourceImport,
	)
	require.NoError(t, err)

	assert.Equal(t, 2, result.AffectedBooks)
	assert.ElementsMatch(t, []string{"fantasy", "coming_of_age"}, result.TagsModified)
	assert.Empty(t, result.Errors)

	tag, err := repo.GetTagByName("fantasy")
	require.NoError(t, err)
	assert.Equal(t, 2, tag.UsageCount)

	t.Run("remove reports unknown tags instead of failing", func(t *testing.T) {
		result, err := repo.BulkTag([]uint{first.ID}, []string{"fantasy", "nonexistent"}, false, entities.TagSourceManual)
		require.NoError(t, err)
		assert.Len(t, result.Errors, 1)

		tag, err := repo.GetTagByName("fantasy")
		require.NoError(t, err)
		assert.Equal(t, 1, tag.UsageCount)
	})
}

func TestRepository_CopyTags(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	source := createTestBook(t, db, "Leviathan Wakes")
	target := createTestBook(t, db, "Caliban's War")

	tag, err := repo.CreateTag("space_opera", "genre", "")
	require.NoError(t, err)
	other, err := repo.CreateTag("first_contact", "theme", "")
	require.NoError(t, err)

	require.NoError(t, repo.AddTagToBook(source.ID, tag.ID, entities.TagSourceManual, 1.0))
	require.NoError(t, repo.AddTagToBook(source.ID, other.ID, entities.TagSourceManual, 1.0))
	require.NoError(t, repo.AddTagToBook(target.ID, tag.ID, entities.TagSourceManual, 1.0))

	added, err := repo.CopyTags(source.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, added, "only the missing tag is copied")
}

func TestRepository_DeleteTag_RemovesAliasesAndEdges(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db, "Neuromancer")
	tag, err := repo.CreateTag("cyberpunk", "genre", "")
	require.NoError(t, err)
	_, err = repo.CreateAlias(tag.ID, "cyber-punk")
	require.NoError(t, err)
	require.NoError(t, repo.AddTagToBook(book.ID, tag.ID, entities.TagSourceManual, 1.0))

	require.NoError(t, repo.DeleteTag(tag.ID))

	var edges, aliases int64
	require.NoError(t, db.Model(&entities.BookTag{}).Count(&edges).Error)
	require.NoError(t, db.Model(&entities.TagAlias{}).Count(&aliases).Error)
	assert.Zero(t, edges)
	assert.Zero(t, aliases)
}

func TestRepository_DeleteOrphanTags(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db, "Hyperion")
	used, err := repo.CreateTag("space_opera", "genre", "")
	require.NoError(t, err)
	orphan, err := repo.CreateTag("unused", "meta", "")
	require.NoError(t, err)
	_, err = repo.CreateAlias(orphan.ID, "never-used")
	require.NoError(t, err)

	require.NoError(t, repo.AddTagToBook(book.ID, used.ID, entities.TagSourceManual, 1.0))

	deleted, err := repo.DeleteOrphanTags()
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = repo.GetTagByName("unused")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	aliases, err := repo.AliasMap()
	require.NoError(t, err)
	assert.Empty(t, aliases, "orphan aliases are swept with their tags")

	_, err = repo.GetTagByName("space_opera")
	assert.NoError(t, err)
}

func TestRepository_RecalculateUsageCounts(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db, "Hyperion")
	tag, err := repo.CreateTag("space_opera", "genre", "")
	require.NoError(t, err)
	require.NoError(t, repo.AddTagToBook(book.ID, tag.ID, entities.TagSourceManual, 1.0))

	// Corrupt the denormalized counter.
	require.NoError(t, db.Model(&entities.Tag{}).Where("id = ?", tag.ID).
		UpdateColumn("usage_count", 42).Error)

	corrected, err := repo.RecalculateUsageCounts()
	require.NoError(t, err)
	assert.EqualValues(t, 1, corrected)

	updated, err := repo.GetTagByID(tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UsageCount)

	corrected, err = repo.RecalculateUsageCounts()
	require.NoError(t, err)
	assert.Zero(t, corrected, "second pass has nothing to fix")
}

func TestRepository_AutocompleteAndPopular(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db, "Hyperion")
	scifi, err := repo.CreateTag("science_fiction", "genre", "")
	require.NoError(t, err)
	_, err = repo.CreateTag("science_history", "meta", "")
	require.NoError(t, err)
	require.NoError(t, repo.AddTagToBook(book.ID, scifi.ID, entities.TagSourceManual, 1.0))

	t.Run("autocomplete matches substrings and respects type", func(t *testing.T) {
		matches, err := repo.Autocomplete("science", "", 10)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
		assert.Equal(t, "science_fiction", matches[0].Name, "most used first")

		matches, err = repo.Autocomplete("science", "genre", 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "science_fiction", matches[0].Name)
	})

	t.Run("popular excludes unused tags", func(t *testing.T) {
		popular, err := repo.PopularTags("", 10)
		require.NoError(t, err)
		require.Len(t, popular, 1)
		assert.Equal(t, "science_fiction", popular[0].Name)
	})

	t.Run("types are distinct", func(t *testing.T) {
		types, err := repo.TagTypes()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"genre", "meta"}, types)
	})
}
