package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nvoss/shelfmark/internal/database/books"
	"github.com/nvoss/shelfmark/internal/entities"
	"github.com/nvoss/shelfmark/internal/services"
	"github.com/nvoss/shelfmark/internal/tagging"
)

// BookStore defines the database operations the book endpoints need.
type BookStore interface {
	ListBooks(opts books.ListOptions, resolver *tagging.Resolver) ([]entities.Book, int64, error)
	CreateBook(book *entities.Book, authorNames []string) error
	GetBookByID(id uint) (*entities.Book, error)
	DeleteBook(id uint) error
}

// BookTagStore is the slice of tag operations used when tagging a single
// book.
type BookTagStore interface {
	tagging.AliasSource
	GetOrCreateTag(name, tagType string) (*entities.Tag, error)
	AddTagToBook(bookID, tagID uint, source entities.TagSource, confidence float64) error
	RemoveTagFromBook(bookID, tagID uint) error
}

// MetadataImporter converts extracted book metadata into tag associations.
type MetadataImporter interface {
	ImportMetadata(bookID uint, meta services.BookMetadata) (*services.ImportResult, error)
}

type BooksController struct {
	store    BookStore
	tags     BookTagStore
	importer MetadataImporter
}

func NewBooksController(store BookStore, tags BookTagStore, importer MetadataImporter) *BooksController {
	return &BooksController{store: store, tags: tags, importer: importer}
}

// looksLikeTagExpression decides whether a search input should go through
// the tag expression parser or the plain substring scan. Operators or
// type:name syntax mean an expression; so does any single bareword.
func looksLikeTagExpression(search string) bool {
	if strings.Contains(search, " OR ") ||
		strings.Contains(search, "-") ||
		strings.Contains(search, ":") {
		return true
	}
	return !strings.Contains(search, " ")
}

// List returns a page of books, filtered by a booru-style tag expression
// (search=), a plain text search, or an exact tag (tag=).
// GET /api/books
func (bc *BooksController) List(c *gin.Context) {
	limit, offset := parsePagination(c, 50, 200)
	opts := books.ListOptions{
		Tag:    c.Query("tag"),
		Limit:  limit,
		Offset: offset,
	}

	var resolver *tagging.Resolver
	if search := c.Query("search"); search != "" {
		if looksLikeTagExpression(search) {
			var err error
			resolver, err = tagging.NewResolver(bc.tags)
			if err != nil {
				// Alias table unavailable: degrade to substring search
				// rather than failing the request.
				log.Printf("tag alias load failed, falling back to substring search: %v", err)
				opts.Substring = search
			} else {
				opts.Expression = search
			}
		} else {
			opts.Substring = search
		}
	}

	list, total, err := bc.store.ListBooks(opts, resolver)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    list,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(list)) < total,
	})
}

// Create stores a new book and imports its metadata as tags.
// POST /api/books
func (bc *BooksController) Create(c *gin.Context) {
	var req struct {
		Title    string                `json:"title" binding:"required"`
		FilePath string                `json:"file_path" binding:"required"`
		Format   string                `json:"format"`
		Series   string                `json:"series"`
		Language string                `json:"language"`
		Metadata services.BookMetadata `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and file_path are required")
		return
	}

	book := &entities.Book{
		Title:    req.Title,
		FilePath: req.FilePath,
		Format:   req.Format,
		Series:   req.Series,
		Language: req.Language,
	}
	if err := bc.store.CreateBook(book, req.Metadata.Authors); err != nil {
		respondInternalError(c, err, "create book")
		return
	}

	importResult, err := bc.importer.ImportMetadata(book.ID, req.Metadata)
	if err != nil {
		respondInternalError(c, err, "import metadata tags")
		return
	}

	created, err := bc.store.GetBookByID(book.ID)
	if err != nil {
		respondInternalError(c, err, "reload created book")
		return
	}

	respondCreated(c, gin.H{"book": created, "import": importResult})
}

// Get returns one book with authors and tags.
// GET /api/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Delete removes a book and its tag associations.
// DELETE /api/books/:id
func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := bc.store.GetBookByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	if err := bc.store.DeleteBook(id); err != nil {
		respondInternalError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}

// AddTag attaches a tag to a book by ID or by name (creating it if needed).
// POST /api/books/:id/tags
func (bc *BooksController) AddTag(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		TagID      uint    `json:"tag_id"`
		TagName    string  `json:"tag_name"`
		TagType    string  `json:"tag_type"`
		Source     string  `json:"source"`
		Confidence float64 `json:"confidence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	tagID := req.TagID
	if tagID == 0 {
		if req.TagName == "" {
			respondBadRequest(c, "tag_id or tag_name required")
			return
		}
		tag, err := bc.tags.GetOrCreateTag(req.TagName, req.TagType)
		if err != nil {
			respondTagError(c, err, "get or create tag")
			return
		}
		tagID = tag.ID
	}

	source := entities.TagSource(req.Source)
	if source == "" {
		source = entities.TagSourceManual
	}
	confidence := req.Confidence
	if confidence == 0 {
		confidence = 1.0
	}

	if err := bc.tags.AddTagToBook(bookID, tagID, source, confidence); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book or tag")
			return
		}
		respondInternalError(c, err, "add tag to book")
		return
	}

	book, err := bc.store.GetBookByID(bookID)
	if err != nil {
		respondSuccess(c, "tag added")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tag added", "tags": book.Tags})
}

// RemoveTag detaches a tag from a book.
// DELETE /api/books/:id/tags/:tagId
func (bc *BooksController) RemoveTag(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	tagID, ok := parseIDParam(c, "tagId")
	if !ok {
		return
	}

	if err := bc.tags.RemoveTagFromBook(bookID, tagID); err != nil {
		respondInternalError(c, err, "remove tag from book")
		return
	}
	respondSuccess(c, "tag removed")
}
