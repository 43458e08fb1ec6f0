package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nvoss/shelfmark/internal/database/tags"
	"github.com/nvoss/shelfmark/internal/entities"
	"github.com/nvoss/shelfmark/internal/tagging"
)

// TagStore defines the database operations the tag endpoints need.
// Implemented by the tags repository.
type TagStore interface {
	CreateTag(name, tagType, description string) (*entities.Tag, error)
	UpdateTag(id uint, tagType, description string) (*entities.Tag, error)
	DeleteTag(id uint) error
	GetTagByID(id uint) (*entities.Tag, error)
	Autocomplete(query, tagType string, limit int) ([]entities.Tag, error)
	PopularTags(tagType string, limit int) ([]entities.Tag, error)
	TagTypes() ([]string, error)
	RelatedTags(tagID uint, limit int) ([]entities.Tag, error)
	AliasesForTag(tagID uint) ([]entities.TagAlias, error)
	CreateAlias(tagID uint, alias string) (*entities.TagAlias, error)
	DeleteAlias(id uint) error
	BulkTag(bookIDs []uint, tagNames []string, add bool, source entities.TagSource) (*tags.BulkTagResult, error)
	CopyTags(sourceBookID, targetBookID uint) (int, error)
}

type TagsController struct {
	store TagStore
}

func NewTagsController(store TagStore) *TagsController {
	return &TagsController{store: store}
}

// tagView is the API shape of a tag: the stored entity plus the derived
// display name.
type tagView struct {
	entities.Tag
	DisplayName string `json:"display_name"`
}

func newTagView(tag entities.Tag) tagView {
	return tagView{Tag: tag, DisplayName: tagging.Denormalize(tag.Name, "")}
}

func newTagViews(list []entities.Tag) []tagView {
	views := make([]tagView, 0, len(list))
	for _, tag := range list {
		views = append(views, newTagView(tag))
	}
	return views
}

// respondTagError maps repository errors onto HTTP statuses.
func respondTagError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(c, "tag")
	case errors.Is(err, tags.ErrInvalidName),
		errors.Is(err, tags.ErrTagExists),
		errors.Is(err, tags.ErrAliasExists),
		errors.Is(err, tags.ErrSelfAlias):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, context)
	}
}

// Autocomplete suggests tags for a partial query.
// GET /api/tags/autocomplete?q=...&type=...&limit=...
func (tc *TagsController) Autocomplete(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		respondBadRequest(c, "q is required")
		return
	}
	limit, _ := parsePagination(c, 20, 100)

	matches, err := tc.store.Autocomplete(q, c.Query("type"), limit)
	if err != nil {
		respondInternalError(c, err, "tag autocomplete")
		return
	}
	c.JSON(http.StatusOK, newTagViews(matches))
}

// Popular returns the most used tags.
// GET /api/tags/popular?type=...&limit=...
func (tc *TagsController) Popular(c *gin.Context) {
	limit, _ := parsePagination(c, 50, 200)

	popular, err := tc.store.PopularTags(c.Query("type"), limit)
	if err != nil {
		respondInternalError(c, err, "popular tags")
		return
	}
	c.JSON(http.StatusOK, newTagViews(popular))
}

// Types lists the distinct tag types in use.
// GET /api/tags/types
func (tc *TagsController) Types(c *gin.Context) {
	types, err := tc.store.TagTypes()
	if err != nil {
		respondInternalError(c, err, "tag types")
		return
	}
	c.JSON(http.StatusOK, types)
}

// Detail returns a tag with its aliases and frequently co-occurring tags.
// GET /api/tags/:id
func (tc *TagsController) Detail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tag, err := tc.store.GetTagByID(id)
	if err != nil {
		respondTagError(c, err, "get tag")
		return
	}

	aliases, err := tc.store.AliasesForTag(id)
	if err != nil {
		respondInternalError(c, err, "tag aliases")
		return
	}
	aliasNames := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		aliasNames = append(aliasNames, alias.Alias)
	}

	related, err := tc.store.RelatedTags(id, 10)
	if err != nil {
		respondInternalError(c, err, "related tags")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tag":          newTagView(*tag),
		"aliases":      aliasNames,
		"related_tags": newTagViews(related),
	})
}

// Create creates a tag, optionally with aliases.
// POST /api/tags
func (tc *TagsController) Create(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required"`
		Type        string   `json:"type"`
		Description string   `json:"description"`
		Aliases     []string `json:"aliases"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	tag, err := tc.store.CreateTag(req.Name, req.Type, req.Description)
	if err != nil {
		respondTagError(c, err, "create tag")
		return
	}

	for _, alias := range req.Aliases {
		if _, err := tc.store.CreateAlias(tag.ID, alias); err != nil {
			// Self-aliases and duplicates are skipped, not fatal: the
			// tag itself was created.
			if errors.Is(err, tags.ErrSelfAlias) || errors.Is(err, tags.ErrAliasExists) {
				continue
			}
			respondTagError(c, err, "create tag alias")
			return
		}
	}

	respondCreated(c, newTagView(*tag))
}

// Update changes a tag's type or description.
// PATCH /api/tags/:id
func (tc *TagsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	tag, err := tc.store.UpdateTag(id, req.Type, req.Description)
	if err != nil {
		respondTagError(c, err, "update tag")
		return
	}
	c.JSON(http.StatusOK, newTagView(*tag))
}

// Delete removes a tag with its aliases and associations.
// DELETE /api/tags/:id
func (tc *TagsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := tc.store.GetTagByID(id); err != nil {
		respondTagError(c, err, "get tag")
		return
	}
	if err := tc.store.DeleteTag(id); err != nil {
		respondTagError(c, err, "delete tag")
		return
	}
	respondSuccess(c, "tag deleted")
}

// ListAliases lists a tag's aliases.
// GET /api/tags/:id/aliases
func (tc *TagsController) ListAliases(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	aliases, err := tc.store.AliasesForTag(id)
	if err != nil {
		respondInternalError(c, err, "list aliases")
		return
	}
	c.JSON(http.StatusOK, aliases)
}

// CreateAlias adds an alias to a tag.
// POST /api/tags/:id/aliases
func (tc *TagsController) CreateAlias(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Alias string `json:"alias" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "alias is required")
		return
	}

	alias, err := tc.store.CreateAlias(id, req.Alias)
	if err != nil {
		respondTagError(c, err, "create alias")
		return
	}
	respondCreated(c, alias)
}

// DeleteAlias removes an alias.
// DELETE /api/tags/aliases/:aliasId
func (tc *TagsController) DeleteAlias(c *gin.Context) {
	id, ok := parseIDParam(c, "aliasId")
	if !ok {
		return
	}

	if err := tc.store.DeleteAlias(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "alias")
			return
		}
		respondInternalError(c, err, "delete alias")
		return
	}
	respondSuccess(c, "alias deleted")
}

// BulkTag adds or removes tags across many books at once.
// POST /api/tags/bulk
func (tc *TagsController) BulkTag(c *gin.Context) {
	var req struct {
		BookIDs   []uint   `json:"book_ids" binding:"required"`
		TagNames  []string `json:"tag_names" binding:"required"`
		Operation string   `json:"operation" binding:"required"`
		Source    string   `json:"source"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "book_ids, tag_names and operation are required")
		return
	}

	var add bool
	switch req.Operation {
	case "add":
		add = true
	case "remove":
		add = false
	default:
		respondBadRequest(c, "operation must be 'add' or 'remove'")
		return
	}

	source := entities.TagSource(req.Source)
	if source == "" {
		source = entities.TagSourceManual
	}

	result, err := tc.store.BulkTag(req.BookIDs, req.TagNames, add, source)
	if err != nil {
		respondTagError(c, err, "bulk tag")
		return
	}
	c.JSON(http.StatusOK, result)
}

// CopyTags copies all tags from one book onto another.
// POST /api/tags/copy/:sourceId/:targetId
func (tc *TagsController) CopyTags(c *gin.Context) {
	sourceID, ok := parseIDParam(c, "sourceId")
	if !ok {
		return
	}
	targetID, ok := parseIDParam(c, "targetId")
	if !ok {
		return
	}

	added, err := tc.store.CopyTags(sourceID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "copy tags")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags_copied": added})
}
