package entities

import (
	"time"

	"gorm.io/gorm"
)

// TagSource records how a book-tag association came to exist.
type TagSource string

const (
	TagSourceManual TagSource = "manual" // added by the user
	TagSourceAuto   TagSource = "auto"   // suggested by automatic tagging, pending review
	TagSourceImport TagSource = "import" // derived from file metadata during import
)

// DefaultTagType is assigned when a tag is created without an explicit type.
const DefaultTagType = "meta"

type Book struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"index;size:512" json:"title"`
	FilePath    string         `gorm:"uniqueIndex;size:1024" json:"file_path"`
	Format      string         `gorm:"size:20" json:"format,omitempty"`
	FileSize    int64          `json:"file_size,omitempty"`
	Publisher   string         `gorm:"size:256" json:"publisher,omitempty"`
	Series      string         `gorm:"index;size:256" json:"series,omitempty"`
	SeriesIndex int            `json:"series_index,omitempty"`
	Language    string         `gorm:"size:20" json:"language,omitempty"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Rating      float64        `gorm:"default:0" json:"rating"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	Authors     []Author       `gorm:"many2many:book_authors;" json:"authors,omitempty"`
	Tags        []Tag          `gorm:"many2many:book_tags;" json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type Author struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"uniqueIndex;size:256" json:"name"`
	Books []Book `gorm:"many2many:book_authors;" json:"-"`
}

// Tag is a booru-style tag: a flat, typed label shared by many books.
// Name is always stored in normalized snake_case form; UsageCount is a
// denormalized count of live book associations, reconciled by the
// maintenance tasks.
type Tag struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"uniqueIndex;size:100" json:"name"`
	Type        string     `gorm:"index;size:50;default:'meta'" json:"type"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	UsageCount  int        `gorm:"index;default:0" json:"usage_count"`
	Books       []Book     `gorm:"many2many:book_tags;" json:"-"`
	Aliases     []TagAlias `gorm:"foreignKey:CanonicalTagID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TagAlias maps an alternate normalized spelling to a canonical tag. Aliases
// are unique across the whole table and die with their tag.
type TagAlias struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Alias          string    `gorm:"uniqueIndex;size:100" json:"alias"`
	CanonicalTagID uint      `gorm:"index;not null" json:"canonical_tag_id"`
	CanonicalTag   Tag       `gorm:"foreignKey:CanonicalTagID" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// BookTag is the book-tag join row. Confidence below 1.0 marks
// automatically suggested tags that have not been reviewed yet.
type BookTag struct {
	BookID     uint      `gorm:"primaryKey" json:"book_id"`
	TagID      uint      `gorm:"primaryKey" json:"tag_id"`
	Confidence float64   `gorm:"default:1.0" json:"confidence"`
	Source     TagSource `gorm:"size:20;default:'manual'" json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReadingProgress tracks a reader's position in a book.
type ReadingProgress struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookID     uint      `gorm:"uniqueIndex" json:"book_id"`
	Position   string    `gorm:"size:256" json:"position,omitempty"` // EPUB CFI or similar locator
	Percentage float64   `gorm:"default:0" json:"percentage"`
	IsFinished bool      `gorm:"default:false" json:"is_finished"`
	LastReadAt time.Time `json:"last_read_at"`
}

func (Book) TableName() string            { return "books" }
func (Author) TableName() string          { return "authors" }
func (Tag) TableName() string             { return "tags" }
func (TagAlias) TableName() string        { return "tag_aliases" }
func (BookTag) TableName() string         { return "book_tags" }
func (ReadingProgress) TableName() string { return "reading_progress" }
