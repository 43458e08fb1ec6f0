package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nvoss/shelfmark/internal/entities"
)

// ProgressStore persists reading positions. Implemented by the progress
// repository.
type ProgressStore interface {
	GetProgress(bookID uint) (*entities.ReadingProgress, error)
	UpsertProgress(bookID uint, position string, percentage float64, finished bool) (*entities.ReadingProgress, error)
}

type ProgressController struct {
	store ProgressStore
}

func NewProgressController(store ProgressStore) *ProgressController {
	return &ProgressController{store: store}
}

// Get returns the reading position for a book.
// GET /api/books/:id/progress
func (pc *ProgressController) Get(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := pc.store.GetProgress(bookID)
	if err != nil {
		respondInternalError(c, err, "get progress")
		return
	}
	if record == nil {
		respondNotFound(c, "progress")
		return
	}
	c.JSON(http.StatusOK, record)
}

// Put records the current reading position for a book.
// PUT /api/books/:id/progress
func (pc *ProgressController) Put(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Position   string  `json:"position"`
		Percentage float64 `json:"percentage"`
		IsFinished bool    `json:"is_finished"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Percentage < 0 || req.Percentage > 100 {
		respondBadRequest(c, "percentage must be between 0 and 100")
		return
	}

	record, err := pc.store.UpsertProgress(bookID, req.Position, req.Percentage, req.IsFinished)
	if err != nil {
		respondInternalError(c, err, "save progress")
		return
	}
	c.JSON(http.StatusOK, record)
}
