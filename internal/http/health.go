package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvoss/shelfmark/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	version string
}

func NewHealthController(db *database.Database, version string) *HealthController {
	return &HealthController{db: db, version: version}
}

func (h *HealthController) checkDatabase() (string, bool) {
	if h.db == nil {
		return "not configured", true
	}
	sqlDB, err := h.db.DB.DB()
	if err != nil {
		return "error: " + err.Error(), false
	}
	if err := sqlDB.Ping(); err != nil {
		return "error: " + err.Error(), false
	}
	return "ok", true
}

func (h *HealthController) Status(c *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	dbCheck, healthy := h.checkDatabase()
	checks["database"] = dbCheck
	if !healthy {
		status = "unhealthy"
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}
