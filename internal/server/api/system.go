package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/build"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/server/db"
)

type SystemHandlersParams struct {
	fx.In

	DB *db.Client
}

type SystemHandlers struct {
	DB *db.Client
}

func NewSystemHandlers(params SystemHandlersParams) *SystemHandlers {
	return &SystemHandlers{
		DB: params.DB,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health reports whether the database answers.
func (h *SystemHandlers) Health(c *gin.Context) {
	version := build.GetBuildInfo().Version

	if err := h.DB.Ping(c.Request.Context()); err != nil {
		log.Error(c.Request.Context(), "health check failed", log.Cause(err))
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Version: version})

		return
	}

	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version})
}
