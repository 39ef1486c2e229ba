package tenants

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atelier-lms/backend/internal/provision"
	"github.com/atelier-lms/backend/pkg/response"
)

// MigrationsHandler exposes the coordinated migration run to operators.
type MigrationsHandler struct {
	coordinator *provision.Coordinator
	logger      *zap.Logger
}

// NewMigrationsHandler creates the admin migrations handler.
func NewMigrationsHandler(coordinator *provision.Coordinator, logger *zap.Logger) *MigrationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MigrationsHandler{coordinator: coordinator, logger: logger}
}

// Run applies pending migrations to the shared schema and all tenant
// schemas, returning the per-schema report either way: on failure the
// report is the point — it names exactly which schemas are behind and at
// which version they stopped.
func (h *MigrationsHandler) Run(c *gin.Context) {
	report, err := h.coordinator.ApplyPending(c.Request.Context())
	if err != nil {
		h.logger.Error("coordinated migration run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Body{
			Success: false,
			Data:    report,
			Error:   err.Error(),
		})
		return
	}
	response.OK(c, report)
}
