package workshops

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-lms/backend/internal/models"
	"github.com/atelier-lms/backend/pkg/response"
)

// Handler serves tenant-scoped workshop endpoints. All routes sit behind
// RequireTenant, so the repository always sees a tenant on the context.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a workshops handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

type createWorkshopRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Capacity    int        `json:"capacity"`
	StartsAt    *time.Time `json:"starts_at"`
}

// Create adds a workshop to the requesting tenant's schema.
func (h *Handler) Create(c *gin.Context) {
	var req createWorkshopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title is required")
		return
	}
	w := &models.Workshop{
		Title:       req.Title,
		Description: req.Description,
		Capacity:    req.Capacity,
		StartsAt:    req.StartsAt,
	}
	if err := h.repo.Create(c.Request.Context(), w); err != nil {
		h.logger.Error("create workshop", zap.Error(err))
		response.Internal(c, "could not create workshop")
		return
	}
	response.Created(c, w)
}

// List returns the requesting tenant's workshops.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list workshops", zap.Error(err))
		response.Internal(c, "could not list workshops")
		return
	}
	response.OK(c, list)
}

// Get returns one workshop by id within the requesting tenant's schema.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get workshop", zap.Error(err))
		response.Internal(c, "could not load workshop")
		return
	}
	if w == nil {
		response.NotFound(c, "workshop not found")
		return
	}
	response.OK(c, w)
}

type enrollRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name"`
}

// Enroll registers a member into a workshop.
func (h *Handler) Enroll(c *gin.Context) {
	workshopID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "a valid email is required")
		return
	}

	w, err := h.repo.GetByID(c.Request.Context(), workshopID)
	if err != nil {
		h.logger.Error("load workshop for enrollment", zap.Error(err))
		response.Internal(c, "could not enroll")
		return
	}
	if w == nil {
		response.NotFound(c, "workshop not found")
		return
	}

	e, err := h.repo.Enroll(c.Request.Context(), workshopID, req.Email, req.FullName)
	if err != nil {
		h.logger.Error("enroll member", zap.Error(err))
		response.Internal(c, "could not enroll")
		return
	}
	response.Created(c, e)
}

// ListEnrollments returns a workshop's enrollments.
func (h *Handler) ListEnrollments(c *gin.Context) {
	workshopID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	list, err := h.repo.ListEnrollments(c.Request.Context(), workshopID)
	if err != nil {
		h.logger.Error("list enrollments", zap.Error(err))
		response.Internal(c, "could not list enrollments")
		return
	}
	response.OK(c, list)
}

type progressRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

// UpdateProgress sets an enrollment's completion percentage.
func (h *Handler) UpdateProgress(c *gin.Context) {
	enrollmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid enrollment id")
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil || *req.Progress < 0 || *req.Progress > 100 {
		response.BadRequest(c, "progress must be between 0 and 100")
		return
	}
	found, err := h.repo.UpdateProgress(c.Request.Context(), enrollmentID, *req.Progress)
	if err != nil {
		h.logger.Error("update progress", zap.Error(err))
		response.Internal(c, "could not update progress")
		return
	}
	if !found {
		response.NotFound(c, "enrollment not found")
		return
	}
	response.NoContent(c)
}
