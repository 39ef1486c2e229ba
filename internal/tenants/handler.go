// Package tenants exposes the registry over HTTP: tenant creation (the one
// endpoint that requires no tenant header), lookup, listing, and the
// admin-only status transitions.
package tenants

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-lms/backend/internal/models"
	"github.com/atelier-lms/backend/internal/tenancy"
	"github.com/atelier-lms/backend/pkg/queue"
	"github.com/atelier-lms/backend/pkg/response"
)

// Handler serves tenant registry endpoints.
type Handler struct {
	registry *tenancy.Registry
	queue    *queue.Queue
	logger   *zap.Logger
}

// NewHandler creates a tenants handler.
func NewHandler(registry *tenancy.Registry, q *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, queue: q, logger: logger}
}

type createRequest struct {
	Name             string `json:"name" binding:"required"`
	Slug             string `json:"slug" binding:"required"`
	SubscriptionTier string `json:"subscription_tier"`
}

// Create registers a tenant and enqueues its schema provisioning. The
// response carries status pending_provision: the caller polls GET until the
// worker flips the tenant to active.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name and slug are required")
		return
	}

	tenant, err := h.registry.Create(c.Request.Context(), req.Name, req.Slug, req.SubscriptionTier)
	if err != nil {
		switch {
		case errors.Is(err, tenancy.ErrSlugConflict):
			response.Conflict(c, err.Error())
		case errors.Is(err, tenancy.ErrInvalidSlug):
			response.BadRequest(c, err.Error())
		default:
			h.logger.Error("create tenant", zap.Error(err))
			response.Internal(c, "could not create tenant")
		}
		return
	}

	payload := queue.TenantProvisionPayload{TenantID: tenant.ID}
	if err := h.queue.EnqueueTenantProvision(c.Request.Context(), payload); err != nil {
		// The tenant row exists in pending_provision; an operator can
		// re-enqueue. Surfacing a 500 here would hide the created resource.
		h.logger.Error("enqueue provisioning",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
	}

	response.Created(c, tenant)
}

// Get returns a tenant by id, whatever its status. Polled after creation.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid tenant id")
		return
	}
	tenant, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, tenancy.ErrTenantNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("get tenant", zap.Error(err))
		response.Internal(c, "could not load tenant")
		return
	}
	response.OK(c, tenant)
}

// List returns all tenants. ?status=<status> filters to one lifecycle state;
// ?include_deleted=true includes terminal ones.
func (h *Handler) List(c *gin.Context) {
	includeDeleted := c.Query("include_deleted") == "true"

	var status models.TenantStatus
	if s := c.Query("status"); s != "" {
		status = models.TenantStatus(s)
		if !status.Valid() {
			response.BadRequest(c, "unknown status: "+s)
			return
		}
		if status == models.TenantStatusDeleted {
			includeDeleted = true
		}
	}

	list, err := h.registry.List(c.Request.Context(), includeDeleted)
	if err != nil {
		h.logger.Error("list tenants", zap.Error(err))
		response.Internal(c, "could not list tenants")
		return
	}
	if status != "" {
		filtered := list[:0]
		for _, t := range list {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		list = filtered
	}
	response.OK(c, list)
}

type updateStatusRequest struct {
	Status models.TenantStatus `json:"status" binding:"required"`
}

// UpdateStatus transitions a tenant through the lifecycle state machine.
// This is the only write path for status, and it invalidates the resolver
// cache so suspensions take effect within one request, not one TTL.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid tenant id")
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status is required")
		return
	}

	if err := h.registry.UpdateStatus(c.Request.Context(), id, req.Status, nil); err != nil {
		switch {
		case errors.Is(err, tenancy.ErrTenantNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, tenancy.ErrInvalidTransition):
			response.Conflict(c, err.Error())
		default:
			h.logger.Error("update tenant status", zap.Error(err))
			response.Internal(c, "could not update tenant status")
		}
		return
	}

	tenant, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		response.NoContent(c)
		return
	}
	response.OK(c, tenant)
}
