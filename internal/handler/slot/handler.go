package slot

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/service/slot"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *slot.Service
}

func NewHandler(service *slot.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateSlot(c *gin.Context) {
	var req model.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error()))
		return
	}

	created, err := h.service.CreateSlot(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, created)
}

func (h *Handler) GetSlot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid slot ID"))
		return
	}

	found, err := h.service.GetSlot(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, found)
}

func (h *Handler) UpdateSlot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid slot ID"))
		return
	}

	var req model.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error()))
		return
	}

	updated, err := h.service.UpdateSlot(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) DeleteSlot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid slot ID"))
		return
	}

	if err := h.service.DeleteSlot(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, nil)
}

// ListSlots supports ?provider_id=, ?available=true and an RFC 3339
// ?from=/?to= window on the slot start time.
func (h *Handler) ListSlots(c *gin.Context) {
	filters := &model.SlotFilters{}

	if v := c.Query("provider_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, errors.Validation("invalid provider ID"))
			return
		}
		filters.ProviderID = &id
	}

	if v := c.Query("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.RespondWithError(c, errors.Validation("invalid from time, expected RFC 3339"))
			return
		}
		filters.From = &from
	}

	if v := c.Query("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.RespondWithError(c, errors.Validation("invalid to time, expected RFC 3339"))
			return
		}
		filters.To = &to
	}

	filters.AvailableOnly = c.Query("available") == "true"

	slots, err := h.service.ListSlots(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) ListAvailableSlots(c *gin.Context) {
	var providerID *uuid.UUID
	if v := c.Query("provider_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, errors.Validation("invalid provider ID"))
			return
		}
		providerID = &id
	}

	slots, err := h.service.ListAvailableSlots(c.Request.Context(), providerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) FindFirstAvailableSlot(c *gin.Context) {
	providerID, err := uuid.Parse(c.Query("provider_id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid provider ID"))
		return
	}

	found, err := h.service.FindFirstAvailableSlot(c.Request.Context(), providerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, found)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	slots := r.Group("/slots")
	{
		slots.POST("", h.CreateSlot)
		slots.GET("", h.ListSlots)
		slots.GET("/available", h.ListAvailableSlots)
		slots.GET("/first-available", h.FindFirstAvailableSlot)
		slots.GET("/:id", h.GetSlot)
		slots.PATCH("/:id", h.UpdateSlot)
		slots.DELETE("/:id", h.DeleteSlot)
	}
}
