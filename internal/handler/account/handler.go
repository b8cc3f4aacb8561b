package account

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/service/account"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *account.Service
}

func NewHandler(service *account.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateAccount(c *gin.Context) {
	var req model.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error()))
		return
	}

	created, err := h.service.CreateAccount(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, created)
}

func (h *Handler) GetAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid account ID"))
		return
	}

	found, err := h.service.GetAccount(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, found)
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid account ID"))
		return
	}

	var req model.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error()))
		return
	}

	updated, err := h.service.UpdateAccount(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid account ID"))
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, nil)
}

// ListAccounts supports ?role=, ?specialty=, ?blood_type= and ?email=.
func (h *Handler) ListAccounts(c *gin.Context) {
	filters := &model.AccountFilters{}

	if v := c.Query("role"); v != "" {
		role := model.AccountRole(v)
		filters.Role = &role
	}
	if v := c.Query("specialty"); v != "" {
		filters.Specialty = &v
	}
	if v := c.Query("blood_type"); v != "" {
		filters.BloodType = &v
	}
	if v := c.Query("email"); v != "" {
		filters.Email = &v
	}

	accounts, err := h.service.ListAccounts(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, accounts)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.PUT("/:id", h.UpdateAccount)
		accounts.DELETE("/:id", h.DeleteAccount)
	}
}
