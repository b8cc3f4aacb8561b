package appointment

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/service/appointment"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

// statusSynonyms maps every accepted inbound spelling to its canonical
// status. The state machine itself only ever sees canonical values.
var statusSynonyms = map[string]model.AppointmentStatus{
	"PENDING":   model.AppointmentStatusPending,
	"APPROVE":   model.AppointmentStatusApproved,
	"APPROVED":  model.AppointmentStatusApproved,
	"CONFIRM":   model.AppointmentStatusApproved,
	"CONFIRMED": model.AppointmentStatusApproved,
	"REJECT":    model.AppointmentStatusRejected,
	"REJECTED":  model.AppointmentStatusRejected,
	"CANCEL":    model.AppointmentStatusCanceled,
	"CANCELED":  model.AppointmentStatusCanceled,
	"CANCELLED": model.AppointmentStatusCanceled,
}

// NormalizeStatus maps an inbound status string to its canonical form.
// Unknown strings pass through unchanged so the service can reject them
// with a Validation error naming the original input.
func NormalizeStatus(s string) string {
	if canonical, ok := statusSynonyms[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return string(canonical)
	}
	return s
}

// PresentStatus denormalizes a canonical status to the vocabulary callers
// expect. Purely presentational; persisted state keeps canonical values.
func PresentStatus(s model.AppointmentStatus) string {
	switch s {
	case model.AppointmentStatusApproved:
		return "CONFIRMED"
	case model.AppointmentStatusCanceled:
		return "CANCELLED"
	default:
		return string(s)
	}
}

// appointmentResponse is the wire shape; status is presented, not canonical.
type appointmentResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	PatientID  uuid.UUID `json:"patient_id"`
	SlotID     uuid.UUID `json:"slot_id"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toResponse(apt *model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:         apt.ID,
		ProviderID: apt.ProviderID,
		PatientID:  apt.PatientID,
		SlotID:     apt.SlotID,
		Status:     PresentStatus(apt.Status),
		Notes:      apt.Notes,
		CreatedAt:  apt.CreatedAt,
		UpdatedAt:  apt.UpdatedAt,
	}
}

func toResponseList(apts []*model.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(apts))
	for _, apt := range apts {
		out = append(out, toResponse(apt))
	}
	return out
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error()))
		return
	}

	apt, err := h.service.Book(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, toResponse(apt))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment ID"))
		return
	}

	apt, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, toResponse(apt))
}

func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment ID"))
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error()))
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), id, NormalizeStatus(req.Status))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, toResponse(apt))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment ID"))
		return
	}

	if err := h.service.DeleteAppointment(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	if v := c.Query("provider_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, errors.Validation("invalid provider ID"))
			return
		}
		filters.ProviderID = &id
	}

	if v := c.Query("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, errors.Validation("invalid patient ID"))
			return
		}
		filters.PatientID = &id
	}

	if v := c.Query("status"); v != "" {
		status, ok := model.ParseAppointmentStatus(NormalizeStatus(v))
		if !ok {
			httputil.RespondWithError(c, errors.Validation("unknown appointment status: "+v))
			return
		}
		filters.Status = &status
	}

	apts, err := h.service.ListAppointments(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, toResponseList(apts))
}

func (h *Handler) GetAppointmentBySlot(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("slotId"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid slot ID"))
		return
	}

	apt, err := h.service.FindBySlot(c.Request.Context(), slotID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, toResponse(apt))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.BookAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateAppointmentStatus)
		appointments.DELETE("/:id", h.DeleteAppointment)
		appointments.GET("/by-slot/:slotId", h.GetAppointmentBySlot)
	}
}
