package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending  AppointmentStatus = "PENDING"
	AppointmentStatusApproved AppointmentStatus = "APPROVED"
	AppointmentStatusRejected AppointmentStatus = "REJECTED"
	AppointmentStatusCanceled AppointmentStatus = "CANCELED"
)

// allowedTransitions is the full transition table. Terminal states carry no
// entry, so any request from them fails, including a repeat of the same
// terminal status. Double-cancel is an error, not a no-op.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending: {
		AppointmentStatusApproved,
		AppointmentStatusRejected,
		AppointmentStatusCanceled,
	},
	AppointmentStatusApproved: {
		AppointmentStatusCanceled,
	},
}

// ParseAppointmentStatus normalizes s case-insensitively to one of the four
// canonical statuses. Synonym mapping (CONFIRMED, CANCELLED, ...) is a
// boundary concern and happens before this is called.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	switch AppointmentStatus(strings.ToUpper(s)) {
	case AppointmentStatusPending:
		return AppointmentStatusPending, true
	case AppointmentStatusApproved:
		return AppointmentStatusApproved, true
	case AppointmentStatusRejected:
		return AppointmentStatusRejected, true
	case AppointmentStatusCanceled:
		return AppointmentStatusCanceled, true
	}
	return "", false
}

// CanTransitionTo consults the transition table.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReleasesSlot reports whether entering this status frees the backing slot.
func (s AppointmentStatus) ReleasesSlot() bool {
	return s == AppointmentStatusRejected || s == AppointmentStatusCanceled
}

// Appointment references its slot 1:1 while active; the slot's provider
// must match ProviderID, and slot_id is unique across active appointments.
type Appointment struct {
	ID         uuid.UUID         `db:"id" json:"id"`
	ProviderID uuid.UUID         `db:"provider_id" json:"provider_id"`
	PatientID  uuid.UUID         `db:"patient_id" json:"patient_id"`
	SlotID     uuid.UUID         `db:"slot_id" json:"slot_id"`
	Status     AppointmentStatus `db:"status" json:"status"`
	Notes      string            `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

type BookAppointmentRequest struct {
	ProviderID uuid.UUID `json:"provider_id" binding:"required"`
	PatientID  uuid.UUID `json:"patient_id" binding:"required"`
	SlotID     uuid.UUID `json:"slot_id" binding:"required"`
	Notes      string    `json:"notes" binding:"max=1000"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AppointmentFilters narrows appointment listings.
type AppointmentFilters struct {
	ProviderID *uuid.UUID
	PatientID  *uuid.UUID
	SlotID     *uuid.UUID
	Status     *AppointmentStatus
}
