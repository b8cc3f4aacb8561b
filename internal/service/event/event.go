package event

import (
	"encoding/json"
	"time"

	"github.com/medbook/booking-api/internal/model"
)

// Builders for the outbox events the booking flows emit. Payloads are
// marshaled eagerly so repositories can write them in the same transaction
// as the state change.

type appointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	ProviderID    string    `json:"provider_id"`
	PatientID     string    `json:"patient_id"`
	SlotID        string    `json:"slot_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type statusChangePayload struct {
	appointmentPayload
	PreviousStatus string `json:"previous_status"`
	SlotReleased   bool   `json:"slot_released"`
}

func NewAppointmentBooked(apt *model.Appointment) *model.OutboxEvent {
	payload, _ := json.Marshal(appointmentPayload{
		AppointmentID: apt.ID.String(),
		ProviderID:    apt.ProviderID.String(),
		PatientID:     apt.PatientID.String(),
		SlotID:        apt.SlotID.String(),
		Status:        string(apt.Status),
		OccurredAt:    time.Now(),
	})

	return &model.OutboxEvent{
		EventType: model.EventAppointmentBooked,
		Payload:   payload,
	}
}

func NewStatusChanged(apt *model.Appointment, previous model.AppointmentStatus, released bool) *model.OutboxEvent {
	payload, _ := json.Marshal(statusChangePayload{
		appointmentPayload: appointmentPayload{
			AppointmentID: apt.ID.String(),
			ProviderID:    apt.ProviderID.String(),
			PatientID:     apt.PatientID.String(),
			SlotID:        apt.SlotID.String(),
			Status:        string(apt.Status),
			OccurredAt:    time.Now(),
		},
		PreviousStatus: string(previous),
		SlotReleased:   released,
	})

	return &model.OutboxEvent{
		EventType: model.EventAppointmentStatusChanged,
		Payload:   payload,
	}
}
