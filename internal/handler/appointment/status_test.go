package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medbook/booking-api/internal/model"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"CONFIRM", "APPROVED"},
		{"CONFIRMED", "APPROVED"},
		{"confirmed", "APPROVED"},
		{"APPROVE", "APPROVED"},
		{"APPROVED", "APPROVED"},
		{"CANCEL", "CANCELED"},
		{"CANCELLED", "CANCELED"},
		{"canceled", "CANCELED"},
		{"REJECT", "REJECTED"},
		{"rejected", "REJECTED"},
		{"PENDING", "PENDING"},
		{" confirmed ", "APPROVED"},
		// Unknown inputs pass through so the error can name them.
		{"DONE", "DONE"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.input))
		})
	}
}

func TestPresentStatus(t *testing.T) {
	assert.Equal(t, "PENDING", PresentStatus(model.AppointmentStatusPending))
	assert.Equal(t, "CONFIRMED", PresentStatus(model.AppointmentStatusApproved))
	assert.Equal(t, "REJECTED", PresentStatus(model.AppointmentStatusRejected))
	assert.Equal(t, "CANCELLED", PresentStatus(model.AppointmentStatusCanceled))
}

func TestResponsePresentsStatus(t *testing.T) {
	apt := &model.Appointment{Status: model.AppointmentStatusApproved}
	assert.Equal(t, "CONFIRMED", toResponse(apt).Status)
}
