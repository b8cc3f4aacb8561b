package model

import (
	"time"

	"github.com/google/uuid"
)

// TimeRange is a half-open interval [Start, End). A valid range has
// Start strictly before End; constructors and request validation enforce
// that, so Overlaps may assume it.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the two ranges share any instant. Ranges that
// merely touch at a boundary do not overlap, so back-to-back slots are legal.
// Commutative: a.Overlaps(b) == b.Overlaps(a).
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.End.After(other.Start) && r.Start.Before(other.End)
}

// IsValid reports whether Start is strictly before End.
func (r TimeRange) IsValid() bool {
	return r.Start.Before(r.End)
}

// Slot is a bookable time window owned by a provider. Booked is owned by
// the booking flow: only booking sets it true and only a releasing status
// transition (or an explicit unbook patch) sets it back to false.
type Slot struct {
	Base
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	StartTime  time.Time `db:"start_time" json:"start_time"`
	EndTime    time.Time `db:"end_time" json:"end_time"`
	Booked     bool      `db:"is_booked" json:"is_booked"`
	Notes      string    `db:"notes" json:"notes,omitempty"`
}

// Range returns the slot's interval.
func (s *Slot) Range() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

type CreateSlotRequest struct {
	ProviderID uuid.UUID `json:"provider_id" binding:"required"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required"`
	Notes      string    `json:"notes" binding:"max=1000"`
}

// UpdateSlotRequest is a partial patch. Nil fields are left untouched.
// A booked slot only accepts a patch that sets Booked to false.
type UpdateSlotRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Booked    *bool      `json:"is_booked"`
	Notes     *string    `json:"notes"`
}

// SlotFilters narrows slot listings.
type SlotFilters struct {
	ProviderID    *uuid.UUID
	AvailableOnly bool
	From          *time.Time
	To            *time.Time
}
