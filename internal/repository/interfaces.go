package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	// AccountRepository handles provider/patient/admin account records.
	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
		GetByEmail(ctx context.Context, email string) (*model.Account, error)
		Update(ctx context.Context, account *model.Account) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error)
	}

	// SlotRepository owns the overlap invariant: Create and Update perform
	// their conflict check and the write inside one transaction, serialized
	// per provider, so two concurrent calls with overlapping intervals
	// cannot both commit.
	SlotRepository interface {
		Create(ctx context.Context, slot *model.Slot) error
		Get(ctx context.Context, id uuid.UUID) (*model.Slot, error)
		Update(ctx context.Context, slot *model.Slot) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.SlotFilters) ([]*model.Slot, error)
		FirstAvailable(ctx context.Context, providerID uuid.UUID) (*model.Slot, error)
	}

	// AppointmentRepository closes the double-booking race: Book reserves the
	// slot with a conditional update and inserts the appointment in the same
	// transaction, backed by a unique index on slot_id over active statuses.
	// Exactly one of two concurrent Book calls for a slot commits; the other
	// gets Conflict.
	// UpdateStatus is a compare-and-set on the current status: the UPDATE
	// carries both the id and the status the caller validated against, so of
	// two racing transitions only the first applies and the second observes
	// InvalidTransition.
	AppointmentRepository interface {
		Book(ctx context.Context, appointment *model.Appointment, evt *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetBySlot(ctx context.Context, slotID uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, current, next model.AppointmentStatus, releaseSlot bool, evt *model.OutboxEvent) (*model.Appointment, error)
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		ClaimPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
		RequeueStuck(ctx context.Context, before time.Time) (int64, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
