package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/event"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/metrics"
)

// Service is the single entry point for creating appointments and moving
// them through their lifecycle. Reservation atomicity lives in the
// repository; this layer resolves references, enforces ownership, and
// applies the transition table.
type Service struct {
	repo     repository.AppointmentRepository
	slots    repository.SlotRepository
	accounts repository.AccountRepository
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	slots repository.SlotRepository,
	accounts repository.AccountRepository,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		repo:     repo,
		slots:    slots,
		accounts: accounts,
		logger:   logger,
		metrics:  metrics,
	}
}

func (s *Service) resolveAccount(ctx context.Context, id uuid.UUID, role model.AccountRole, name string) (*model.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound(name)
		}
		return nil, err
	}
	if account.Role != role {
		return nil, errors.NotFound(name)
	}
	return account, nil
}

// Book creates a PENDING appointment against a free slot and reserves the
// slot. The repository commits the reserve-and-insert as one transaction;
// when two callers race for the same slot exactly one returns successfully
// and the other observes Conflict.
func (s *Service) Book(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if _, err := s.resolveAccount(ctx, req.ProviderID, model.AccountRoleProvider, "provider"); err != nil {
		return nil, err
	}
	if _, err := s.resolveAccount(ctx, req.PatientID, model.AccountRolePatient, "patient"); err != nil {
		return nil, err
	}

	slot, err := s.slots.Get(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}

	if slot.ProviderID != req.ProviderID {
		return nil, errors.Validation("slot does not belong to the selected provider")
	}

	// Advisory pre-check; the authoritative check is the conditional
	// reservation inside the booking transaction.
	if slot.Booked {
		s.metrics.BookingConflicts.Inc()
		return nil, errors.Conflict("slot already booked")
	}

	apt := &model.Appointment{
		ID:         uuid.New(),
		ProviderID: req.ProviderID,
		PatientID:  req.PatientID,
		SlotID:     req.SlotID,
		Status:     model.AppointmentStatusPending,
		Notes:      req.Notes,
	}

	if err := s.repo.Book(ctx, apt, event.NewAppointmentBooked(apt)); err != nil {
		if errors.IsConflict(err) {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.BookingsTotal.Inc()
	s.logger.Info("appointment booked",
		"appointment_id", apt.ID.String(),
		"provider_id", apt.ProviderID.String(),
		"patient_id", apt.PatientID.String(),
		"slot_id", apt.SlotID.String())
	return apt, nil
}

// UpdateStatus validates the requested transition against the table and
// applies it. REJECTED and CANCELED free the backing slot in the same
// transaction; APPROVED leaves it reserved. Repeating a terminal status is
// rejected, so a double cancel surfaces as an error to the caller.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, requested string) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, ok := model.ParseAppointmentStatus(requested)
	if !ok {
		return nil, errors.Validation("unknown appointment status: " + requested)
	}

	current := apt.Status
	if !current.CanTransitionTo(next) {
		return nil, errors.InvalidTransition(string(current), string(next))
	}

	release := next.ReleasesSlot()

	pending := *apt
	pending.Status = next
	updated, err := s.repo.UpdateStatus(ctx, id, current, next, release, event.NewStatusChanged(&pending, current, release))
	if err != nil {
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(current), string(next)).Inc()
	if release {
		s.metrics.SlotsReleased.Inc()
	}

	s.logger.Info("appointment status changed",
		"appointment_id", id.String(),
		"from", string(current),
		"to", string(next))
	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

// DeleteAppointment removes the record unconditionally and does not touch
// the slot: a booked slot stays booked. Freeing a slot goes through an
// explicit CANCELED or REJECTED transition first.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters != nil {
		if filters.ProviderID != nil {
			if _, err := s.resolveAccount(ctx, *filters.ProviderID, model.AccountRoleProvider, "provider"); err != nil {
				return nil, err
			}
		}
		if filters.PatientID != nil {
			if _, err := s.resolveAccount(ctx, *filters.PatientID, model.AccountRolePatient, "patient"); err != nil {
				return nil, err
			}
		}
	}
	return s.repo.List(ctx, filters)
}

// FindBySlot returns the appointment backing a slot, if any.
func (s *Service) FindBySlot(ctx context.Context, slotID uuid.UUID) (*model.Appointment, error) {
	if _, err := s.slots.Get(ctx, slotID); err != nil {
		return nil, err
	}
	return s.repo.GetBySlot(ctx, slotID)
}
