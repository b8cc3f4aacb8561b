package slot

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/metrics"
)

// Service allocates provider slots. The overlap invariant itself is enforced
// inside the repository transaction; this layer owns the structural checks
// and the booked-slot lifecycle rules.
type Service struct {
	repo     repository.SlotRepository
	accounts repository.AccountRepository
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(repo repository.SlotRepository, accounts repository.AccountRepository, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		logger:   logger,
		metrics:  metrics,
	}
}

func (s *Service) validateRange(r model.TimeRange) error {
	if !r.IsValid() {
		return errors.Validation("start time must be before end time")
	}
	now := time.Now()
	if !r.Start.After(now) || !r.End.After(now) {
		return errors.Validation("slot must be in the future")
	}
	return nil
}

func (s *Service) resolveProvider(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound("provider")
		}
		return nil, err
	}
	if !account.IsProvider() {
		return nil, errors.NotFound("provider")
	}
	return account, nil
}

func (s *Service) CreateSlot(ctx context.Context, req *model.CreateSlotRequest) (*model.Slot, error) {
	r := model.TimeRange{Start: req.StartTime, End: req.EndTime}
	if err := s.validateRange(r); err != nil {
		return nil, err
	}

	if _, err := s.resolveProvider(ctx, req.ProviderID); err != nil {
		return nil, err
	}

	slot := &model.Slot{
		ProviderID: req.ProviderID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Booked:     false,
		Notes:      req.Notes,
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		if errors.IsConflict(err) {
			s.metrics.SlotOverlapRejected.Inc()
		}
		return nil, err
	}

	s.logger.Info("slot created",
		"slot_id", slot.ID.String(),
		"provider_id", slot.ProviderID.String())
	return slot, nil
}

// UpdateSlot applies a partial patch. A booked slot is frozen: the only
// patch it accepts is one that sets is_booked to false, which returns the
// slot to the available pool.
func (s *Service) UpdateSlot(ctx context.Context, id uuid.UUID, req *model.UpdateSlotRequest) (*model.Slot, error) {
	slot, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unbooking := req.Booked != nil && !*req.Booked

	if slot.Booked && !unbooking {
		return nil, errors.Conflict("cannot update a booked slot")
	}
	if !slot.Booked && req.Booked != nil && *req.Booked {
		// Only the booking flow may reserve a slot.
		return nil, errors.Conflict("slot can only be booked through an appointment")
	}

	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if req.Booked != nil {
		slot.Booked = *req.Booked
	}
	if req.Notes != nil {
		slot.Notes = *req.Notes
	}

	if !slot.Range().IsValid() {
		return nil, errors.Validation("start time must be before end time")
	}

	if err := s.repo.Update(ctx, slot); err != nil {
		if errors.IsConflict(err) {
			s.metrics.SlotOverlapRejected.Inc()
		}
		return nil, err
	}

	if unbooking {
		s.metrics.SlotsReleased.Inc()
	}
	return slot, nil
}

// DeleteSlot refuses to delete a booked slot: removing it would strand the
// appointment that references it.
func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	slot, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if slot.Booked {
		return errors.Conflict("cannot delete a booked slot")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListSlots(ctx context.Context, filters *model.SlotFilters) ([]*model.Slot, error) {
	if filters != nil && filters.ProviderID != nil {
		if _, err := s.resolveProvider(ctx, *filters.ProviderID); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, filters)
}

// ListAvailableSlots returns unbooked slots, optionally scoped to a provider.
func (s *Service) ListAvailableSlots(ctx context.Context, providerID *uuid.UUID) ([]*model.Slot, error) {
	return s.ListSlots(ctx, &model.SlotFilters{
		ProviderID:    providerID,
		AvailableOnly: true,
	})
}

// FindFirstAvailableSlot returns the provider's earliest unbooked slot.
func (s *Service) FindFirstAvailableSlot(ctx context.Context, providerID uuid.UUID) (*model.Slot, error) {
	if _, err := s.resolveProvider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.repo.FirstAvailable(ctx, providerID)
}
