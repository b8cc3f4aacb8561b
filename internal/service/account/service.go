package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/pkg/logger"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Service handles provider, patient and admin accounts. Reads go through a
// short-lived cache since account records change far less often than slots.
type Service struct {
	repo   repository.AccountRepository
	cache  *gocache.Cache
	logger *logger.Logger
}

func NewService(repo repository.AccountRepository, logger *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  gocache.New(cacheTTL, cacheCleanup),
		logger: logger,
	}
}

func (s *Service) CreateAccount(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error) {
	account := &model.Account{
		Role:            req.Role,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Specialty:       req.Specialty,
		Location:        req.Location,
		LicenseNumber:   req.LicenseNumber,
		DateOfBirth:     req.DateOfBirth,
		BloodType:       req.BloodType,
		InsuranceNumber: req.InsuranceNumber,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		"account_id", account.ID.String(),
		"role", string(account.Role))
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	if cached, found := s.cache.Get(id.String()); found {
		return cached.(*model.Account), nil
	}

	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(id.String(), account, gocache.DefaultExpiration)
	return account, nil
}

func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) UpdateAccount(ctx context.Context, id uuid.UUID, req *model.UpdateAccountRequest) (*model.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		account.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		account.LastName = *req.LastName
	}
	if req.Email != nil {
		account.Email = *req.Email
	}
	if req.Specialty != nil {
		account.Specialty = req.Specialty
	}
	if req.Location != nil {
		account.Location = req.Location
	}
	if req.LicenseNumber != nil {
		account.LicenseNumber = req.LicenseNumber
	}
	if req.DateOfBirth != nil {
		account.DateOfBirth = req.DateOfBirth
	}
	if req.BloodType != nil {
		account.BloodType = req.BloodType
	}
	if req.InsuranceNumber != nil {
		account.InsuranceNumber = req.InsuranceNumber
	}

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}

	s.cache.Delete(id.String())
	return account, nil
}

func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(id.String())
	return nil
}

func (s *Service) ListAccounts(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error) {
	return s.repo.List(ctx, filters)
}

// ListProvidersBySpecialty is a convenience lookup for the booking UI.
func (s *Service) ListProvidersBySpecialty(ctx context.Context, specialty string) ([]*model.Account, error) {
	role := model.AccountRoleProvider
	return s.repo.List(ctx, &model.AccountFilters{Role: &role, Specialty: &specialty})
}

// ListPatientsByBloodType supports the admin search screens.
func (s *Service) ListPatientsByBloodType(ctx context.Context, bloodType string) ([]*model.Account, error) {
	role := model.AccountRolePatient
	return s.repo.List(ctx, &model.AccountFilters{Role: &role, BloodType: &bloodType})
}
