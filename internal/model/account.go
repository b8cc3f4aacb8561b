package model

import (
	"time"
)

type AccountRole string

const (
	AccountRoleProvider AccountRole = "provider"
	AccountRolePatient  AccountRole = "patient"
	AccountRoleAdmin    AccountRole = "admin"
)

// Account is a single record with a role discriminator instead of the
// subtype-per-role hierarchy: provider and patient columns are nullable
// extensions keyed by the same id.
type Account struct {
	Base
	Role      AccountRole `db:"role" json:"role"`
	FirstName string      `db:"first_name" json:"first_name"`
	LastName  string      `db:"last_name" json:"last_name"`
	Email     string      `db:"email" json:"email"`

	// Provider extension
	Specialty     *string `db:"specialty" json:"specialty,omitempty"`
	Location      *string `db:"location" json:"location,omitempty"`
	LicenseNumber *string `db:"license_number" json:"license_number,omitempty"`

	// Patient extension
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	BloodType       *string    `db:"blood_type" json:"blood_type,omitempty"`
	InsuranceNumber *string    `db:"insurance_number" json:"insurance_number,omitempty"`
}

// IsProvider reports whether the account may own slots.
func (a *Account) IsProvider() bool {
	return a.Role == AccountRoleProvider
}

func (a *Account) IsPatient() bool {
	return a.Role == AccountRolePatient
}

type CreateAccountRequest struct {
	Role      AccountRole `json:"role" binding:"required,oneof=provider patient admin"`
	FirstName string      `json:"first_name" binding:"required"`
	LastName  string      `json:"last_name" binding:"required"`
	Email     string      `json:"email" binding:"required,email"`

	Specialty     *string `json:"specialty"`
	Location      *string `json:"location"`
	LicenseNumber *string `json:"license_number"`

	DateOfBirth     *time.Time `json:"date_of_birth"`
	BloodType       *string    `json:"blood_type"`
	InsuranceNumber *string    `json:"insurance_number"`
}

type UpdateAccountRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`

	Specialty     *string `json:"specialty"`
	Location      *string `json:"location"`
	LicenseNumber *string `json:"license_number"`

	DateOfBirth     *time.Time `json:"date_of_birth"`
	BloodType       *string    `json:"blood_type"`
	InsuranceNumber *string    `json:"insurance_number"`
}

// AccountFilters narrows account listings.
type AccountFilters struct {
	Role      *AccountRole
	Specialty *string
	BloodType *string
	Email     *string
}
