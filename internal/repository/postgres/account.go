package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/pkg/errors"
)

const accountColumns = `id, role, first_name, last_name, email,
	specialty, location, license_number,
	date_of_birth, blood_type, insurance_number,
	created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (
			id, role, first_name, last_name, email,
			specialty, location, license_number,
			date_of_birth, blood_type, insurance_number,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	account.ID = uuid.New()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Role,
		account.FirstName,
		account.LastName,
		account.Email,
		account.Specialty,
		account.Location,
		account.LicenseNumber,
		account.DateOfBirth,
		account.BloodType,
		account.InsuranceNumber,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("email already registered")
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	var account model.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("account")
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	var account model.Account
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("account")
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	query := `
		UPDATE accounts
		SET first_name = $1, last_name = $2, email = $3,
			specialty = $4, location = $5, license_number = $6,
			date_of_birth = $7, blood_type = $8, insurance_number = $9,
			updated_at = $10
		WHERE id = $11
	`
	account.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		account.FirstName,
		account.LastName,
		account.Email,
		account.Specialty,
		account.Location,
		account.LicenseNumber,
		account.DateOfBirth,
		account.BloodType,
		account.InsuranceNumber,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("account")
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("account")
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.Role != nil {
			query += fmt.Sprintf(" AND role = $%d", argCount)
			args = append(args, *filters.Role)
			argCount++
		}
		if filters.Specialty != nil {
			query += fmt.Sprintf(" AND specialty = $%d", argCount)
			args = append(args, *filters.Specialty)
			argCount++
		}
		if filters.BloodType != nil {
			query += fmt.Sprintf(" AND blood_type = $%d", argCount)
			args = append(args, *filters.BloodType)
			argCount++
		}
		if filters.Email != nil {
			query += fmt.Sprintf(" AND email = $%d", argCount)
			args = append(args, *filters.Email)
			argCount++
		}
	}

	query += " ORDER BY last_name ASC, first_name ASC"

	var accounts []*model.Account
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}
