package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/pkg/errors"
)

const slotColumns = `id, provider_id, start_time, end_time, is_booked, notes, created_at, updated_at`

// lockProvider serializes slot writes per provider for the duration of the
// transaction. The overlap check that follows sees a stable view: a
// concurrent create/update for the same provider blocks here until commit.
func lockProvider(ctx context.Context, tx *sqlx.Tx, providerID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, providerID.String()); err != nil {
		return fmt.Errorf("failed to acquire provider lock: %w", err)
	}
	return nil
}

func hasOverlapTx(ctx context.Context, tx *sqlx.Tx, providerID uuid.UUID, r model.TimeRange, excludeID *uuid.UUID) (bool, error) {
	// Half-open intervals: touching boundaries are not a conflict.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointment_slots
			WHERE provider_id = $1
			AND end_time > $2
			AND start_time < $3
	`
	args := []interface{}{providerID, r.Start, r.End}

	if excludeID != nil {
		query += " AND id != $4"
		args = append(args, *excludeID)
	}

	query += ")"

	var overlaps bool
	if err := tx.GetContext(ctx, &overlaps, query, args...); err != nil {
		return false, fmt.Errorf("failed to check slot overlap: %w", err)
	}
	return overlaps, nil
}

func (r *slotRepository) Create(ctx context.Context, slot *model.Slot) error {
	slot.ID = uuid.New()
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockProvider(ctx, tx, slot.ProviderID); err != nil {
			return err
		}

		overlaps, err := hasOverlapTx(ctx, tx, slot.ProviderID, slot.Range(), nil)
		if err != nil {
			return err
		}
		if overlaps {
			return errors.Conflict("slot overlaps an existing slot for this provider")
		}

		query := `
			INSERT INTO appointment_slots (
				id, provider_id, start_time, end_time, is_booked, notes,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.ExecContext(ctx, query,
			slot.ID,
			slot.ProviderID,
			slot.StartTime,
			slot.EndTime,
			slot.Booked,
			slot.Notes,
			slot.CreatedAt,
			slot.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create slot: %w", err)
		}
		return nil
	})
}

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM appointment_slots WHERE id = $1`

	var slot model.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("slot")
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

func (r *slotRepository) Update(ctx context.Context, slot *model.Slot) error {
	slot.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockProvider(ctx, tx, slot.ProviderID); err != nil {
			return err
		}

		overlaps, err := hasOverlapTx(ctx, tx, slot.ProviderID, slot.Range(), &slot.ID)
		if err != nil {
			return err
		}
		if overlaps {
			return errors.Conflict("slot overlaps an existing slot for this provider")
		}

		query := `
			UPDATE appointment_slots
			SET start_time = $1, end_time = $2, is_booked = $3, notes = $4, updated_at = $5
			WHERE id = $6
		`
		result, err := tx.ExecContext(ctx, query,
			slot.StartTime,
			slot.EndTime,
			slot.Booked,
			slot.Notes,
			slot.UpdatedAt,
			slot.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update slot: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return errors.NotFound("slot")
		}
		return nil
	})
}

func (r *slotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM appointment_slots WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("slot")
	}
	return nil
}

func (r *slotRepository) List(ctx context.Context, filters *model.SlotFilters) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM appointment_slots WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.ProviderID != nil {
			query += fmt.Sprintf(" AND provider_id = $%d", argCount)
			args = append(args, *filters.ProviderID)
			argCount++
		}
		if filters.AvailableOnly {
			query += " AND is_booked = FALSE"
		}
		if filters.From != nil {
			query += fmt.Sprintf(" AND start_time >= $%d", argCount)
			args = append(args, *filters.From)
			argCount++
		}
		if filters.To != nil {
			query += fmt.Sprintf(" AND start_time < $%d", argCount)
			args = append(args, *filters.To)
			argCount++
		}
	}

	query += " ORDER BY start_time ASC"

	var slots []*model.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (r *slotRepository) FirstAvailable(ctx context.Context, providerID uuid.UUID) (*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM appointment_slots
		WHERE provider_id = $1 AND is_booked = FALSE
		ORDER BY start_time ASC
		LIMIT 1
	`

	var slot model.Slot
	if err := r.db.GetContext(ctx, &slot, query, providerID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("available slot")
		}
		return nil, fmt.Errorf("failed to find first available slot: %w", err)
	}
	return &slot, nil
}
