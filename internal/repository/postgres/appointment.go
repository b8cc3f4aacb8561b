package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/pkg/errors"
)

const appointmentColumns = `id, provider_id, patient_id, slot_id, status, notes, created_at, updated_at`

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func insertOutboxTx(ctx context.Context, tx *sqlx.Tx, evt *model.OutboxEvent) error {
	if evt == nil {
		return nil
	}

	evt.ID = uuid.New()
	evt.Status = model.OutboxStatusPending
	evt.CreatedAt = time.Now()
	evt.UpdatedAt = evt.CreatedAt

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, query,
		evt.ID,
		evt.EventType,
		evt.Payload,
		evt.Status,
		evt.CreatedAt,
		evt.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// Book reserves the slot and creates the appointment as one unit of work.
// The reservation is a conditional update: zero rows affected means another
// booking already flipped the flag, and the partial unique index on slot_id
// over active statuses catches the remaining window where an active
// appointment row exists for a slot whose flag was released. Either way the
// loser sees Conflict and nothing is persisted.
func (r *appointmentRepository) Book(ctx context.Context, appointment *model.Appointment, evt *model.OutboxEvent) error {
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		reserve := `
			UPDATE appointment_slots
			SET is_booked = TRUE, updated_at = $1
			WHERE id = $2 AND is_booked = FALSE
		`
		result, err := tx.ExecContext(ctx, reserve, appointment.UpdatedAt, appointment.SlotID)
		if err != nil {
			return fmt.Errorf("failed to reserve slot: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return errors.Conflict("slot already booked")
		}

		insert := `
			INSERT INTO appointments (
				id, provider_id, patient_id, slot_id, status, notes,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.ExecContext(ctx, insert,
			appointment.ID,
			appointment.ProviderID,
			appointment.PatientID,
			appointment.SlotID,
			appointment.Status,
			appointment.Notes,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return errors.Conflict("slot already booked")
			}
			return fmt.Errorf("failed to create appointment: %w", err)
		}

		return insertOutboxTx(ctx, tx, evt)
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

// transitionConflict explains a compare-and-set miss: either the appointment
// is gone, or another transition won the race and the stored status no longer
// allows this one.
func transitionConflict(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, next model.AppointmentStatus) error {
	var actual model.AppointmentStatus
	if err := tx.GetContext(ctx, &actual, `SELECT status FROM appointments WHERE id = $1`, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NotFound("appointment")
		}
		return fmt.Errorf("failed to read appointment status: %w", err)
	}
	return errors.InvalidTransition(string(actual), string(next))
}

// GetBySlot returns the newest appointment referencing the slot. A slot
// released by a terminal transition keeps its historical rows, so the latest
// one is the relevant booking.
func (r *appointmentRepository) GetBySlot(ctx context.Context, slotID uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE slot_id = $1 ORDER BY created_at DESC LIMIT 1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, slotID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment by slot: %w", err)
	}
	return &appointment, nil
}

// UpdateStatus persists the already validated transition and, for releasing
// statuses, frees the backing slot in the same transaction. The WHERE clause
// repeats the current-status guard as a compare-and-set: a concurrent
// transition that committed between the caller's read and this write changes
// the status, the guard matches nothing, and the loser gets
// InvalidTransition instead of silently applying twice.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, current, next model.AppointmentStatus, releaseSlot bool, evt *model.OutboxEvent) (*model.Appointment, error) {
	var updated model.Appointment

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		update := `
			UPDATE appointments
			SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4
			RETURNING ` + appointmentColumns + `
		`
		if err := tx.GetContext(ctx, &updated, update, next, time.Now(), id, current); err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return transitionConflict(ctx, tx, id, next)
			}
			return fmt.Errorf("failed to update appointment status: %w", err)
		}

		if releaseSlot {
			release := `
				UPDATE appointment_slots
				SET is_booked = FALSE, updated_at = $1
				WHERE id = $2 AND is_booked = TRUE
			`
			if _, err := tx.ExecContext(ctx, release, time.Now(), updated.SlotID); err != nil {
				return fmt.Errorf("failed to release slot: %w", err)
			}
		}

		return insertOutboxTx(ctx, tx, evt)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM appointments WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.ProviderID != nil {
			query += fmt.Sprintf(" AND provider_id = $%d", argCount)
			args = append(args, *filters.ProviderID)
			argCount++
		}
		if filters.PatientID != nil {
			query += fmt.Sprintf(" AND patient_id = $%d", argCount)
			args = append(args, *filters.PatientID)
			argCount++
		}
		if filters.SlotID != nil {
			query += fmt.Sprintf(" AND slot_id = $%d", argCount)
			args = append(args, *filters.SlotID)
			argCount++
		}
		if filters.Status != nil {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, *filters.Status)
			argCount++
		}
	}

	query += " ORDER BY created_at DESC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
