package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/medbook/booking-api/internal/repository"
)

type accountRepository struct {
	BaseRepository
}

type slotRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

func NewAccountRepository(db *sqlx.DB) repository.AccountRepository {
	return &accountRepository{NewBaseRepository(db)}
}

func NewSlotRepository(db *sqlx.DB) repository.SlotRepository {
	return &slotRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}
