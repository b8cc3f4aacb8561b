package appointment

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/metrics"
)

// Shared across tests; prometheus collectors register globally and must
// only be created once per test binary.
var testMetrics = metrics.NewMetrics("test", "appointmentsvc")

// store backs all three repository fakes with one mutex, so the booking
// fake can reserve the slot and insert the appointment as a single
// critical section, the way the real transaction does.
type store struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]*model.Account
	slots        map[uuid.UUID]*model.Slot
	appointments map[uuid.UUID]*model.Appointment
	events       []*model.OutboxEvent

	// afterGet, when set, runs after each appointment read. Tests use it to
	// hold concurrent transitions at the widest point of the read-validate-
	// write window.
	afterGet func()
}

func newStore() *store {
	return &store{
		accounts:     make(map[uuid.UUID]*model.Account),
		slots:        make(map[uuid.UUID]*model.Slot),
		appointments: make(map[uuid.UUID]*model.Appointment),
	}
}

func (s *store) addAccount(role model.AccountRole) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.accounts[id] = &model.Account{Base: model.Base{ID: id}, Role: role}
	return id
}

func (s *store) addSlot(providerID uuid.UUID, offsetH int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	start := time.Now().Add(time.Duration(offsetH) * time.Hour)
	s.slots[id] = &model.Slot{
		Base:       model.Base{ID: id},
		ProviderID: providerID,
		StartTime:  start,
		EndTime:    start.Add(30 * time.Minute),
	}
	return id
}

func (s *store) slotBooked(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[id].Booked
}

func (s *store) activeBySlot(slotID uuid.UUID) *model.Appointment {
	for _, apt := range s.appointments {
		if apt.SlotID == slotID && !apt.Status.ReleasesSlot() {
			return apt
		}
	}
	return nil
}

type accountRepoFake struct{ *store }

func (f accountRepoFake) Create(ctx context.Context, account *model.Account) error { return nil }

func (f accountRepoFake) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil, errors.NotFound("account")
	}
	cp := *account
	return &cp, nil
}

func (f accountRepoFake) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return nil, errors.NotFound("account")
}

func (f accountRepoFake) Update(ctx context.Context, account *model.Account) error { return nil }
func (f accountRepoFake) Delete(ctx context.Context, id uuid.UUID) error           { return nil }

func (f accountRepoFake) List(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error) {
	return nil, nil
}

type slotRepoFake struct{ *store }

func (f slotRepoFake) Create(ctx context.Context, slot *model.Slot) error { return nil }

func (f slotRepoFake) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[id]
	if !ok {
		return nil, errors.NotFound("slot")
	}
	cp := *slot
	return &cp, nil
}

func (f slotRepoFake) Update(ctx context.Context, slot *model.Slot) error { return nil }
func (f slotRepoFake) Delete(ctx context.Context, id uuid.UUID) error     { return nil }

func (f slotRepoFake) List(ctx context.Context, filters *model.SlotFilters) ([]*model.Slot, error) {
	return nil, nil
}

func (f slotRepoFake) FirstAvailable(ctx context.Context, providerID uuid.UUID) (*model.Slot, error) {
	return nil, errors.NotFound("available slot")
}

type appointmentRepoFake struct{ *store }

func (f appointmentRepoFake) Book(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, ok := f.slots[apt.SlotID]
	if !ok {
		return errors.NotFound("slot")
	}
	if slot.Booked || f.activeBySlot(apt.SlotID) != nil {
		return errors.Conflict("slot already booked")
	}

	slot.Booked = true
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt
	cp := *apt
	f.appointments[apt.ID] = &cp
	f.events = append(f.events, evt)
	return nil
}

func (f appointmentRepoFake) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	apt, ok := f.appointments[id]
	if !ok {
		f.mu.Unlock()
		return nil, errors.NotFound("appointment")
	}
	cp := *apt
	f.mu.Unlock()

	if f.afterGet != nil {
		f.afterGet()
	}
	return &cp, nil
}

func (f appointmentRepoFake) GetBySlot(ctx context.Context, slotID uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.Appointment
	for _, apt := range f.appointments {
		if apt.SlotID != slotID {
			continue
		}
		if latest == nil || apt.CreatedAt.After(latest.CreatedAt) {
			latest = apt
		}
	}
	if latest == nil {
		return nil, errors.NotFound("appointment")
	}
	cp := *latest
	return &cp, nil
}

// UpdateStatus mirrors the compare-and-set UPDATE: the write only applies
// while the stored status still matches what the caller validated against.
func (f appointmentRepoFake) UpdateStatus(ctx context.Context, id uuid.UUID, current, next model.AppointmentStatus, releaseSlot bool, evt *model.OutboxEvent) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apt, ok := f.appointments[id]
	if !ok {
		return nil, errors.NotFound("appointment")
	}
	if apt.Status != current {
		return nil, errors.InvalidTransition(string(apt.Status), string(next))
	}
	apt.Status = next
	apt.UpdatedAt = time.Now()
	if releaseSlot {
		if slot, ok := f.slots[apt.SlotID]; ok {
			slot.Booked = false
		}
	}
	f.events = append(f.events, evt)
	cp := *apt
	return &cp, nil
}

func (f appointmentRepoFake) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appointments[id]; !ok {
		return errors.NotFound("appointment")
	}
	delete(f.appointments, id)
	return nil
}

func (f appointmentRepoFake) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range f.appointments {
		if filters != nil {
			if filters.ProviderID != nil && apt.ProviderID != *filters.ProviderID {
				continue
			}
			if filters.PatientID != nil && apt.PatientID != *filters.PatientID {
				continue
			}
			if filters.SlotID != nil && apt.SlotID != *filters.SlotID {
				continue
			}
			if filters.Status != nil && apt.Status != *filters.Status {
				continue
			}
		}
		cp := *apt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fixture struct {
	svc      *Service
	store    *store
	provider uuid.UUID
	patient  uuid.UUID
	slotID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newStore()
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	svc := NewService(appointmentRepoFake{st}, slotRepoFake{st}, accountRepoFake{st}, log, testMetrics)
	provider := st.addAccount(model.AccountRoleProvider)
	return &fixture{
		svc:      svc,
		store:    st,
		provider: provider,
		patient:  st.addAccount(model.AccountRolePatient),
		slotID:   st.addSlot(provider, 24),
	}
}

func (f *fixture) book(t *testing.T) *model.Appointment {
	t.Helper()
	apt, err := f.svc.Book(context.Background(), &model.BookAppointmentRequest{
		ProviderID: f.provider,
		PatientID:  f.patient,
		SlotID:     f.slotID,
	})
	require.NoError(t, err)
	return apt
}

func TestBookAppointment(t *testing.T) {
	f := newFixture(t)

	apt := f.book(t)
	assert.NotEqual(t, uuid.Nil, apt.ID)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, f.slotID, apt.SlotID)
	assert.True(t, f.store.slotBooked(f.slotID))

	// Booking writes its outbox event alongside the appointment.
	require.Len(t, f.store.events, 1)
	assert.Equal(t, model.EventAppointmentBooked, f.store.events[0].EventType)
}

func TestBookValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown provider", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
			ProviderID: uuid.New(), PatientID: f.patient, SlotID: f.slotID,
		})
		assert.EqualError(t, err, "provider not found")
	})

	t.Run("unknown patient", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
			ProviderID: f.provider, PatientID: uuid.New(), SlotID: f.slotID,
		})
		assert.EqualError(t, err, "patient not found")
	})

	t.Run("roles are not interchangeable", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
			ProviderID: f.patient, PatientID: f.patient, SlotID: f.slotID,
		})
		assert.EqualError(t, err, "provider not found")
	})

	t.Run("unknown slot", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
			ProviderID: f.provider, PatientID: f.patient, SlotID: uuid.New(),
		})
		assert.EqualError(t, err, "slot not found")
	})

	t.Run("slot owned by another provider", func(t *testing.T) {
		f := newFixture(t)
		other := f.store.addAccount(model.AccountRoleProvider)
		otherSlot := f.store.addSlot(other, 24)
		_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
			ProviderID: f.provider, PatientID: f.patient, SlotID: otherSlot,
		})
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("already booked slot", func(t *testing.T) {
		f := newFixture(t)
		f.book(t)
		_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
			ProviderID: f.provider, PatientID: f.patient, SlotID: f.slotID,
		})
		assert.True(t, errors.IsConflict(err))
	})
}

// TestBookConcurrent races many bookings for one slot. Exactly one must win;
// every loser must observe Conflict, never a partial write.
func TestBookConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 32
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
				ProviderID: f.provider,
				PatientID:  f.patient,
				SlotID:     f.slotID,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.IsConflict(err):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)
	assert.True(t, f.store.slotBooked(f.slotID))
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("approve keeps slot reserved", func(t *testing.T) {
		f := newFixture(t)
		apt := f.book(t)

		updated, err := f.svc.UpdateStatus(ctx, apt.ID, "APPROVED")
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusApproved, updated.Status)
		assert.True(t, f.store.slotBooked(f.slotID))
	})

	t.Run("cancel releases slot", func(t *testing.T) {
		f := newFixture(t)
		apt := f.book(t)

		updated, err := f.svc.UpdateStatus(ctx, apt.ID, "CANCELED")
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusCanceled, updated.Status)
		assert.False(t, f.store.slotBooked(f.slotID))

		require.Len(t, f.store.events, 2)
		assert.Equal(t, model.EventAppointmentStatusChanged, f.store.events[1].EventType)
	})

	t.Run("reject releases slot", func(t *testing.T) {
		f := newFixture(t)
		apt := f.book(t)

		_, err := f.svc.UpdateStatus(ctx, apt.ID, "REJECTED")
		require.NoError(t, err)
		assert.False(t, f.store.slotBooked(f.slotID))
	})

	t.Run("approved appointment can be canceled", func(t *testing.T) {
		f := newFixture(t)
		apt := f.book(t)

		_, err := f.svc.UpdateStatus(ctx, apt.ID, "APPROVED")
		require.NoError(t, err)
		_, err = f.svc.UpdateStatus(ctx, apt.ID, "CANCELED")
		require.NoError(t, err)
		assert.False(t, f.store.slotBooked(f.slotID))
	})

	t.Run("double cancel is rejected", func(t *testing.T) {
		f := newFixture(t)
		apt := f.book(t)

		_, err := f.svc.UpdateStatus(ctx, apt.ID, "CANCELED")
		require.NoError(t, err)
		_, err = f.svc.UpdateStatus(ctx, apt.ID, "CANCELED")
		assert.True(t, errors.IsInvalidTransition(err))
	})

	t.Run("terminal states reject everything", func(t *testing.T) {
		f := newFixture(t)
		apt := f.book(t)

		_, err := f.svc.UpdateStatus(ctx, apt.ID, "REJECTED")
		require.NoError(t, err)

		for _, next := range []string{"PENDING", "APPROVED", "REJECTED", "CANCELED"} {
			_, err := f.svc.UpdateStatus(ctx, apt.ID, next)
			assert.True(t, errors.IsInvalidTransition(err), "REJECTED -> %s", next)
		}
	})

	t.Run("unknown status names the input", func(t *testing.T) {
		f := newFixture(t)
		apt := f.book(t)

		_, err := f.svc.UpdateStatus(ctx, apt.ID, "DONE")
		require.True(t, errors.IsValidation(err))
		assert.Contains(t, err.Error(), "DONE")
	})

	t.Run("unknown appointment", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.UpdateStatus(ctx, uuid.New(), "APPROVED")
		assert.True(t, errors.IsNotFound(err))
	})
}

// TestUpdateStatusConcurrent forces two transitions of the same appointment
// past the read before either writes. The compare-and-set in the repository
// must let exactly one through; the loser sees InvalidTransition and the
// slot state matches the winner.
func TestUpdateStatusConcurrent(t *testing.T) {
	ctx := context.Background()

	race := func(t *testing.T, first, second string) (error, error) {
		t.Helper()
		f := newFixture(t)
		apt := f.book(t)

		var barrier sync.WaitGroup
		barrier.Add(2)
		f.store.afterGet = func() {
			barrier.Done()
			barrier.Wait()
		}

		errs := make(chan error, 2)
		go func() {
			_, err := f.svc.UpdateStatus(ctx, apt.ID, first)
			errs <- err
		}()
		go func() {
			_, err := f.svc.UpdateStatus(ctx, apt.ID, second)
			errs <- err
		}()
		return <-errs, <-errs
	}

	t.Run("double cancel", func(t *testing.T) {
		err1, err2 := race(t, "CANCELED", "CANCELED")
		if err1 == nil {
			assert.True(t, errors.IsInvalidTransition(err2))
		} else {
			assert.True(t, errors.IsInvalidTransition(err1))
			assert.NoError(t, err2)
		}
	})

	t.Run("reject racing approve", func(t *testing.T) {
		f := newFixture(t)
		apt := f.book(t)

		var barrier sync.WaitGroup
		barrier.Add(2)
		f.store.afterGet = func() {
			barrier.Done()
			barrier.Wait()
		}

		errs := make(chan error, 2)
		go func() {
			_, err := f.svc.UpdateStatus(ctx, apt.ID, "REJECTED")
			errs <- err
		}()
		go func() {
			_, err := f.svc.UpdateStatus(ctx, apt.ID, "APPROVED")
			errs <- err
		}()
		err1, err2 := <-errs, <-errs

		var won, lost int
		for _, err := range []error{err1, err2} {
			if err == nil {
				won++
			} else if errors.IsInvalidTransition(err) {
				lost++
			}
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, 1, lost)

		// The slot reflects the winner: released iff the stored status
		// releases it. An approved appointment never loses its slot to a
		// losing reject.
		f.store.afterGet = nil
		final, err := f.svc.GetAppointment(ctx, apt.ID)
		require.NoError(t, err)
		assert.Equal(t, !final.Status.ReleasesSlot(), f.store.slotBooked(f.slotID))
	})
}

// A released slot accepts a fresh booking; the canceled appointment stays
// on record.
func TestRebookAfterRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.book(t)
	_, err := f.svc.UpdateStatus(ctx, first.ID, "CANCELED")
	require.NoError(t, err)
	require.False(t, f.store.slotBooked(f.slotID))

	second, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		ProviderID: f.provider,
		PatientID:  f.patient,
		SlotID:     f.slotID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, f.store.slotBooked(f.slotID))

	kept, err := f.svc.GetAppointment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCanceled, kept.Status)
}

// Deleting an appointment removes the record only. The slot keeps its
// reservation; freeing it requires a releasing transition first.
func TestDeleteAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt := f.book(t)
	require.NoError(t, f.svc.DeleteAppointment(ctx, apt.ID))

	_, err := f.svc.GetAppointment(ctx, apt.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, f.store.slotBooked(f.slotID))

	t.Run("unknown appointment", func(t *testing.T) {
		err := f.svc.DeleteAppointment(ctx, uuid.New())
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestListAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt := f.book(t)

	otherSlot := f.store.addSlot(f.provider, 48)
	second, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		ProviderID: f.provider, PatientID: f.patient, SlotID: otherSlot,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, second.ID, "CANCELED")
	require.NoError(t, err)

	t.Run("by provider", func(t *testing.T) {
		apts, err := f.svc.ListAppointments(ctx, &model.AppointmentFilters{ProviderID: &f.provider})
		require.NoError(t, err)
		assert.Len(t, apts, 2)
	})

	t.Run("by status", func(t *testing.T) {
		status := model.AppointmentStatusPending
		apts, err := f.svc.ListAppointments(ctx, &model.AppointmentFilters{Status: &status})
		require.NoError(t, err)
		require.Len(t, apts, 1)
		assert.Equal(t, apt.ID, apts[0].ID)
	})

	t.Run("unknown provider filter", func(t *testing.T) {
		id := uuid.New()
		_, err := f.svc.ListAppointments(ctx, &model.AppointmentFilters{ProviderID: &id})
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestFindBySlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt := f.book(t)

	found, err := f.svc.FindBySlot(ctx, f.slotID)
	require.NoError(t, err)
	assert.Equal(t, apt.ID, found.ID)

	t.Run("unknown slot", func(t *testing.T) {
		_, err := f.svc.FindBySlot(ctx, uuid.New())
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("slot without appointment", func(t *testing.T) {
		free := f.store.addSlot(f.provider, 72)
		_, err := f.svc.FindBySlot(ctx, free)
		assert.True(t, errors.IsNotFound(err))
	})
}
