// Package memstore keeps the clinic data in process memory. It backs the
// service when STORE_DRIVER=memory and stands in for Postgres in tests.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/outbox"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

type state struct {
	doctors      map[string]model.Doctor
	availability map[string]map[time.Weekday]model.WeeklyAvailability
	patients     []model.Patient
	appointments []model.Appointment
}

func (s *state) clone() *state {
	out := &state{
		doctors:      make(map[string]model.Doctor, len(s.doctors)),
		availability: make(map[string]map[time.Weekday]model.WeeklyAvailability, len(s.availability)),
		patients:     append([]model.Patient(nil), s.patients...),
		appointments: append([]model.Appointment(nil), s.appointments...),
	}
	for k, v := range s.doctors {
		out.doctors[k] = v
	}
	for doctorID, week := range s.availability {
		w := make(map[time.Weekday]model.WeeklyAvailability, len(week))
		for d, row := range week {
			w[d] = row
		}
		out.availability[doctorID] = w
	}
	return out
}

// DefaultEventLimit bounds the events a Store retains.
const DefaultEventLimit = 10000

// Store implements store.Store. Transactions run one at a time on a copy of
// the data that replaces the live copy on commit; the copy is linear in the
// number of patients and appointments, which suits tests and local runs.
// Events are not published. Only the newest EventLimit are kept, for
// inspection through Events and DrainEvents.
type Store struct {
	txMu       sync.Mutex
	mu         sync.RWMutex
	data       *state
	events     []outbox.Event
	eventLimit int
	now        func() time.Time
	fails      map[string]error
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

// WithEventLimit caps the retained events. n <= 0 keeps none.
func WithEventLimit(n int) Option {
	return func(s *Store) { s.eventLimit = n }
}

func New(opts ...Option) *Store {
	s := &Store{
		data: &state{
			doctors:      map[string]model.Doctor{},
			availability: map[string]map[time.Weekday]model.WeeklyAvailability{},
		},
		eventLimit: DefaultEventLimit,
		now:        time.Now,
		fails:      map[string]error{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddDoctor registers a doctor, assigning an id when empty.
func (s *Store) AddDoctor(d model.Doctor) model.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	s.data.doctors[d.ID] = d
	return d
}

// SetAvailability upserts rows without the replace-all semantics of Tx.
func (s *Store) SetAvailability(rows ...model.WeeklyAvailability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		week := s.data.availability[row.DoctorID]
		if week == nil {
			week = map[time.Weekday]model.WeeklyAvailability{}
			s.data.availability[row.DoctorID] = week
		}
		week[row.DayOfWeek] = row
	}
}

// AddAppointment inserts a row as-is, bypassing booking rules.
func (s *Store) AddAppointment(a model.Appointment) model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.data.appointments = append(s.data.appointments, a)
	return a
}

// FailOn makes the named Tx operation (e.g. "CreateAppointment") return err
// until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fails, op)
		return
	}
	s.fails[op] = err
}

func (s *Store) Patients() []model.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Patient(nil), s.data.patients...)
}

func (s *Store) Appointments() []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Appointment(nil), s.data.appointments...)
}

func (s *Store) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Event(nil), s.events...)
}

// DrainEvents returns the retained events and forgets them.
func (s *Store) DrainEvents() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.events
	s.events = nil
	return out
}

func (s *Store) GetDoctor(_ context.Context, doctorID string) (model.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data.doctors[doctorID]
	if !ok {
		return model.Doctor{}, model.ErrNotFound
	}
	return d, nil
}

func (s *Store) GetWeeklyAvailability(_ context.Context, doctorID string, day time.Weekday) (model.WeeklyAvailability, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.data.availability[doctorID][day]
	return row, ok, nil
}

func (s *Store) ListWeeklyAvailability(_ context.Context, doctorID string) ([]model.WeeklyAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.WeeklyAvailability
	for _, row := range s.data.availability[doctorID] {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (s *Store) ListNonCancelledAppointments(_ context.Context, doctorID string, from, to time.Time) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Appointment
	for _, a := range s.data.appointments {
		if a.DoctorID != doctorID || a.Status == model.StatusCancelled {
			continue
		}
		if a.StartTime.Before(from) || a.StartTime.After(to) {
			continue
		}
		out = append(out, a)
	}
	sortByStart(out)
	return out, nil
}

func (s *Store) ListAppointments(_ context.Context, clinicID, doctorID string, from, to time.Time) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Appointment
	for _, a := range s.data.appointments {
		if a.ClinicID != clinicID || (doctorID != "" && a.DoctorID != doctorID) {
			continue
		}
		if a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		out = append(out, a)
	}
	sortByStart(out)
	return out, nil
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := &tx{state: s.data.clone(), fails: maps.Clone(s.fails)}
	s.mu.RUnlock()

	if err := fn(ctx, work); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work.state
	s.events = append(s.events, work.events...)
	if over := len(s.events) - max(s.eventLimit, 0); over > 0 {
		s.events = append([]outbox.Event(nil), s.events[over:]...)
	}
	s.mu.Unlock()
	return nil
}

func sortByStart(appts []model.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool { return appts[i].StartTime.Before(appts[j].StartTime) })
}
