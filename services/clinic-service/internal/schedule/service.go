// Package schedule saves and reads a doctor's weekly working hours.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

// Values stored on days the request leaves out. They are never used to
// produce slots because those rows are inactive.
const (
	defaultStart    model.ClockTime = 10 * 60
	defaultEnd      model.ClockTime = 17 * 60
	defaultDuration                 = 30
)

type Service struct {
	store  store.Store
	logger *slog.Logger
}

func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// Replace overwrites the doctor's whole week. The stored week always has
// seven rows: days missing from days are written inactive, so an inactive
// row and a missing row never need to be told apart.
func (s *Service) Replace(ctx context.Context, clinicID, doctorID string, days []model.WeeklyAvailability) ([]model.WeeklyAvailability, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return nil, fmt.Errorf("%w: doctor_id is required", model.ErrInvalidArgument)
	}
	if err := s.checkDoctor(ctx, clinicID, doctorID); err != nil {
		return nil, err
	}

	var week [7]*model.WeeklyAvailability
	for i := range days {
		d := days[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if week[d.DayOfWeek] != nil {
			return nil, fmt.Errorf("%w: %s given twice", model.ErrInvalidArgument, d.DayOfWeek)
		}
		d.DoctorID = doctorID
		week[d.DayOfWeek] = &d
	}

	rows := make([]model.WeeklyAvailability, 0, len(week))
	for day, row := range week {
		if row == nil {
			row = &model.WeeklyAvailability{
				DayOfWeek:           time.Weekday(day),
				StartTime:           defaultStart,
				EndTime:             defaultEnd,
				SlotDurationMinutes: defaultDuration,
			}
		}
		row.DoctorID = doctorID
		rows = append(rows, *row)
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.ReplaceWeeklyAvailability(ctx, doctorID, rows)
	})
	if err != nil {
		return nil, &model.PersistenceError{Op: "replace weekly availability", Err: err}
	}
	s.logger.Info("weekly availability saved", "doctor_id", doctorID, "active_days", activeDays(rows))
	return rows, nil
}

// Week returns the stored rows ordered Sunday to Saturday.
func (s *Service) Week(ctx context.Context, clinicID, doctorID string) ([]model.WeeklyAvailability, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return nil, fmt.Errorf("%w: doctor_id is required", model.ErrInvalidArgument)
	}
	if err := s.checkDoctor(ctx, clinicID, doctorID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListWeeklyAvailability(ctx, doctorID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "list weekly availability", Err: err}
	}
	return rows, nil
}

func (s *Service) checkDoctor(ctx context.Context, clinicID, doctorID string) error {
	doc, err := s.store.GetDoctor(ctx, doctorID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && clinicID != "" && doc.ClinicID != clinicID) {
		return fmt.Errorf("%w: doctor %s", model.ErrNotFound, doctorID)
	}
	if err != nil {
		return &model.PersistenceError{Op: "get doctor", Err: err}
	}
	return nil
}

func activeDays(rows []model.WeeklyAvailability) int {
	n := 0
	for _, r := range rows {
		if r.IsActive {
			n++
		}
	}
	return n
}
