package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clinicflow/clinicflow/libs/auth"
	"github.com/clinicflow/clinicflow/libs/httpx"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/booking"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
)

type AppointmentService interface {
	Booker
	RegisterWalkIn(ctx context.Context, req booking.WalkInRequest) (booking.BookingResult, error)
	Cancel(ctx context.Context, clinicID, appointmentID, reason string) (model.Appointment, error)
	Complete(ctx context.Context, clinicID, appointmentID string) (model.Appointment, error)
	Appointments(ctx context.Context, clinicID, doctorID, date string) ([]model.Appointment, error)
}

type ScheduleService interface {
	Replace(ctx context.Context, clinicID, doctorID string, days []model.WeeklyAvailability) ([]model.WeeklyAvailability, error)
	Week(ctx context.Context, clinicID, doctorID string) ([]model.WeeklyAvailability, error)
}

// Clock supplies the clinic's current time and location.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// StaffHandler serves clinic staff. Every route runs behind auth.RequireAuth
// and is scoped to the clinic named in the token.
type StaffHandler struct {
	appointments AppointmentService
	schedule     ScheduleService
	clock        Clock
	loc          *time.Location
	logger       *slog.Logger
}

func NewStaffHandler(appointments AppointmentService, schedule ScheduleService, clock Clock, logger *slog.Logger) *StaffHandler {
	return &StaffHandler{appointments: appointments, schedule: schedule, clock: clock, loc: clock.Location(), logger: logger}
}

type staffBookRequest struct {
	DoctorID        string `json:"doctor_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PatientFullName string `json:"patient_full_name"`
	PatientPhone    string `json:"patient_phone"`
	AppointmentType string `json:"appointment_type"`
}

type walkInRequest struct {
	DoctorID        string `json:"doctor_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PatientFullName string `json:"patient_full_name"`
	PatientPhone    string `json:"patient_phone"`
}

type transitionRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type appointmentItem struct {
	AppointmentID   string `json:"appointment_id"`
	DoctorID        string `json:"doctor_id"`
	PatientID       string `json:"patient_id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Status          string `json:"status"`
	AppointmentType string `json:"appointment_type"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

type listAppointmentsResponse struct {
	Date         string            `json:"date"`
	Appointments []appointmentItem `json:"appointments"`
}

type availabilityDay struct {
	DayOfWeek           int    `json:"day_of_week"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
	IsActive            bool   `json:"is_active"`
}

type availabilityRequest struct {
	Days []availabilityDay `json:"days"`
}

type availabilityResponse struct {
	DoctorID string            `json:"doctor_id"`
	Days     []availabilityDay `json:"days"`
}

// Appointments lists a day's appointments (GET) or books one for a patient
// at the front desk (POST).
func (h *StaffHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.book(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *StaffHandler) list(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	q := r.URL.Query()
	date := q.Get("date")
	if strings.TrimSpace(date) == "" {
		date = h.clock.Now().In(h.loc).Format("2006-01-02")
	}

	appts, err := h.appointments.Appointments(r.Context(), claims.ClinicID, q.Get("doctor_id"), date)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, h.item(a))
	}
	httpx.WriteJSON(w, http.StatusOK, listAppointmentsResponse{Date: date, Appointments: items})
}

func (h *StaffHandler) book(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	var req staffBookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	apptType := model.AppointmentType(strings.TrimSpace(req.AppointmentType))
	if apptType == "" {
		apptType = model.TypeInClinic
	}

	res, err := h.appointments.Book(r.Context(), booking.BookingRequest{
		ClinicID:        claims.ClinicID,
		DoctorID:        req.DoctorID,
		Date:            req.Date,
		Time:            req.Time,
		PatientFullName: req.PatientFullName,
		PatientPhone:    req.PatientPhone,
		AppointmentType: apptType,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newBookResponse(res, model.StatusBooked, h.loc))
}

func (h *StaffHandler) WalkIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims := mustClaims(r)
	var req walkInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.appointments.RegisterWalkIn(r.Context(), booking.WalkInRequest{
		ClinicID:        claims.ClinicID,
		DoctorID:        req.DoctorID,
		Date:            req.Date,
		Time:            req.Time,
		PatientFullName: req.PatientFullName,
		PatientPhone:    req.PatientPhone,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newBookResponse(res, model.StatusCompleted, h.loc))
}

func (h *StaffHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, clinicID string, req transitionRequest) (model.Appointment, error) {
		return h.appointments.Cancel(ctx, clinicID, req.AppointmentID, req.Reason)
	})
}

func (h *StaffHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, clinicID string, req transitionRequest) (model.Appointment, error) {
		return h.appointments.Complete(ctx, clinicID, req.AppointmentID)
	})
}

func (h *StaffHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, transitionRequest) (model.Appointment, error)) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims := mustClaims(r)
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := apply(r.Context(), claims.ClinicID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.item(appt))
}

// Availability reads (GET) or replaces (PUT) a doctor's weekly hours. A
// doctor may only change their own week.
func (h *StaffHandler) Availability(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	if doctorID == "" && claims.Role == auth.RoleDoctor {
		doctorID = claims.DoctorID
	}

	switch r.Method {
	case http.MethodGet:
		week, err := h.schedule.Week(r.Context(), claims.ClinicID, doctorID)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, availabilityResponse{DoctorID: doctorID, Days: toDays(week)})
	case http.MethodPut:
		switch claims.Role {
		case auth.RoleOwner:
		case auth.RoleDoctor:
			if claims.DoctorID != doctorID {
				httpx.WriteError(w, http.StatusForbidden, "doctors may only edit their own availability")
				return
			}
		default:
			httpx.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}
		var req availabilityRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		days, err := fromDays(req.Days)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		week, err := h.schedule.Replace(r.Context(), claims.ClinicID, doctorID, days)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, availabilityResponse{DoctorID: doctorID, Days: toDays(week)})
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *StaffHandler) item(a model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID:   a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		StartTime:       a.StartTime.In(h.loc).Format(time.RFC3339),
		EndTime:         a.EndTime.In(h.loc).Format(time.RFC3339),
		Status:          string(a.Status),
		AppointmentType: string(a.AppointmentType),
		CancelReason:    a.CancelReason,
	}
	if a.CancelledAt != nil {
		item.CancelledAt = a.CancelledAt.In(h.loc).Format(time.RFC3339)
	}
	if a.CompletedAt != nil {
		item.CompletedAt = a.CompletedAt.In(h.loc).Format(time.RFC3339)
	}
	return item
}

func toDays(rows []model.WeeklyAvailability) []availabilityDay {
	days := make([]availabilityDay, 0, len(rows))
	for _, row := range rows {
		days = append(days, availabilityDay{
			DayOfWeek:           int(row.DayOfWeek),
			StartTime:           row.StartTime.String(),
			EndTime:             row.EndTime.String(),
			SlotDurationMinutes: row.SlotDurationMinutes,
			IsActive:            row.IsActive,
		})
	}
	return days
}

// fromDays parses request rows. Inactive rows may leave times blank.
func fromDays(days []availabilityDay) ([]model.WeeklyAvailability, error) {
	rows := make([]model.WeeklyAvailability, 0, len(days))
	for _, d := range days {
		row := model.WeeklyAvailability{
			DayOfWeek:           time.Weekday(d.DayOfWeek),
			SlotDurationMinutes: d.SlotDurationMinutes,
			IsActive:            d.IsActive,
		}
		if d.IsActive || d.StartTime != "" || d.EndTime != "" {
			start, err := model.ParseClock(d.StartTime)
			if err != nil {
				return nil, fmt.Errorf("day %d start_time: %w", d.DayOfWeek, err)
			}
			end, err := model.ParseClock(d.EndTime)
			if err != nil {
				return nil, fmt.Errorf("day %d end_time: %w", d.DayOfWeek, err)
			}
			row.StartTime, row.EndTime = start, end
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// mustClaims is only called behind auth.RequireAuth.
func mustClaims(r *http.Request) *auth.Claims {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		panic("handlers: staff route without auth.RequireAuth")
	}
	return claims
}
