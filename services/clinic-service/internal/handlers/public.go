package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/clinicflow/clinicflow/libs/httpx"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/booking"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
)

// SlotLister is the read side used by the public booking pages.
type SlotLister interface {
	AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error)
	Location() *time.Location
}

type Booker interface {
	Book(ctx context.Context, req booking.BookingRequest) (booking.BookingResult, error)
}

// PublicHandler serves unauthenticated patients picking and booking a slot.
type PublicHandler struct {
	slots  SlotLister
	booker Booker
	logger *slog.Logger
}

func NewPublicHandler(slots SlotLister, booker Booker, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{slots: slots, booker: booker, logger: logger}
}

type slotsResponse struct {
	DoctorID string   `json:"doctor_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

type bookRequest struct {
	DoctorID        string `json:"doctor_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PatientFullName string `json:"patient_full_name"`
	PatientPhone    string `json:"patient_phone"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	Status        string `json:"status"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	doctorID, date := q.Get("doctor_id"), q.Get("date")

	slots, err := h.slots.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{DoctorID: doctorID, Date: date, Slots: slots})
}

func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.booker.Book(r.Context(), booking.BookingRequest{
		DoctorID:        req.DoctorID,
		Date:            req.Date,
		Time:            req.Time,
		PatientFullName: req.PatientFullName,
		PatientPhone:    req.PatientPhone,
		AppointmentType: model.TypeOnline,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newBookResponse(res, model.StatusBooked, h.slots.Location()))
}

func newBookResponse(res booking.BookingResult, status model.AppointmentStatus, loc *time.Location) bookResponse {
	return bookResponse{
		AppointmentID: res.AppointmentID,
		PatientID:     res.PatientID,
		Status:        string(status),
		StartTime:     res.StartTime.In(loc).Format(time.RFC3339),
		EndTime:       res.EndTime.In(loc).Format(time.RFC3339),
	}
}
