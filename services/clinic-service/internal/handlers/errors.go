package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/clinicflow/clinicflow/libs/httpx"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
)

// statusFor maps core errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrSlotConflict), errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrDayUnavailable), errors.Is(err, model.ErrInvalidConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": msg}. Persistence failures keep their
// message so the caller can show it.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
	}
	httpx.WriteError(w, status, err.Error())
}
