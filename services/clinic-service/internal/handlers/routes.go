package handlers

import (
	"net/http"

	"github.com/clinicflow/clinicflow/libs/auth"
	"github.com/clinicflow/clinicflow/libs/httpx"
)

// Register mounts the public and staff routes on mux. public wraps the
// unauthenticated routes, typically with a rate limiter.
func Register(mux *http.ServeMux, pub *PublicHandler, staff *StaffHandler, jwtSecret string, public ...httpx.Middleware) {
	mux.Handle("/api/v1/public/slots", httpx.Chain(http.HandlerFunc(pub.Slots), public...))
	mux.Handle("/api/v1/public/book", httpx.Chain(http.HandlerFunc(pub.Book), public...))

	staffRoute := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(auth.RequireRole(h, auth.RoleOwner, auth.RoleDoctor, auth.RoleAssistant), jwtSecret)
	}
	mux.Handle("/api/v1/appointments", staffRoute(staff.Appointments))
	mux.Handle("/api/v1/appointments/walk-in", staffRoute(staff.WalkIn))
	mux.Handle("/api/v1/appointments/cancel", staffRoute(staff.Cancel))
	mux.Handle("/api/v1/appointments/complete", staffRoute(staff.Complete))
	mux.Handle("/api/v1/doctors/availability", staffRoute(staff.Availability))
}
