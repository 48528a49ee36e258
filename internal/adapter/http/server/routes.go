package server

import (
	"net/http"

	"github.com/caronahq/carona-system/internal/adapter/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("/health", a.routes.health.HealthCheck)

	setupSwaggerRoutes(a.mux)
	setupMetricsRoute(a.mux)

	setupAuthRoutes(a.mux, a.routes, a.m)
	setupRideRoutes(a.mux, a.routes, a.m)
	setupReportRoutes(a.mux, a.routes, a.m)
}

func setupAuthRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.HandleFunc("POST /auth/register", routes.auth.Register)
	mux.HandleFunc("POST /auth/login", routes.auth.Login)
	mux.HandleFunc("POST /auth/refresh", routes.auth.Refresh)
	mux.Handle("GET /auth/me", m.RequireSession(routes.auth.Profile))
}

// setupRideRoutes setups the ride marketplace routes. Literal path
// segments (offered, taken, history) take precedence over {ride_id}
// in the mux, so the roster routes can live next to the ride ones.
func setupRideRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.HandleFunc("GET /rides", routes.roster.Available)                       // List rides open for reservation
	mux.Handle("POST /rides", m.RequireSession(routes.ride.Create))             // Offer a new ride
	mux.Handle("GET /rides/offered", m.RequireSession(routes.roster.Offered))   // Rides the caller drives
	mux.Handle("GET /rides/taken", m.RequireSession(routes.roster.Taken))       // Rides the caller reserved
	mux.Handle("GET /rides/history", m.RequireSession(routes.roster.History))   // Every ride the caller took part in
	mux.HandleFunc("GET /rides/{ride_id}", routes.ride.Get)                     // Fetch a single ride
	mux.Handle("DELETE /rides/{ride_id}", m.RequireSession(routes.ride.Delete)) // Withdraw an offered ride

	mux.Handle("POST /rides/{ride_id}/reserve", m.RequireSession(routes.ride.Reserve))   // Take a seat
	mux.Handle("POST /rides/{ride_id}/cancel", m.RequireSession(routes.ride.Cancel))     // Give a seat back
	mux.Handle("POST /rides/{ride_id}/complete", m.RequireSession(routes.ride.Complete)) // Driver marks the ride done

	mux.Handle("GET /rides/{ride_id}/rating", m.RequireSession(routes.rating.CanRate)) // Ask whether the caller may rate
	mux.Handle("POST /rides/{ride_id}/rating", m.RequireSession(routes.rating.Submit)) // Submit a one-shot rating

	mux.Handle("GET /rides/{ride_id}/messages", m.RequireSession(routes.chat.List)) // Ride chat, participants only
	mux.Handle("POST /rides/{ride_id}/messages", m.RequireSession(routes.chat.Send))

	mux.HandleFunc("GET /ws/rides", routes.feed.Available) // WebSocket feed of available rides
	mux.HandleFunc("GET /ws/history", routes.feed.History) // WebSocket feed of the caller's history
}

func setupReportRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /reports", m.RequireSession(routes.report.Submit))
	mux.Handle("GET /admin/reports", m.RequireAdmin(routes.report.ListOpen))
	mux.Handle("POST /admin/reports/{report_id}/close", m.RequireAdmin(routes.report.Close))
}

// setupSwaggerRoutes configures the Swagger UI endpoint
func setupSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger/", httpSwagger.Handler())
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
