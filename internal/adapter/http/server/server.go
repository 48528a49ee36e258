package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/caronahq/carona-system/config"
	"github.com/caronahq/carona-system/internal/adapter/http/handler"
	"github.com/caronahq/carona-system/internal/adapter/http/middleware"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	ws "github.com/caronahq/carona-system/pkg/wsHub"
)

const serverIPAddress = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	auth   *handler.Auth
	ride   *handler.Ride
	roster *handler.Roster
	rating *handler.Rating
	chat   *handler.Chat
	report *handler.Report
	feed   *handler.RideFeed
	health *handler.Health
}

func New(
	cfg config.Config,
	authService handler.AuthService,
	rideService handler.RideService,
	rosterService handler.RosterService,
	ratingService handler.RatingService,
	chatService handler.ChatService,
	reportService handler.ReportService,
	connections *ws.ConnectionHub,
	log logger.Logger,
) (*API, error) {
	if authService == nil {
		return nil, errors.New("auth service is required")
	}

	routes := &handlers{
		auth:   handler.NewAuth(authService, log),
		ride:   handler.NewRide(rideService, log),
		roster: handler.NewRoster(rosterService, log),
		rating: handler.NewRating(ratingService, log),
		chat:   handler.NewChat(chatService, log),
		report: handler.NewReport(reportService, log),
		feed:   handler.NewRideFeed(rosterService, connections, log),
		health: handler.NewHealth(cfg.Server.Name, log),
	}

	mid := middleware.NewMiddleware(authService, log)

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      mid,
		addr:   fmt.Sprintf(serverIPAddress, cfg.Server.Host, cfg.Server.Port),
		cfg:    cfg,
		log:    log,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	chain := a.m.Auth(a.mux)
	chain = a.m.Metrics(a.cfg.Server.Name)(chain)
	chain = a.m.Logging(chain)
	chain = a.m.RequestID(chain)
	return a.m.Recover(chain)
}
