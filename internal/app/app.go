package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caronahq/carona-system/config"
	httpserver "github.com/caronahq/carona-system/internal/adapter/http/server"
	"github.com/caronahq/carona-system/internal/adapter/postgres"
	"github.com/caronahq/carona-system/internal/adapter/rabbit"
	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/service/auth"
	"github.com/caronahq/carona-system/internal/service/chat"
	"github.com/caronahq/carona-system/internal/service/rating"
	"github.com/caronahq/carona-system/internal/service/report"
	"github.com/caronahq/carona-system/internal/service/ride"
	"github.com/caronahq/carona-system/internal/service/roster"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	postgresclient "github.com/caronahq/carona-system/pkg/postgres"
	rabbitclient "github.com/caronahq/carona-system/pkg/rabbit"
	"github.com/caronahq/carona-system/pkg/trm"
	"github.com/caronahq/carona-system/pkg/watch"
	ws "github.com/caronahq/carona-system/pkg/wsHub"
)

type App struct {
	postgresDB  *postgresclient.PostgreDB
	rabbitMQ    *rabbitclient.RabbitMQ
	rosterHub   *watch.Hub
	connections *ws.ConnectionHub
	audit       *rabbit.AuditConsumer
	httpServer  *httpserver.API

	cfg config.Config
	log logger.Logger
}

// NewApplication wires the whole service together: storage, broker,
// domain services and the HTTP server.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	db, err := postgresclient.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	rabbitMQ, err := rabbitclient.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		return nil, err
	}

	// repositories
	userRepo := postgres.NewUserRepo(db.Pool)
	rideRepo := postgres.NewRideRepo(db.Pool)
	chatRepo := postgres.NewChatRepo(db.Pool)
	reportRepo := postgres.NewReportRepo(db.Pool)

	txManager := trm.New(db.Pool)

	// brokers
	rideBroker := rabbit.NewRideBroker(rabbitMQ, log)
	auditConsumer := rabbit.NewAuditConsumer(rabbitMQ, log)

	// live roster subscriptions
	rosterHub := watch.NewHub()
	connections := ws.NewConnHub(log)

	// services
	tokenSvc := auth.NewTokenService(cfg.Auth.JWTSecret, userRepo, cfg.Auth.RefreshTokenTTL, cfg.Auth.AccessTokenTTL, log)
	authSvc := auth.NewAuthService(userRepo, tokenSvc, log)
	rideSvc := ride.NewRideService(rideRepo, rideBroker, rosterHub, log)
	ratingSvc := rating.NewRatingService(rideRepo, userRepo, rideBroker, rosterHub, log, txManager)
	rosterSvc := roster.NewRosterService(rideRepo, rosterHub, log)
	chatSvc := chat.NewChatService(chatRepo, rideRepo, log)
	reportSvc := report.NewReportService(reportRepo, log)

	server, err := httpserver.New(cfg, authSvc, rideSvc, rosterSvc, ratingSvc, chatSvc, reportSvc, connections, log)
	if err != nil {
		return nil, err
	}

	return &App{
		postgresDB:  db,
		rabbitMQ:    rabbitMQ,
		rosterHub:   rosterHub,
		connections: connections,
		audit:       auditConsumer,
		httpServer:  server,
		cfg:         cfg,
		log:         log,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "application closed")
	}()

	errCh := make(chan error, 1)
	a.httpServer.Run(ctx, errCh)

	// Audit trail: every lifecycle event that reaches the topic lands in
	// the structured log, deletions with their final snapshot.
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() {
		if err := a.audit.ConsumeRideEvents(consumerCtx, a.auditEntry); err != nil {
			a.log.Error(consumerCtx, "ride event consumer stopped", err)
		}
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "application started")
	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) auditEntry(ctx context.Context, msg models.RideEventMessage) error {
	args := []any{
		"event", msg.Event,
		"ride_id", msg.RideID.String(),
		"actor_id", msg.ActorID,
		"timestamp", msg.Timestamp,
	}
	if msg.Ride != nil {
		args = append(args,
			"from", msg.Ride.From,
			"to", msg.Ride.To,
			"driver_id", msg.Ride.DriverID,
			"passengers", msg.Ride.Passengers,
		)
	}

	a.log.Info(wrap.WithAction(ctx, "ride_audit"), "ride event", args...)
	return nil
}

func (a *App) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error(ctx, "failed to shutdown HTTP server", err)
	}

	a.connections.CloseAll(ctx)
	a.rosterHub.Close()

	if err := a.rabbitMQ.Close(ctx); err != nil {
		a.log.Error(ctx, "failed to close RabbitMQ connection", err)
	}

	a.postgresDB.Pool.Close()
}
