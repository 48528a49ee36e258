package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/metrics"
	"github.com/caronahq/carona-system/pkg/uuid"
	ws "github.com/caronahq/carona-system/pkg/wsHub"
)

const wsPingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The mobile client connects from another origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RideFeed pushes live roster snapshots over WebSocket. Each delivery is the
// full latest set of rides for the projection, never an incremental diff, so
// a client can always render what it last received.
type RideFeed struct {
	roster      RosterService
	connections *ws.ConnectionHub
	l           logger.Logger
}

func NewRideFeed(roster RosterService, connections *ws.ConnectionHub, l logger.Logger) *RideFeed {
	return &RideFeed{
		roster:      roster,
		connections: connections,
		l:           l,
	}
}

// Available streams the open-ride feed.
//
// Available godoc
// @Summary      Live open-ride feed
// @Description  WebSocket stream of full ride-feed snapshots
// @Tags         Rosters
// @Security     BearerAuth
// @Router       /ws/rides [get]
func (h *RideFeed) Available(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "ws_available", h.roster.WatchAvailable)
}

// History streams the acting user's ride history.
//
// History godoc
// @Summary      Live ride history
// @Description  WebSocket stream of full history snapshots for the acting user
// @Tags         Rosters
// @Security     BearerAuth
// @Router       /ws/history [get]
func (h *RideFeed) History(w http.ResponseWriter, r *http.Request) {
	session := models.SessionFromContext(r.Context())
	if session.IsAnonymous() {
		errorResponse(w, http.StatusUnauthorized, "authorization required")
		return
	}
	h.stream(w, r, "ws_history", h.roster.WatchHistory)
}

func (h *RideFeed) stream(w http.ResponseWriter, r *http.Request, action string, watch func(context.Context) <-chan []models.Ride) {
	ctx := wrap.WithAction(r.Context(), action)

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Error(ctx, "websocket upgrade failed", err)
		return
	}

	// The session from the HTTP request keeps driving the projection for
	// the life of the socket.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := ws.NewConn(ctx, uuid.MustNew(), wsConn)
	if err := h.connections.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register websocket connection", err)
		conn.Close()
		return
	}
	metrics.WebSocketConnectionsGauge.WithLabelValues("carona").Inc()
	defer func() {
		h.connections.Delete(conn.ID())
		metrics.WebSocketConnectionsGauge.WithLabelValues("carona").Dec()
		conn.Close()
	}()

	// Reader goroutine: the client sends nothing meaningful, we only need
	// to notice the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := wsConn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates := watch(ctx)
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case <-ping.C:
			if err := conn.Health(); err != nil {
				return
			}
		case rides, ok := <-updates:
			if !ok {
				return
			}
			update := models.RideFeedUpdate{Type: "snapshot", Rides: rides}
			if err := conn.Send(update); err != nil {
				h.l.Debug(ctx, "websocket send failed, dropping connection", "error", err.Error())
				return
			}
		}
	}
}
