package ws

import (
	"context"
	"errors"

	"sync"

	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/uuid"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub хранит и управляет всеми активными WebSocket соединениями
type ConnectionHub struct {
	clients map[uuid.UUID]*Conn
	l       logger.Logger
	mu      sync.Mutex
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		l:       l,
	}
}

// Add добавляет новое соединение в хаб.
// Если соединение с этим ID уже существует — оно закрывается.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "add_ws_connection")

	if existing, ok := h.clients[newConn.id]; ok {
		h.l.Warn(ctx,
			"replacing existing connection",
			"conn_id", existing.id,
		)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx,
				"failed to close existing conn",
				"conn_id", existing.id,
				"err", err.Error(),
			)
		}
	}

	h.clients[newConn.id] = newConn

	return nil
}

// Delete удаляет и закрывает соединение по ID
func (h *ConnectionHub) Delete(id uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "ws_connection_delete")

	conn, ok := h.clients[id]
	if !ok {
		return ErrConnIsNotFound
	}

	if err := conn.Close(); err != nil {
		h.l.Warn(ctx, "failed to close conn", "conn_id", id, "err", err.Error())
	}
	delete(h.clients, id)

	return nil
}

// Get возвращает соединение по ID
func (h *ConnectionHub) Get(id uuid.UUID) (*Conn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[id]
	return conn, ok
}

// Len возвращает число активных соединений
func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// CloseAll закрывает все соединения (graceful shutdown)
func (h *ConnectionHub) CloseAll(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.clients {
		if err := conn.Close(); err != nil {
			h.l.Warn(ctx, "failed to close conn", "conn_id", id, "err", err.Error())
		}
		delete(h.clients, id)
	}
}
