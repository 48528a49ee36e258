package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/postgres"
	"github.com/caronahq/carona-system/pkg/uuid"
)

// ChatRepo is the per-ride append-only message log.
type ChatRepo struct {
	db *pgxpool.Pool
}

func NewChatRepo(db *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Append(ctx context.Context, msg *models.Message) error {
	q := TxorDB(ctx, r.db)

	query := `
		INSERT INTO ride_messages (ride_id, sender_id, sender_name, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;`

	err := q.QueryRow(ctx, query, msg.RideID, msg.SenderID, msg.SenderName, msg.Text).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return types.ErrRideNotFound
		}
		return fmt.Errorf("chat repo: Append: %w", err)
	}

	return nil
}

// ListByRide returns the log newest-first, the order the chat view renders.
func (r *ChatRepo) ListByRide(ctx context.Context, rideID uuid.UUID) ([]models.Message, error) {
	q := TxorDB(ctx, r.db)

	query := `
		SELECT id, ride_id, sender_id, sender_name, body, created_at
		FROM ride_messages
		WHERE ride_id = $1
		ORDER BY created_at DESC;`

	rows, err := q.Query(ctx, query, rideID)
	if err != nil {
		return nil, fmt.Errorf("chat repo: ListByRide: %w", err)
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RideID, &m.SenderID, &m.SenderName, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("chat repo: ListByRide scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat repo: ListByRide rows: %w", err)
	}

	return msgs, nil
}
