package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/caronahq/carona-system/config"
	"github.com/caronahq/carona-system/pkg/hasher"
	"github.com/caronahq/carona-system/pkg/passhash"
	"github.com/caronahq/carona-system/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}

	migrateSchema(client.Pool)
	migrateDefaultUsers(client.Pool)
}

const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS users (
	email         text PRIMARY KEY,
	name          text NOT NULL,
	role          text NOT NULL,
	password_hash text NOT NULL,
	total_stars   bigint NOT NULL DEFAULT 0,
	rating_count  bigint NOT NULL DEFAULT 0,
	created_at    timestamptz NOT NULL DEFAULT now(),
	updated_at    timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rides (
	id              uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	from_location   text NOT NULL,
	to_location     text NOT NULL,
	ride_date       timestamptz NOT NULL,
	capacity        int NOT NULL CHECK (capacity > 0),
	seats           int NOT NULL CHECK (seats >= 0),
	price           double precision NOT NULL CHECK (price >= 0),
	driver_id       text NOT NULL REFERENCES users(email),
	driver_name     text NOT NULL,
	passengers      text[] NOT NULL DEFAULT '{}',
	status          text NOT NULL,
	users_who_rated text[] NOT NULL DEFAULT '{}',
	created_at      timestamptz NOT NULL DEFAULT now(),
	completed_at    timestamptz
);

CREATE INDEX IF NOT EXISTS idx_rides_status ON rides (status);
CREATE INDEX IF NOT EXISTS idx_rides_driver ON rides (driver_id);
CREATE INDEX IF NOT EXISTS idx_rides_passengers ON rides USING gin (passengers);

CREATE TABLE IF NOT EXISTS ride_messages (
	id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	ride_id     uuid NOT NULL REFERENCES rides(id) ON DELETE CASCADE,
	sender_id   text NOT NULL,
	sender_name text NOT NULL,
	body        text NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ride_messages_ride ON ride_messages (ride_id, created_at);

CREATE TABLE IF NOT EXISTS reports (
	id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	reporter_email text NOT NULL,
	report_text    text NOT NULL,
	status         text NOT NULL,
	created_at     timestamptz NOT NULL DEFAULT now(),
	closed_at      timestamptz
);

CREATE INDEX IF NOT EXISTS idx_reports_status ON reports (status);
`

func migrateSchema(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := db.Exec(ctx, schema); err != nil {
		log.Fatalf("migrateSchema: %v", err)
	}

	log.Println("migrateSchema: schema ensured")
}

func migrateDefaultUsers(db *pgxpool.Pool) {
	// short timeout for migration operations
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type defaultUser struct {
		Email     string
		Name      string
		Role      string
		PlainPass string
		// Legacy users carry a bare sha256 digest; logging in upgrades
		// them to the salted format.
		Legacy bool
	}

	users := []defaultUser{
		{
			Email:     "joao@carona.br",
			Name:      "Joao",
			Role:      "Motorista",
			PlainPass: "password",
		},
		{
			Email:     "maria@carona.br",
			Name:      "Maria",
			Role:      "Passageiro",
			PlainPass: "password",
		},
		{
			Email:     "pedro@carona.br",
			Name:      "Pedro",
			Role:      "Ambos",
			PlainPass: "password",
			Legacy:    true,
		},
		{
			Email:     "admin@carona.br",
			Name:      "Admin",
			Role:      "Admin",
			PlainPass: "password",
		},
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		log.Fatalf("migrateDefaultUsers: begin tx: %v", err)
	}
	// ensure rollback if commit doesn't happen
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
INSERT INTO users (email, name, role, password_hash, total_stars, rating_count)
VALUES ($1, $2, $3, $4, 0, 0)
ON CONFLICT (email) DO NOTHING;
`

	for _, u := range users {
		var hashed string
		if u.Legacy {
			hashed = hasher.Hash(u.PlainPass)
		} else {
			hashed, err = passhash.HashPassword(u.PlainPass)
			if err != nil {
				log.Fatalf("migrateDefaultUsers: hash password for %s: %v", u.Email, err)
			}
		}

		if _, err := tx.Exec(ctx, q, u.Email, u.Name, u.Role, hashed); err != nil {
			log.Fatalf("migrateDefaultUsers: insert user %s: %v", u.Email, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("migrateDefaultUsers: commit: %v", err)
	}

	log.Printf("migrateDefaultUsers: inserted/ensured %d default users", len(users))
}
