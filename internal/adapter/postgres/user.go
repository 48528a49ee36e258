package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/postgres"
)

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

var ErrEmailTaken = errors.New("email already registered")

// CreateUser inserts a user row. Expects Email, Name, Role and the password
// hash to be set.
func (r *UserRepo) CreateUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return errors.New("nil user")
	}

	const q = `
		INSERT INTO users (email, name, role, password_hash, total_stars, rating_count)
		VALUES ($1, $2, $3, $4, 0, 0)
		RETURNING created_at, updated_at;`

	err := TxorDB(ctx, r.db).QueryRow(
		ctx, q, u.Email, u.Name, u.Role, u.GetPasswordHash(),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("user repo: CreateUser: %w", err)
	}

	return nil
}

// GetUser fetches by email (the primary key). Returns (nil, nil) when the
// user does not exist, matching how the auth service probes for duplicates.
func (r *UserRepo) GetUser(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, errors.New("email is required")
	}

	const q = `
		SELECT email, name, role, password_hash, total_stars, rating_count, created_at, updated_at
		FROM users
		WHERE email = $1;`

	var (
		u    models.User
		hash string
	)
	err := TxorDB(ctx, r.db).QueryRow(ctx, q, email).Scan(
		&u.Email,
		&u.Name,
		&u.Role,
		&hash,
		&u.TotalStars,
		&u.RatingCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // not found
		}
		return nil, fmt.Errorf("user repo: GetUser: %w", err)
	}

	u.SetPasswordHash(hash)
	return &u, nil
}

// AddRating atomically bumps the reputation counters: total_stars by the
// given stars and rating_count by one.
func (r *UserRepo) AddRating(ctx context.Context, email string, stars int) error {
	const q = `
		UPDATE users
		SET total_stars = total_stars + $2,
		    rating_count = rating_count + 1,
		    updated_at = now()
		WHERE email = $1;`

	cmdTag, err := TxorDB(ctx, r.db).Exec(ctx, q, email, stars)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("user repo: AddRating: %w", err))
	}
	if cmdTag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}

	return nil
}

// UpdatePasswordHash replaces the stored credential. Used to transparently
// rehash legacy sha256 digests onto the PBKDF2 format after a successful
// login.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE email = $1;`

	cmdTag, err := TxorDB(ctx, r.db).Exec(ctx, q, email, hash)
	if err != nil {
		return fmt.Errorf("user repo: UpdatePasswordHash: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}

	return nil
}
