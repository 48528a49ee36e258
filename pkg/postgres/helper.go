package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsForeignKeyViolation проверяет, является ли переданная ошибка нарушением
// внешнего ключа PostgreSQL (SQLSTATE 23503).
func IsForeignKeyViolation(err error) bool {
	return hasSQLState(err, "23503")
}

// IsUniqueViolation reports a unique constraint violation (SQLSTATE 23505),
// e.g. registering an email that already exists.
func IsUniqueViolation(err error) bool {
	return hasSQLState(err, "23505")
}

// IsCheckViolation reports a CHECK constraint violation (SQLSTATE 23514).
// The rides table carries `seats >= 0`, so a violated check here means a
// concurrent reservation lost the race at the store boundary.
func IsCheckViolation(err error) bool {
	return hasSQLState(err, "23514")
}

func hasSQLState(err error, state string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError

	// errors.As пытается извлечь конкретный тип *pgconn.PgError из всей цепочки ошибок.
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == state
	}

	return false
}
