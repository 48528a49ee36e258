package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/uuid"
)

type ReportRepo struct {
	db *pgxpool.Pool
}

func NewReportRepo(db *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{db: db}
}

func (r *ReportRepo) Create(ctx context.Context, report *models.Report) error {
	q := TxorDB(ctx, r.db)

	query := `
		INSERT INTO reports (reporter_email, report_text, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at;`

	err := q.QueryRow(ctx, query, report.ReporterEmail, report.ReportText, types.ReportNew).
		Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return fmt.Errorf("report repo: Create: %w", err)
	}
	report.Status = types.ReportNew

	return nil
}

func (r *ReportRepo) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	q := TxorDB(ctx, r.db)

	query := `
		SELECT id, reporter_email, report_text, status, created_at, closed_at
		FROM reports
		WHERE id = $1;`

	var rep models.Report
	err := q.QueryRow(ctx, query, id).
		Scan(&rep.ID, &rep.ReporterEmail, &rep.ReportText, &rep.Status, &rep.CreatedAt, &rep.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrReportNotFound
		}
		return nil, fmt.Errorf("report repo: Get: %w", err)
	}

	return &rep, nil
}

func (r *ReportRepo) ListOpen(ctx context.Context) ([]models.Report, error) {
	q := TxorDB(ctx, r.db)

	query := `
		SELECT id, reporter_email, report_text, status, created_at, closed_at
		FROM reports
		WHERE status = $1
		ORDER BY created_at;`

	rows, err := q.Query(ctx, query, types.ReportNew)
	if err != nil {
		return nil, fmt.Errorf("report repo: ListOpen: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(&rep.ID, &rep.ReporterEmail, &rep.ReportText, &rep.Status, &rep.CreatedAt, &rep.ClosedAt); err != nil {
			return nil, fmt.Errorf("report repo: ListOpen scan: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("report repo: ListOpen rows: %w", err)
	}

	return reports, nil
}

// Close flips an open report to closed. Closing an already closed report is a no-op.
func (r *ReportRepo) Close(ctx context.Context, id uuid.UUID) error {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE reports
		SET status = $2, closed_at = now()
		WHERE id = $1 AND status = $3;`

	tag, err := q.Exec(ctx, query, id, types.ReportClosed, types.ReportNew)
	if err != nil {
		return fmt.Errorf("report repo: Close: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing from already closed.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}

	return nil
}
