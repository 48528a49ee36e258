package report

import (
	"context"
	"strings"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/uuid"
)

type ReportRepo interface {
	Create(ctx context.Context, report *models.Report) error
	ListOpen(ctx context.Context) ([]models.Report, error)
	Close(ctx context.Context, id uuid.UUID) error
}

// ReportService handles user problem reports. Anyone signed in can file one;
// only admins see and close the queue.
type ReportService struct {
	repo   ReportRepo
	logger logger.Logger
}

func NewReportService(repo ReportRepo, logger logger.Logger) *ReportService {
	return &ReportService{repo: repo, logger: logger}
}

func (s *ReportService) Submit(ctx context.Context, text string) (*models.Report, error) {
	ctx = wrap.WithAction(ctx, "submit_report")

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, wrap.Error(ctx, types.ErrEmptyMessage)
	}

	report := &models.Report{
		ReporterEmail: session.UserID(),
		ReportText:    text,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	return report, nil
}

func (s *ReportService) ListOpen(ctx context.Context) ([]models.Report, error) {
	ctx = wrap.WithAction(ctx, "list_open_reports")

	reports, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return reports, nil
}

func (s *ReportService) Close(ctx context.Context, id uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "close_report")

	if err := s.repo.Close(ctx, id); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}
