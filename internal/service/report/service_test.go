package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	"github.com/caronahq/carona-system/pkg/uuid"
)

type fakeReportRepo struct {
	reports map[uuid.UUID]*models.Report
}

func (f *fakeReportRepo) Create(_ context.Context, report *models.Report) error {
	report.ID = uuid.MustNew()
	report.Status = types.ReportNew
	report.CreatedAt = time.Now()
	cp := *report
	f.reports[report.ID] = &cp
	return nil
}

func (f *fakeReportRepo) ListOpen(_ context.Context) ([]models.Report, error) {
	out := []models.Report{}
	for _, r := range f.reports {
		if r.Status == types.ReportNew {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) Close(_ context.Context, id uuid.UUID) error {
	r, ok := f.reports[id]
	if !ok {
		return types.ErrReportNotFound
	}
	now := time.Now()
	r.Status = types.ReportClosed
	r.ClosedAt = &now
	return nil
}

func ctxAs(email string) context.Context {
	u := &models.User{Email: email, Name: email, Role: types.RoleBoth}
	return models.WithSession(context.Background(), models.NewSession(u))
}

func TestReportLifecycle(t *testing.T) {
	repo := &fakeReportRepo{reports: map[uuid.UUID]*models.Report{}}
	svc := NewReportService(repo, logger.NewDiscard())

	rep, err := svc.Submit(ctxAs("user@uni.br"), "Motorista não apareceu")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rep.ReporterEmail != "user@uni.br" || rep.Status != types.ReportNew {
		t.Errorf("report = %+v", rep)
	}

	open, err := svc.ListOpen(context.Background())
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open = %d, want 1", len(open))
	}

	if err := svc.Close(context.Background(), rep.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	open, _ = svc.ListOpen(context.Background())
	if len(open) != 0 {
		t.Errorf("open after close = %d, want 0", len(open))
	}
}

func TestSubmitValidation(t *testing.T) {
	repo := &fakeReportRepo{reports: map[uuid.UUID]*models.Report{}}
	svc := NewReportService(repo, logger.NewDiscard())

	if _, err := svc.Submit(context.Background(), "algo"); !errors.Is(err, types.ErrUserNotFound) {
		t.Errorf("anonymous submit err = %v", err)
	}
	if _, err := svc.Submit(ctxAs("user@uni.br"), "  "); !errors.Is(err, types.ErrEmptyMessage) {
		t.Errorf("blank submit err = %v, want ErrEmptyMessage", err)
	}
	if err := svc.Close(context.Background(), uuid.MustNew()); !errors.Is(err, types.ErrReportNotFound) {
		t.Errorf("close missing err = %v, want ErrReportNotFound", err)
	}
}
