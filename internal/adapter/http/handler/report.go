package handler

import (
	"context"
	"net/http"

	"github.com/caronahq/carona-system/internal/adapter/http/handler/dto"
	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/uuid"
	"github.com/caronahq/carona-system/pkg/validator"
)

type ReportService interface {
	Submit(ctx context.Context, text string) (*models.Report, error)
	ListOpen(ctx context.Context) ([]models.Report, error)
	Close(ctx context.Context, id uuid.UUID) error
}

type Report struct {
	reports ReportService
	l       logger.Logger
}

func NewReport(reports ReportService, l logger.Logger) *Report {
	return &Report{
		reports: reports,
		l:       l,
	}
}

// Submit godoc
// @Summary      File a problem report
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.SubmitReportRequest true "Report"
// @Success      201  {object}  models.Report
// @Router       /reports [post]
func (h *Report) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "submit_report")

	req := &dto.SubmitReportRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	dto.ValidateSubmitReport(v, req)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	report, err := h.reports.Submit(ctx, req.Text)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to submit report", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"report": report}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// ListOpen godoc
// @Summary      Open report queue
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Report
// @Router       /admin/reports [get]
func (h *Report) ListOpen(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_open_reports")

	reports, err := h.reports.ListOpen(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list reports", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"reports": reports}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Close godoc
// @Summary      Close a report
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        report_id path string true "Report id"
// @Success      200  {object}  map[string]string
// @Router       /admin/reports/{report_id}/close [post]
func (h *Report) Close(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "close_report")

	id, err := uuid.Parse(r.PathValue("report_id"))
	if err != nil {
		badRequestResponse(w, "invalid report id")
		return
	}

	if err := h.reports.Close(ctx, id); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to close report", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": "closed"}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
