package models

import (
	"time"

	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/uuid"
)

// Report is a user-submitted complaint. Plain CRUD with a status flag;
// admins list open reports and close them.
type Report struct {
	ID            uuid.UUID          `json:"id"`
	ReporterEmail string             `json:"reporter_email"`
	ReportText    string             `json:"report_text"`
	Status        types.ReportStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	ClosedAt      *time.Time         `json:"closed_at,omitempty"`
}
