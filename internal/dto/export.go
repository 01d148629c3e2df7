package dto

import "github.com/noah-isme/community-archive/internal/models"

// ExportRequest captures POST /exports payload.
type ExportRequest struct {
	Format  models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Section *string             `json:"section,omitempty"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Format    models.ExportFormat `json:"format"`
	Section   *string             `json:"section,omitempty"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
