package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/community-archive/internal/models"
)

// FlagReportRepository appends and lists flag reports.
type FlagReportRepository struct {
	db *sqlx.DB
}

// NewFlagReportRepository constructs the repository.
func NewFlagReportRepository(db *sqlx.DB) *FlagReportRepository {
	return &FlagReportRepository{db: db}
}

// Create appends a report row.
func (r *FlagReportRepository) Create(ctx context.Context, report *models.FlagReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO reports (id, material_id, material_title, reason, reported_at, reporter)
VALUES (:id, :material_id, :material_title, :reason, :reported_at, :reporter)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create flag report: %w", err)
	}
	return nil
}

// List returns every report ordered by report time.
func (r *FlagReportRepository) List(ctx context.Context, descending bool) ([]models.FlagReport, error) {
	order := "ASC"
	if descending {
		order = "DESC"
	}
	query := "SELECT id, material_id, material_title, reason, reported_at, reporter FROM reports ORDER BY reported_at " + order + ", id ASC"

	reports := make([]models.FlagReport, 0)
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("list flag reports: %w", err)
	}
	return reports, nil
}
