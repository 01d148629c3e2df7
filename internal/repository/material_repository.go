package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/community-archive/internal/models"
)

const materialColumns = `id, title, author, description, section, subsection, type, file_url, file_name,
       date_archived, flag_count, flagged_by`

// MaterialRepository persists archived material metadata.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs the repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// Create inserts a material row, assigning an id when missing.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	if material.DateArchived.IsZero() {
		material.DateArchived = time.Now().UTC()
	}
	if material.FlaggedBy == nil {
		material.FlaggedBy = []string{}
	}
	const query = `INSERT INTO materials
	(id, title, author, description, section, subsection, type, file_url, file_name, date_archived, flag_count, flagged_by)
	VALUES (:id, :title, :author, :description, :section, :subsection, :type, :file_url, :file_name, :date_archived, :flag_count, :flagged_by)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// List returns every material ordered by archive date. Ties break on id.
func (r *MaterialRepository) List(ctx context.Context, descending bool) ([]models.Material, error) {
	order := "ASC"
	if descending {
		order = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM materials ORDER BY date_archived %s, id ASC", materialColumns, order)

	materials := make([]models.Material, 0)
	if err := r.db.SelectContext(ctx, &materials, query); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// ListBySection returns newest-first materials, optionally limited to one section.
func (r *MaterialRepository) ListBySection(ctx context.Context, section *string) ([]models.Material, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT ")
	builder.WriteString(materialColumns)
	builder.WriteString(" FROM materials")
	args := make([]interface{}, 0, 1)
	if section != nil && *section != "" {
		args = append(args, *section)
		builder.WriteString(" WHERE section = $1")
	}
	builder.WriteString(" ORDER BY date_archived DESC, id ASC")

	materials := make([]models.Material, 0)
	if err := r.db.SelectContext(ctx, &materials, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list materials by section: %w", err)
	}
	return materials, nil
}

// UpdateMaterialParams defines the mutable fields.
type UpdateMaterialParams struct {
	FlagCount *int
	FlaggedBy *[]string
}

// Update applies the provided changes. It returns sql.ErrNoRows when the id is unknown.
func (r *MaterialRepository) Update(ctx context.Context, id string, params UpdateMaterialParams) error {
	set := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	argPos := 1

	if params.FlagCount != nil {
		set = append(set, fmt.Sprintf("flag_count = $%d", argPos))
		args = append(args, *params.FlagCount)
		argPos++
	}
	if params.FlaggedBy != nil {
		tokens := *params.FlaggedBy
		if tokens == nil {
			tokens = []string{}
		}
		set = append(set, fmt.Sprintf("flagged_by = $%d", argPos))
		args = append(args, pq.StringArray(tokens))
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE materials SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check material update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
