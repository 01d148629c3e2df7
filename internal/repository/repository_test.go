package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/community-archive/internal/models"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var materialRowColumns = []string{"id", "title", "author", "description", "section", "subsection", "type", "file_url", "file_name", "date_archived", "flag_count", "flagged_by"}

func TestMaterialRepositoryCreateAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO materials")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	material := &models.Material{Title: "Harbor", Author: "Ana", Section: "photography", Subsection: "street", Type: "image/png"}
	require.NoError(t, repo.Create(context.Background(), material))
	assert.NotEmpty(t, material.ID)
	assert.False(t, material.DateArchived.IsZero())
	assert.NotNil(t, material.FlaggedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryListOrdersByDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(materialRowColumns).
		AddRow("m-2", "Newer", "Ana", "d", "photography", "street", "image/png", "http://f/2", "2.png", now, 1, "{user_1_abc}").
		AddRow("m-1", "Older", "Ben", "d", "music", "folk", "audio/mpeg", "http://f/1", "1.mp3", now.Add(-time.Hour), 0, "{}")
	mock.ExpectQuery(regexp.QuoteMeta("FROM materials ORDER BY date_archived DESC, id ASC")).
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "m-2", items[0].ID)
	assert.Equal(t, []string{"user_1_abc"}, []string(items[0].FlaggedBy))
	assert.Empty(t, items[1].FlaggedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryListBySection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM materials WHERE section = $1")).
		WithArgs("music").
		WillReturnRows(sqlmock.NewRows(materialRowColumns))

	section := "music"
	items, err := repo.ListBySection(context.Background(), &section)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	count := 2
	tokens := []string{"user_1_abc", "user_2_def"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE materials SET flag_count = $1, flagged_by = $2 WHERE id = $3")).
		WithArgs(2, sqlmock.AnyArg(), "m-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "m-1", UpdateMaterialParams{FlagCount: &count, FlaggedBy: &tokens}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryUpdateUnknownID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	count := 1
	mock.ExpectExec(regexp.QuoteMeta("UPDATE materials SET flag_count = $1 WHERE id = $2")).
		WithArgs(1, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "missing", UpdateMaterialParams{FlagCount: &count})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryUpdateNoFields(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	require.NoError(t, NewMaterialRepository(db).Update(context.Background(), "m-1", UpdateMaterialParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlagReportRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFlagReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	report := &models.FlagReport{MaterialID: "m-1", MaterialTitle: "Harbor", Reason: "Spam", Reporter: "user_1_abc"}
	require.NoError(t, repo.Create(context.Background(), report))
	assert.NotEmpty(t, report.ID)
	assert.False(t, report.Timestamp.IsZero())

	rows := sqlmock.NewRows([]string{"id", "material_id", "material_title", "reason", "reported_at", "reporter"}).
		AddRow(report.ID, "m-1", "Harbor", "Spam", report.Timestamp, "user_1_abc")
	mock.ExpectQuery(regexp.QuoteMeta("FROM reports ORDER BY reported_at ASC, id ASC")).
		WillReturnRows(rows)

	reports, err := repo.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Spam", reports[0].Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

var exportJobRowColumns = []string{"id", "format", "section", "status", "progress", "result_url", "error_message", "created_at", "updated_at", "finished_at"}

func TestExportJobRepositoryLifecycle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExportJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO export_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{Format: models.ExportFormatCSV}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Equal(t, job.CreatedAt, job.UpdatedAt)

	status := models.ExportStatusFinished
	progress := 100
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, progress = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(status, progress, sqlmock.AnyArg(), job.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), job.ID, UpdateExportJobParams{Status: &status, Progress: &progress}))

	now := time.Now()
	rows := sqlmock.NewRows(exportJobRowColumns).
		AddRow(job.ID, "csv", nil, "FINISHED", 100, "http://x/download", nil, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, found.Status)
	require.NotNil(t, found.ResultURL)
	assert.Nil(t, found.Section)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListQueries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExportJobRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns).AddRow("job-1", "pdf", "music", "QUEUED", 0, nil, nil, now, now, nil))

	queued, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	require.NotNil(t, queued[0].Section)
	assert.Equal(t, "music", *queued[0].Section)

	cutoff := now.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1")).
		WithArgs(cutoff, 50).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns))

	finished, err := repo.ListFinishedBefore(context.Background(), cutoff, 0)
	require.NoError(t, err)
	assert.Empty(t, finished)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryCacheRepository(t *testing.T) {
	repo := NewMemoryCacheRepository(8, time.Minute)
	ctx := context.Background()

	var out []string
	assert.ErrorIs(t, repo.Get(ctx, "records:materials:dateArchived:desc", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "records:materials:dateArchived:desc", []string{"a"}, 0))
	require.NoError(t, repo.Set(ctx, "records:materials:dateArchived:asc", []string{"b"}, 0))
	require.NoError(t, repo.Set(ctx, "records:reports:timestamp:asc", []string{"c"}, 0))

	require.NoError(t, repo.Get(ctx, "records:materials:dateArchived:desc", &out))
	assert.Equal(t, []string{"a"}, out)

	require.NoError(t, repo.DeleteByPattern(ctx, "records:materials:*"))
	assert.Equal(t, 1, repo.Len())
	assert.ErrorIs(t, repo.Get(ctx, "records:materials:dateArchived:asc", &out), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var out string
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Second))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "k*"))
	assert.NoError(t, repo.Close())
}
