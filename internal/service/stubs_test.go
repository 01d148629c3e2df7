package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/community-archive/internal/models"
	"github.com/noah-isme/community-archive/internal/repository"
	"github.com/noah-isme/community-archive/pkg/jobs"
)

type materialRepoStub struct {
	mu        sync.Mutex
	items     map[string]models.Material
	listCalls int
	listErr   error
	updates   []repository.UpdateMaterialParams
}

func newMaterialRepoStub(items ...models.Material) *materialRepoStub {
	stub := &materialRepoStub{items: map[string]models.Material{}}
	for _, item := range items {
		stub.items[item.ID] = item
	}
	return stub
}

func (r *materialRepoStub) Create(_ context.Context, material *models.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	r.items[material.ID] = *material
	return nil
}

func (r *materialRepoStub) List(_ context.Context, descending bool) ([]models.Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Material, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].DateArchived.After(out[j].DateArchived)
		}
		return out[i].DateArchived.Before(out[j].DateArchived)
	})
	return out, nil
}

func (r *materialRepoStub) ListBySection(_ context.Context, section *string) ([]models.Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Material, 0, len(r.items))
	for _, item := range r.items {
		if section == nil || item.Section == *section {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateArchived.After(out[j].DateArchived) })
	return out, nil
}

func (r *materialRepoStub) Update(_ context.Context, id string, params repository.UpdateMaterialParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.updates = append(r.updates, params)
	if params.FlagCount != nil {
		item.FlagCount = *params.FlagCount
	}
	if params.FlaggedBy != nil {
		item.FlaggedBy = *params.FlaggedBy
	}
	r.items[id] = item
	return nil
}

type reportRepoStub struct {
	mu    sync.Mutex
	items []models.FlagReport
}

func (r *reportRepoStub) Create(_ context.Context, report *models.FlagReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	r.items = append(r.items, *report)
	return nil
}

func (r *reportRepoStub) List(_ context.Context, _ bool) ([]models.FlagReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.FlagReport{}, r.items...), nil
}

type exportRepoStub struct {
	mu   sync.Mutex
	jobs map[string]*models.ExportJob
}

func newExportRepoStub() *exportRepoStub {
	return &exportRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportRepoStub) Create(_ context.Context, job *models.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportRepoStub) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (r *exportRepoStub) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportRepoStub) ListQueued(_ context.Context, _ int) ([]models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportRepoStub) ListFinishedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}
