package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/community-archive/internal/dto"
	"github.com/noah-isme/community-archive/internal/models"
	"github.com/noah-isme/community-archive/internal/repository"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

type materialStore interface {
	Create(ctx context.Context, material *models.Material) error
	List(ctx context.Context, descending bool) ([]models.Material, error)
	Update(ctx context.Context, id string, params repository.UpdateMaterialParams) error
}

type flagReportStore interface {
	Create(ctx context.Context, report *models.FlagReport) error
	List(ctx context.Context, descending bool) ([]models.FlagReport, error)
}

// collectionDef describes what the record store allows per collection.
type collectionDef struct {
	orderBy    string
	appendOnly bool
}

var collections = map[string]collectionDef{
	models.CollectionMaterials: {orderBy: "dateArchived"},
	models.CollectionReports:   {orderBy: "timestamp", appendOnly: true},
}

var mutableMaterialFields = map[string]struct{}{
	"flagCount": {},
	"flaggedBy": {},
}

// RecordService is a schema-checked document store over the materials and
// reports tables. It performs no business validation.
type RecordService struct {
	materials materialStore
	reports   flagReportStore
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRecordService constructs the service.
func NewRecordService(materials materialStore, reports flagReportStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{materials: materials, reports: reports, cache: cache, metrics: metrics, logger: logger}
}

// Create stores payload as a new document of collection and returns its id.
func (s *RecordService) Create(ctx context.Context, collection string, payload []byte) (string, error) {
	if _, err := lookupCollection(collection); err != nil {
		return "", err
	}

	var id string
	switch collection {
	case models.CollectionMaterials:
		var material models.Material
		if err := decodeStrict(payload, &material); err != nil {
			return "", err
		}
		material.ID = ""
		if material.FlagCount < 0 {
			return "", appErrors.Clone(appErrors.ErrValidation, "flagCount must not be negative")
		}
		start := time.Now()
		err := s.materials.Create(ctx, &material)
		s.metrics.ObserveDBQuery("materials.create", time.Since(start))
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create material")
		}
		id = material.ID
	case models.CollectionReports:
		var report models.FlagReport
		if err := decodeStrict(payload, &report); err != nil {
			return "", err
		}
		report.ID = ""
		start := time.Now()
		err := s.reports.Create(ctx, &report)
		s.metrics.ObserveDBQuery("reports.create", time.Since(start))
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
		}
		id = report.ID
	}

	s.metrics.RecordWrite(collection, "create")
	_ = s.cache.Invalidate(ctx, RecordsPattern(collection))
	s.logger.Debug("record created", zap.String("collection", collection), zap.String("id", id))
	return id, nil
}

// Query returns every document of collection ordered by query.OrderBy.
// The boolean reports whether the result came from cache.
func (s *RecordService) Query(ctx context.Context, collection string, query dto.RecordQuery) (interface{}, bool, error) {
	def, err := lookupCollection(collection)
	if err != nil {
		return nil, false, err
	}
	orderBy := query.OrderBy
	if orderBy == "" {
		orderBy = def.orderBy
	}
	if orderBy != def.orderBy {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot order %s by %q", collection, orderBy))
	}
	direction := strings.ToLower(query.Direction)
	if direction == "" {
		direction = "asc"
	}
	if direction != "asc" && direction != "desc" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "direction must be asc or desc")
	}
	descending := direction == "desc"
	key := RecordsKey(collection, orderBy, direction)

	switch collection {
	case models.CollectionMaterials:
		items, hit, err := Remember(ctx, s.cache, key, func(ctx context.Context) ([]models.Material, error) {
			start := time.Now()
			defer func() { s.metrics.ObserveDBQuery("materials.list", time.Since(start)) }()
			return s.materials.List(ctx, descending)
		})
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
		}
		return items, hit, nil
	default:
		items, hit, err := Remember(ctx, s.cache, key, func(ctx context.Context) ([]models.FlagReport, error) {
			start := time.Now()
			defer func() { s.metrics.ObserveDBQuery("reports.list", time.Since(start)) }()
			return s.reports.List(ctx, descending)
		})
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
		}
		return items, hit, nil
	}
}

// Update applies a partial update. Only flagCount and flaggedBy of materials
// are mutable; reports are append-only.
func (s *RecordService) Update(ctx context.Context, collection, id string, payload []byte) error {
	def, err := lookupCollection(collection)
	if err != nil {
		return err
	}
	if def.appendOnly {
		return appErrors.Clone(appErrors.ErrMethodNotAllowed, fmt.Sprintf("%s are append-only", collection))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid JSON body")
	}
	if immutable := immutableFields(fields); len(immutable) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "fields are not mutable: "+strings.Join(immutable, ", "))
	}

	var patch dto.MaterialPatch
	if err := json.Unmarshal(payload, &patch); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid field types")
	}
	if patch.FlagCount != nil && *patch.FlagCount < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "flagCount must not be negative")
	}

	start := time.Now()
	err = s.materials.Update(ctx, id, repository.UpdateMaterialParams{FlagCount: patch.FlagCount, FlaggedBy: patch.FlaggedBy})
	s.metrics.ObserveDBQuery("materials.update", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update material")
	}

	s.metrics.RecordWrite(collection, "update")
	_ = s.cache.Invalidate(ctx, RecordsPattern(collection))
	return nil
}

func lookupCollection(name string) (collectionDef, error) {
	def, ok := collections[name]
	if !ok {
		return collectionDef{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("collection %q not found", name))
	}
	return def, nil
}

func immutableFields(fields map[string]json.RawMessage) []string {
	var out []string
	for name := range fields {
		if _, ok := mutableMaterialFields[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func decodeStrict(payload []byte, dest interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record body")
	}
	return nil
}
