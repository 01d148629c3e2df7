package archive

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/community-archive/internal/models"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

const (
	msgAlreadyReported = "You have already reported this content."
	msgReportThanks    = "Thank you for your report. This content has been flagged for review."
)

// FlagOutcome is the result of a flag request that did not error.
type FlagOutcome string

const (
	FlagIgnored   FlagOutcome = "ignored"
	FlagDuplicate FlagOutcome = "duplicate"
	FlagConfirmed FlagOutcome = "confirmed"
)

// FlagPhase tracks the local flag mutation against the record store.
type FlagPhase string

const (
	FlagPhaseNone      FlagPhase = "none"
	FlagPhasePending   FlagPhase = "pending"
	FlagPhaseConfirmed FlagPhase = "confirmed"
)

type flagKey struct {
	materialID string
	token      string
}

// FlagWorkflow records flags with per-token dedup. The duplicate check reads
// the local snapshot, so two clients racing on the same material resolve as
// last write wins at the record store.
type FlagWorkflow struct {
	listing *ListingStore
	records RecordStore
	sink    Sink
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	phases map[flagKey]FlagPhase
}

// NewFlagWorkflow wires a workflow and subscribes it to listing refreshes.
func NewFlagWorkflow(listing *ListingStore, records RecordStore, sink Sink, logger *zap.Logger, now func() time.Time) *FlagWorkflow {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	w := &FlagWorkflow{
		listing: listing,
		records: records,
		sink:    sink,
		logger:  logger,
		now:     now,
		phases:  make(map[flagKey]FlagPhase),
	}
	listing.OnRefresh(w.reconcile)
	return w
}

// Flag reports materialID on behalf of token.
func (w *FlagWorkflow) Flag(ctx context.Context, materialID, reason, token string) (FlagOutcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return FlagIgnored, nil
	}

	material, err := w.listing.patch(materialID, func(m *models.Material) error {
		if m.HasReporter(token) {
			return errDuplicateReporter
		}
		m.FlagCount++
		m.FlaggedBy = append(m.FlaggedBy, token)
		return nil
	})
	switch {
	case errors.Is(err, errDuplicateReporter):
		w.sink.Notify(Notice{Level: NoticeInfo, Message: msgAlreadyReported})
		return FlagDuplicate, nil
	case err != nil:
		w.sink.Notify(errorNotice(err))
		return "", err
	}

	key := flagKey{materialID: materialID, token: token}
	w.setPhase(key, FlagPhasePending)

	update := map[string]any{
		"flagCount": material.FlagCount,
		"flaggedBy": []string(material.FlaggedBy),
	}
	if err := w.records.Update(ctx, models.CollectionMaterials, materialID, update); err != nil {
		w.logger.Warn("flag update failed", zap.String("material_id", materialID), zap.Error(err))
		return "", w.fail(err)
	}
	w.setPhase(key, FlagPhaseConfirmed)

	report := models.FlagReport{
		MaterialID:    materialID,
		MaterialTitle: material.Title,
		Reason:        reason,
		Timestamp:     w.now().UTC(),
		Reporter:      token,
	}
	if _, err := w.records.Create(ctx, models.CollectionReports, report); err != nil {
		w.logger.Warn("flag report create failed", zap.String("material_id", materialID), zap.Error(err))
		return "", w.fail(err)
	}

	w.sink.Notify(Notice{Level: NoticeSuccess, Message: msgReportThanks})
	if err := w.listing.Refresh(ctx); err != nil {
		w.logger.Warn("refresh after flag failed", zap.Error(err))
	}
	return FlagConfirmed, nil
}

// Phase returns the local flag phase for materialID and token.
func (w *FlagWorkflow) Phase(materialID, token string) FlagPhase {
	w.mu.Lock()
	defer w.mu.Unlock()
	if phase, ok := w.phases[flagKey{materialID: materialID, token: token}]; ok {
		return phase
	}
	return FlagPhaseNone
}

// reconcile settles pending flags against a fresh snapshot: a token present
// in the store is confirmed, an absent one is forgotten.
func (w *FlagWorkflow) reconcile(items []models.Material) {
	byID := make(map[string]models.Material, len(items))
	for _, m := range items {
		byID[m.ID] = m
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for key, phase := range w.phases {
		if phase != FlagPhasePending {
			continue
		}
		if m, ok := byID[key.materialID]; ok && m.HasReporter(key.token) {
			w.phases[key] = FlagPhaseConfirmed
			continue
		}
		delete(w.phases, key)
	}
}

func (w *FlagWorkflow) setPhase(key flagKey, phase FlagPhase) {
	w.mu.Lock()
	w.phases[key] = phase
	w.mu.Unlock()
}

func (w *FlagWorkflow) fail(err error) *appErrors.Error {
	failure := flagFailed(err)
	w.sink.Notify(errorNotice(failure))
	return failure
}
