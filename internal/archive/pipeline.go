package archive

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/community-archive/internal/models"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

const msgArchived = "Material archived successfully!"

// Phase is a step of the submission state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseUploading  Phase = "uploading"
	PhasePersisting Phase = "persisting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// Stage names the step a failed submission stopped at.
type Stage string

const (
	StageUpload  Stage = "upload"
	StagePersist Stage = "persist"
)

// SubmissionState is a snapshot of one submission.
type SubmissionState struct {
	Phase   Phase
	Percent int
	Stage   Stage
	Err     error
}

// Terminal reports whether no further transitions will happen.
func (s SubmissionState) Terminal() bool {
	return s.Phase == PhaseSucceeded || s.Phase == PhaseFailed
}

// Submission is an admitted upload running in the background.
type Submission struct {
	path   string
	events chan SubmissionState
	done   chan struct{}

	mu       sync.Mutex
	state    SubmissionState
	material *models.Material
	err      error
}

func newSubmission(path string) *Submission {
	return &Submission{
		path:   path,
		events: make(chan SubmissionState, 128),
		done:   make(chan struct{}),
		state:  SubmissionState{Phase: PhaseUploading},
	}
}

// Path is the blob store path of the upload.
func (s *Submission) Path() string { return s.path }

// State returns the current state.
func (s *Submission) State() SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events delivers state transitions and is closed once the submission ends.
// Slow readers may miss intermediate progress updates.
func (s *Submission) Events() <-chan SubmissionState { return s.events }

// Done is closed once the submission ends.
func (s *Submission) Done() <-chan struct{} { return s.done }

// Wait blocks until the submission ends and returns the created material or
// the stage error.
func (s *Submission) Wait(ctx context.Context) (*models.Material, error) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.material, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Submission) transition(state SubmissionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	select {
	case s.events <- state:
	default:
	}
}

func (s *Submission) finish(material *models.Material, err error) {
	s.mu.Lock()
	s.material = material
	s.err = err
	s.mu.Unlock()
	close(s.events)
	close(s.done)
}

// Pipeline runs at most one submission at a time: validate, upload the blob,
// then persist the material record. Failures are not retried.
type Pipeline struct {
	gate    *Gate
	blobs   BlobStore
	records RecordStore
	listing *ListingStore
	sink    Sink
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	current *Submission
}

// NewPipeline wires a pipeline.
func NewPipeline(gate *Gate, blobs BlobStore, records RecordStore, listing *ListingStore, sink Sink, logger *zap.Logger, now func() time.Time) *Pipeline {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		gate:    gate,
		blobs:   blobs,
		records: records,
		listing: listing,
		sink:    sink,
		logger:  logger,
		now:     now,
	}
}

// Busy reports whether a submission is running.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Current returns the running submission, if any.
func (p *Pipeline) Current() *Submission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Submit validates synchronously and, once admitted, starts the upload and
// returns immediately. The run is detached from ctx cancellation.
func (p *Pipeline) Submit(ctx context.Context, form Form, file *File, answer string) (*Submission, error) {
	p.mu.Lock()
	if p.current != nil {
		p.mu.Unlock()
		err := appErrors.Clone(appErrors.ErrSubmissionInProgress, "")
		p.sink.Notify(errorNotice(err))
		return nil, err
	}

	challenge, err := p.gate.Check(form, file, answer)
	if err != nil {
		p.mu.Unlock()
		if appErrors.FromError(err).Code == appErrors.ErrCaptchaMismatch.Code {
			p.sink.ShowChallenge(challenge)
		}
		p.sink.Notify(errorNotice(err))
		return nil, err
	}

	submittedAt := p.now()
	sub := newSubmission(fmt.Sprintf("materials/%d_%s", submittedAt.UnixMilli(), file.Name))
	p.current = sub
	p.mu.Unlock()

	p.publish(sub, SubmissionState{Phase: PhaseUploading, Percent: 0})

	runCtx := context.WithoutCancel(ctx)
	task := p.blobs.Put(runCtx, sub.path, file.Content, file.Size, file.Type)
	go p.run(runCtx, sub, task, form, file, submittedAt)

	return sub, nil
}

func (p *Pipeline) run(ctx context.Context, sub *Submission, task *UploadTask, form Form, file *File, submittedAt time.Time) {
	last := 0
	for ev := range task.Progress() {
		pct := ev.Percent()
		if pct == last {
			continue
		}
		last = pct
		p.publish(sub, SubmissionState{Phase: PhaseUploading, Percent: pct})
	}

	if err := task.Wait(ctx); err != nil {
		p.logger.Warn("upload failed", zap.String("path", sub.path), zap.Error(err))
		p.fail(sub, StageUpload, uploadFailed(err))
		return
	}

	p.publish(sub, SubmissionState{Phase: PhasePersisting, Percent: 100})

	url, err := p.blobs.DownloadURL(ctx, sub.path)
	if err != nil {
		p.logger.Warn("resolve download url failed", zap.String("path", sub.path), zap.Error(err))
		p.fail(sub, StagePersist, persistFailed(err))
		return
	}

	material := models.Material{
		Title:        strings.TrimSpace(form.Title),
		Author:       strings.TrimSpace(form.Author),
		Description:  strings.TrimSpace(form.Description),
		Section:      form.Section,
		Subsection:   form.ResolvedSubsection(),
		Type:         file.Type,
		FileURL:      url,
		FileName:     file.Name,
		DateArchived: submittedAt.UTC(),
		FlagCount:    0,
		FlaggedBy:    []string{},
	}
	id, err := p.records.Create(ctx, models.CollectionMaterials, material)
	if err != nil {
		p.logger.Warn("persist material failed", zap.String("path", sub.path), zap.Error(err))
		p.fail(sub, StagePersist, persistFailed(err))
		return
	}
	material.ID = id

	state := SubmissionState{Phase: PhaseSucceeded}
	sub.transition(state)
	p.release(sub)
	p.sink.SubmissionChanged(SubmissionEvent{State: state, SubmitEnabled: true})
	p.sink.Notify(Notice{Level: NoticeSuccess, Message: msgArchived})
	p.sink.ResetForm()
	p.sink.CloseSubmission()

	if err := p.listing.Refresh(ctx); err != nil {
		p.logger.Warn("refresh after submit failed", zap.Error(err))
	}
	sub.finish(&material, nil)
}

func (p *Pipeline) fail(sub *Submission, stage Stage, err *appErrors.Error) {
	state := SubmissionState{Phase: PhaseFailed, Stage: stage, Err: err}
	sub.transition(state)
	p.release(sub)
	p.sink.SubmissionChanged(SubmissionEvent{State: state, SubmitEnabled: true})
	p.sink.Notify(errorNotice(err))
	sub.finish(nil, err)
}

func (p *Pipeline) publish(sub *Submission, state SubmissionState) {
	sub.transition(state)
	p.sink.SubmissionChanged(SubmissionEvent{State: state, ProgressVisible: true})
}

func (p *Pipeline) release(sub *Submission) {
	p.mu.Lock()
	if p.current == sub {
		p.current = nil
	}
	p.mu.Unlock()
}
