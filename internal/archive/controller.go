package archive

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/community-archive/internal/models"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

// Option customises a Controller.
type Option func(*options)

type options struct {
	logger *zap.Logger
	now    func() time.Time
	intn   func(int) int
}

// WithLogger sets the logger used by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRandom overrides the challenge operand source. intn returns [0,n).
func WithRandom(intn func(int) int) Option {
	return func(o *options) { o.intn = intn }
}

// Controller is the single entry point for user intents. It owns one of each
// component and keeps the sink in sync with the listing.
type Controller struct {
	gate     *Gate
	listing  *ListingStore
	browser  *Browser
	pipeline *Pipeline
	flags    *FlagWorkflow
	tokens   TokenSource
	sink     Sink
	logger   *zap.Logger
}

// NewController wires the client core against its collaborators.
func NewController(blobs BlobStore, records RecordStore, tokens TokenSource, sink Sink, opts ...Option) *Controller {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if sink == nil {
		sink = NopSink{}
	}

	listing := NewListingStore(records, sink, o.logger)
	gate := NewGate(o.intn)
	c := &Controller{
		gate:     gate,
		listing:  listing,
		browser:  NewBrowser(listing),
		pipeline: NewPipeline(gate, blobs, records, listing, sink, o.logger, o.now),
		flags:    NewFlagWorkflow(listing, records, sink, o.logger, o.now),
		tokens:   tokens,
		sink:     sink,
		logger:   o.logger,
	}
	listing.OnRefresh(func([]models.Material) {
		c.sink.Render(c.browser.Current())
	})
	return c
}

// Refresh loads the listing. Used for the initial load and after mutations.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.listing.Refresh(ctx)
}

// OpenSubmission shows the submission surface with a fresh challenge.
func (c *Controller) OpenSubmission() Challenge {
	challenge := c.gate.Open()
	c.sink.ShowChallenge(challenge)
	return challenge
}

// CloseSubmission hides the submission surface and clears the form.
func (c *Controller) CloseSubmission() {
	c.sink.ResetForm()
	c.sink.CloseSubmission()
}

// Submit hands a filled form to the pipeline.
func (c *Controller) Submit(ctx context.Context, form Form, file *File, answer string) (*Submission, error) {
	return c.pipeline.Submit(ctx, form, file, answer)
}

// SelectCategory renders the materials of one section.
func (c *Controller) SelectCategory(section string) View {
	view := c.browser.ByCategory(section)
	c.sink.Render(view)
	return view
}

// Search renders the materials matching query.
func (c *Controller) Search(query string) View {
	view := c.browser.Search(query)
	c.sink.Render(view)
	return view
}

// ShowAll renders the full listing.
func (c *Controller) ShowAll() View {
	view := c.browser.ShowAll()
	c.sink.Render(view)
	return view
}

// ViewDetail shows one material from the snapshot.
func (c *Controller) ViewDetail(id string) (models.Material, error) {
	material, ok := c.listing.Find(id)
	if !ok {
		return models.Material{}, appErrors.Clone(appErrors.ErrMaterialNotFound, fmt.Sprintf("material %s not found", id))
	}
	c.sink.ShowDetail(material)
	return material, nil
}

// Flag reports a material using this profile's reporter token.
func (c *Controller) Flag(ctx context.Context, id, reason string) (FlagOutcome, error) {
	token, err := c.tokens.Token()
	if err != nil {
		c.logger.Warn("reporter token unavailable", zap.Error(err))
		failure := flagFailed(err)
		c.sink.Notify(errorNotice(failure))
		return "", failure
	}
	return c.flags.Flag(ctx, id, reason, token)
}

// FlagPhase exposes the local phase of this profile's flag on id.
func (c *Controller) FlagPhase(id string) FlagPhase {
	token, err := c.tokens.Token()
	if err != nil {
		return FlagPhaseNone
	}
	return c.flags.Phase(id, token)
}

// State returns a snapshot of the client state.
func (c *Controller) State() State {
	state := State{
		Materials:    c.listing.All(),
		ActiveFilter: c.browser.ActiveFilter(),
		Challenge:    c.gate.Challenge(),
	}
	if sub := c.pipeline.Current(); sub != nil {
		s := sub.State()
		state.Submission = &s
	}
	if token, err := c.tokens.Token(); err == nil {
		state.ReporterToken = token
	}
	return state
}
