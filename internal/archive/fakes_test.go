package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/noah-isme/community-archive/internal/models"
)

var fixedNow = time.UnixMilli(1700000000000).UTC()

func clock() time.Time { return fixedNow }

// seqRandom returns operands 2 and 3 (challenge "What is 3 + 4?") on repeat.
func seqRandom() func(int) int {
	values := []int{2, 3}
	i := 0
	return func(int) int {
		v := values[i%len(values)]
		i++
		return v
	}
}

type putCall struct {
	path        string
	size        int64
	contentType string
	body        []byte
}

type fakeBlobs struct {
	mu      sync.Mutex
	puts    []putCall
	putErr  error
	urlErr  error
	release chan struct{}
}

func (f *fakeBlobs) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) *UploadTask {
	return StartUpload(ctx, func(ctx context.Context, report func(Progress)) error {
		if f.release != nil {
			<-f.release
		}
		data, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		for _, step := range []int64{size / 4, size / 2, size} {
			report(Progress{Transferred: step, Total: size})
		}
		f.mu.Lock()
		f.puts = append(f.puts, putCall{path: path, size: size, contentType: contentType, body: data})
		f.mu.Unlock()
		return f.putErr
	})
}

func (f *fakeBlobs) DownloadURL(_ context.Context, path string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "https://blobs.test/files/" + path, nil
}

func (f *fakeBlobs) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

type fakeRecords struct {
	mu        sync.Mutex
	materials []models.Material
	reports   []models.FlagReport
	nextID    int
	calls     []string

	queryErr  error
	createErr map[string]error
	updateErr error
}

func newFakeRecords(materials ...models.Material) *fakeRecords {
	return &fakeRecords{materials: materials, createErr: map[string]error{}}
}

func (f *fakeRecords) Create(_ context.Context, collection string, fields any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+collection)
	if err := f.createErr[collection]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("%s-%d", collection, f.nextID)
	switch v := fields.(type) {
	case models.Material:
		v.ID = id
		f.materials = append(f.materials, v.Clone())
	case models.FlagReport:
		v.ID = id
		f.reports = append(f.reports, v)
	default:
		return "", fmt.Errorf("unexpected fields %T", fields)
	}
	return id, nil
}

func (f *fakeRecords) Query(_ context.Context, collection, orderBy string, dir Direction, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("query:%s:%s:%s", collection, orderBy, dir))
	if f.queryErr != nil {
		return f.queryErr
	}
	out, ok := dest.(*[]models.Material)
	if !ok {
		return fmt.Errorf("unexpected dest %T", dest)
	}
	items := models.CloneMaterials(f.materials)
	slices.SortStableFunc(items, func(a, b models.Material) int {
		return b.DateArchived.Compare(a.DateArchived)
	})
	*out = items
	return nil
}

func (f *fakeRecords) Update(_ context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update:"+collection+":"+id)
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.materials {
		if f.materials[i].ID != id {
			continue
		}
		f.materials[i].FlagCount = fields["flagCount"].(int)
		f.materials[i].FlaggedBy = slices.Clone(fields["flaggedBy"].([]string))
		return nil
	}
	return errors.New("no such document")
}

func (f *fakeRecords) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeRecords) material(id string) models.Material {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.materials {
		if m.ID == id {
			return m.Clone()
		}
	}
	return models.Material{}
}

type staticToken struct {
	token string
	err   error
}

func (s staticToken) Token() (string, error) { return s.token, s.err }

type recordingSink struct {
	mu         sync.Mutex
	views      []View
	loading    []bool
	challenges []Challenge
	events     []SubmissionEvent
	notices    []Notice
	resets     int
	closes     int
	details    []models.Material
	order      []string
}

func (s *recordingSink) Render(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, v)
	s.order = append(s.order, "render")
}

func (s *recordingSink) SetLoading(b bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = append(s.loading, b)
}

func (s *recordingSink) ShowChallenge(c Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges = append(s.challenges, c)
}

func (s *recordingSink) SubmissionChanged(e SubmissionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	s.order = append(s.order, "submission:"+string(e.State.Phase))
}

func (s *recordingSink) Notify(n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	s.order = append(s.order, "notify")
}

func (s *recordingSink) ResetForm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	s.order = append(s.order, "reset")
}

func (s *recordingSink) CloseSubmission() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.order = append(s.order, "close")
}

func (s *recordingSink) ShowDetail(m models.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details = append(s.details, m)
}

func (s *recordingSink) lastNotice() Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notices) == 0 {
		return Notice{}
	}
	return s.notices[len(s.notices)-1]
}

func (s *recordingSink) lastView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.views) == 0 {
		return View{}
	}
	return s.views[len(s.views)-1]
}

func (s *recordingSink) submissionEvents() []SubmissionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

func (s *recordingSink) sequence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

func material(id, title, section string, archived time.Time) models.Material {
	return models.Material{
		ID:           id,
		Title:        title,
		Author:       "Author " + id,
		Description:  "Description of " + title,
		Section:      section,
		Subsection:   models.Subsections(section)[0],
		Type:         "image/png",
		FileURL:      "https://blobs.test/files/materials/" + id,
		FileName:     id + ".png",
		DateArchived: archived,
		FlaggedBy:    []string{},
	}
}
