package archive

import (
	"context"
	"io"
	"math"
	"sync"
)

// Direction orders record store queries.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}

// BlobStore uploads file bodies and resolves their retrieval URLs.
type BlobStore interface {
	Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) *UploadTask
	DownloadURL(ctx context.Context, path string) (string, error)
}

// RecordStore persists documents grouped in named collections.
type RecordStore interface {
	Create(ctx context.Context, collection string, fields any) (string, error)
	Query(ctx context.Context, collection, orderBy string, dir Direction, dest any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

// TokenSource hands out the reporter token, creating and saving it on first use.
type TokenSource interface {
	Token() (string, error)
}

// Progress is one upload progress observation.
type Progress struct {
	Transferred int64
	Total       int64
}

// Percent returns the rounded completion percentage in [0,100].
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(p.Transferred) * 100 / float64(p.Total)))
	return min(max(pct, 0), 100)
}

// UploadTask is a running upload. Progress events arrive on a channel that
// holds only the latest observation; the final observation is always
// delivered before the channel closes.
type UploadTask struct {
	progress chan Progress
	done     chan struct{}

	mu   sync.Mutex
	last Progress
	err  error
}

// StartUpload runs fn on its own goroutine and returns the task tracking it.
// fn reports progress through report, which never blocks.
func StartUpload(ctx context.Context, fn func(ctx context.Context, report func(Progress)) error) *UploadTask {
	t := &UploadTask{
		progress: make(chan Progress, 1),
		done:     make(chan struct{}),
	}
	go func() {
		err := fn(ctx, t.report)
		t.finish(err)
	}()
	return t
}

// FailedUpload returns a task that has already failed with err.
func FailedUpload(err error) *UploadTask {
	t := &UploadTask{
		progress: make(chan Progress, 1),
		done:     make(chan struct{}),
	}
	t.finish(err)
	return t
}

// Progress returns the progress channel. It is closed when the upload ends.
func (t *UploadTask) Progress() <-chan Progress {
	return t.progress
}

// Done is closed when the upload ends.
func (t *UploadTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the upload ends or ctx is done.
func (t *UploadTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *UploadTask) report(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isDone() {
		return
	}
	if p.Transferred < t.last.Transferred {
		p.Transferred = t.last.Transferred
	}
	t.last = p
	t.publish(p)
}

func (t *UploadTask) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
	if err == nil && t.last.Total > 0 && t.last.Transferred < t.last.Total {
		t.last.Transferred = t.last.Total
		t.publish(t.last)
	}
	close(t.progress)
	close(t.done)
}

// publish replaces any unread observation with p. Callers hold t.mu.
func (t *UploadTask) publish(p Progress) {
	select {
	case t.progress <- p:
		return
	default:
	}
	select {
	case <-t.progress:
	default:
	}
	select {
	case t.progress <- p:
	default:
	}
}

func (t *UploadTask) isDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
