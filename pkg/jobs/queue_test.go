package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcomeRecorder struct {
	mu  sync.Mutex
	got map[string]int
}

func (r *outcomeRecorder) record(_ string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.got == nil {
		r.got = map[string]int{}
	}
	r.got[outcome]++
}

func (r *outcomeRecorder) count(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.got[outcome]
}

func TestQueueRunsJobsAndReleasesIDs(t *testing.T) {
	done := make(chan string, 2)
	rec := &outcomeRecorder{}
	q := NewQueue("exports", func(_ context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 2, OnOutcome: rec.record})

	require.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])

	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, rec.count(OutcomeSucceeded))
	require.NoError(t, q.Enqueue(Job{ID: "a"}), "finished IDs may be enqueued again")
}

func TestQueueRejectsDuplicateInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("exports", func(context.Context, Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	<-started
	err := q.Enqueue(Job{ID: "job-1"})
	assert.ErrorIs(t, err, ErrDuplicateJob)
	assert.Equal(t, 1, q.Pending())
	close(release)
}

func TestQueueRetriesThenReportsFailure(t *testing.T) {
	var attempts int32
	failed := make(chan Job, 1)
	rec := &outcomeRecorder{}
	q := NewQueue("retry", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnFailure:  func(_ context.Context, job Job, _ error) { failed <- job },
		OnOutcome:  rec.record,
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))

	select {
	case job := <-failed:
		assert.Equal(t, "x", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("failure hook not invoked")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, 2, rec.count(OutcomeRetried))
	assert.Equal(t, 1, rec.count(OutcomeFailed))
	assert.Zero(t, q.Pending())
}

func TestQueueNegativeRetriesDisablesRetry(t *testing.T) {
	var attempts int32
	failed := make(chan struct{}, 1)
	q := NewQueue("once", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: -1,
		OnFailure:  func(context.Context, Job, error) { failed <- struct{}{} },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "y"}))
	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("failure hook not invoked")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}
