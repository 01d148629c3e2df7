package archive

import (
	"fmt"

	"github.com/noah-isme/community-archive/internal/models"
)

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short message shown to the user.
type Notice struct {
	Level   NoticeLevel
	Code    string
	Message string
}

// Challenge is the arithmetic question guarding submissions.
type Challenge struct {
	A int
	B int
}

// Question renders the challenge as shown to the user.
func (c Challenge) Question() string {
	return fmt.Sprintf("What is %d + %d?", c.A, c.B)
}

// SubmissionEvent describes how the submission surface should look.
type SubmissionEvent struct {
	State           SubmissionState
	SubmitEnabled   bool
	ProgressVisible bool
}

// Sink is the presentation layer. Implementations must be safe for use from
// the pipeline goroutine.
type Sink interface {
	Render(view View)
	SetLoading(loading bool)
	ShowChallenge(challenge Challenge)
	SubmissionChanged(event SubmissionEvent)
	Notify(notice Notice)
	ResetForm()
	CloseSubmission()
	ShowDetail(material models.Material)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Render(View)                       {}
func (NopSink) SetLoading(bool)                   {}
func (NopSink) ShowChallenge(Challenge)           {}
func (NopSink) SubmissionChanged(SubmissionEvent) {}
func (NopSink) Notify(Notice)                     {}
func (NopSink) ResetForm()                        {}
func (NopSink) CloseSubmission()                  {}
func (NopSink) ShowDetail(models.Material)        {}
