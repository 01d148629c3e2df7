package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/noah-isme/community-archive/internal/archive"
	"github.com/noah-isme/community-archive/internal/models"
)

// terminalSink renders client events as plain terminal output. Views are
// printed only once a command asks for them, so background refreshes after
// a flag or submission stay quiet.
type terminalSink struct {
	out      io.Writer
	status   io.Writer
	colorize bool

	mu        sync.Mutex
	views     bool
	bar       *progressbar.ProgressBar
	challenge archive.Challenge
}

var _ archive.Sink = (*terminalSink)(nil)

func newTerminalSink(out, status io.Writer, colorize bool) *terminalSink {
	return &terminalSink{out: out, status: status, colorize: colorize}
}

func (s *terminalSink) showViews() {
	s.mu.Lock()
	s.views = true
	s.mu.Unlock()
}

func (s *terminalSink) Render(view archive.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.views {
		return
	}

	fmt.Fprintln(s.out, s.paint(view.Heading(), text.Bold))
	if len(view.Materials) == 0 {
		fmt.Fprintln(s.out, view.EmptyMessage())
		return
	}
	fmt.Fprintln(s.out, renderTable(
		[]string{"ID", "Title", "Author", "Section", "Type", "Archived", "Flags"},
		materialRows(view.Materials, time.Now()),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

func (s *terminalSink) SetLoading(loading bool) {
	if !loading || !s.colorize {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.status, s.paint("Loading materials...", text.Faint))
}

func (s *terminalSink) ShowChallenge(challenge archive.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge = challenge
}

func (s *terminalSink) currentChallenge() archive.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

func (s *terminalSink) SubmissionChanged(event archive.SubmissionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.State.Phase {
	case archive.PhaseUploading:
		if s.bar == nil {
			s.bar = progressbar.NewOptions(100,
				progressbar.OptionSetWriter(s.status),
				progressbar.OptionSetDescription("Uploading"),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionEnableColorCodes(s.colorize),
				progressbar.OptionThrottle(0),
			)
		}
		_ = s.bar.Set(event.State.Percent)
	case archive.PhasePersisting:
		s.finishBar()
		fmt.Fprintln(s.status, "Saving details...")
	default:
		if !event.ProgressVisible {
			s.finishBar()
		}
	}
}

// finishBar closes the running bar. Callers hold s.mu.
func (s *terminalSink) finishBar() {
	if s.bar == nil {
		return
	}
	_ = s.bar.Finish()
	fmt.Fprintln(s.status)
	s.bar = nil
}

func (s *terminalSink) Notify(notice archive.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch notice.Level {
	case archive.NoticeSuccess:
		fmt.Fprintln(s.out, s.paint(notice.Message, text.FgGreen))
	case archive.NoticeError:
		fmt.Fprintln(s.status, s.paint("Error: "+notice.Message, text.FgRed))
	default:
		fmt.Fprintln(s.out, s.paint(notice.Message, text.FgYellow))
	}
}

func (s *terminalSink) ResetForm() {}

func (s *terminalSink) CloseSubmission() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishBar()
}

func (s *terminalSink) ShowDetail(m models.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(s.out, s.paint(m.Title, text.Bold))
	if m.Flagged() {
		fmt.Fprintln(s.out, s.paint("This material has been flagged for review.", text.FgYellow))
	}
	rows := [][]string{
		{"ID", m.ID},
		{"Author", m.Author},
		{"Section", models.SectionLabel(m.Section) + " / " + m.Subsection},
		{"Type", m.Type + " (" + string(m.MediaKind()) + ")"},
		{"File", m.FileName},
		{"URL", m.FileURL},
		{"Archived", m.DateArchived.Local().Format("Jan 2, 2006 15:04")},
		{"Flags", strconv.Itoa(m.FlagCount)},
		{"Description", m.Description},
	}
	fmt.Fprintln(s.out, renderTable([]string{"Field", "Value"}, rows, nil))
}

func (s *terminalSink) paint(msg string, colors ...text.Color) string {
	if !s.colorize {
		return msg
	}
	return text.Colors(colors).Sprint(msg)
}

func materialRows(items []models.Material, now time.Time) [][]string {
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		flags := strconv.Itoa(m.FlagCount)
		if m.Flagged() {
			flags += " !"
		}
		rows = append(rows, []string{
			m.ID,
			truncate(m.Title, 40),
			truncate(m.Author, 24),
			m.Section + " / " + m.Subsection,
			string(m.MediaKind()),
			humanize.RelTime(m.DateArchived, now, "ago", "from now"),
			flags,
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
