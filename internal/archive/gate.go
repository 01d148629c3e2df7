package archive

import (
	"errors"
	"io"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/community-archive/internal/models"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

// MaxFileSize is the largest accepted upload in bytes.
const MaxFileSize int64 = 15 * 1024 * 1024

// AllowedTypes lists the declared MIME types accepted for upload.
var AllowedTypes = []string{
	"image/jpeg", "image/png", "image/gif", "image/webp",
	"video/mp4", "video/webm",
	"audio/mpeg", "audio/wav", "audio/ogg",
	"text/plain", "application/pdf",
}

// IsAllowedType reports whether contentType may be uploaded.
func IsAllowedType(contentType string) bool {
	return slices.Contains(AllowedTypes, contentType)
}

// Form carries the text fields of a submission.
type Form struct {
	Title           string `validate:"notblank"`
	Author          string `validate:"notblank"`
	Description     string `validate:"notblank"`
	Section         string `validate:"section"`
	Subsection      string `validate:"required"`
	OtherSubsection string
}

// ResolvedSubsection applies the Other override.
func (f Form) ResolvedSubsection() string {
	return models.ResolveSubsection(f.Subsection, f.OtherSubsection)
}

// File is the selected upload. Type is the declared MIME type and Content is
// read once by the pipeline.
type File struct {
	Name    string
	Type    string
	Size    int64
	Content io.Reader
}

// Gate checks submissions before any I/O happens. The arithmetic challenge
// deters casual bots only; nothing here is a security boundary.
type Gate struct {
	validate *validator.Validate
	intn     func(int) int

	mu        sync.Mutex
	challenge Challenge
}

// NewGate builds a gate. intn must return values in [0,n); nil uses math/rand.
func NewGate(intn func(int) int) *Gate {
	if intn == nil {
		intn = rand.Intn
	}
	validate := validator.New()
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("section", func(fl validator.FieldLevel) bool {
		return models.IsSection(fl.Field().String())
	})
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		form := sl.Current().Interface().(Form)
		if !models.IsSection(form.Section) || form.Subsection == "" {
			return
		}
		if !models.IsSubsection(form.Section, form.Subsection) {
			sl.ReportError(form.Subsection, "Subsection", "Subsection", "subsection", "")
			return
		}
		if form.ResolvedSubsection() == "" {
			sl.ReportError(form.OtherSubsection, "OtherSubsection", "OtherSubsection", "notblank", "")
		}
	}, Form{})

	g := &Gate{validate: validate, intn: intn}
	g.Open()
	return g
}

// Open draws a fresh challenge with operands in [1,10].
func (g *Gate) Open() Challenge {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.challenge = Challenge{A: g.intn(10) + 1, B: g.intn(10) + 1}
	return g.challenge
}

// Challenge returns the current challenge.
func (g *Gate) Challenge() Challenge {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.challenge
}

// Check rejects the submission in a fixed order: form fields, challenge
// answer, missing file, declared type, size. A wrong answer replaces the
// challenge; the new one is returned alongside the error.
func (g *Gate) Check(form Form, file *File, answer string) (Challenge, error) {
	if err := g.validate.Struct(form); err != nil {
		return g.Challenge(), formInvalid(err)
	}

	if !g.answerMatches(answer) {
		return g.Open(), appErrors.Clone(appErrors.ErrCaptchaMismatch, "")
	}

	if file == nil || file.Name == "" {
		return g.Challenge(), appErrors.Clone(appErrors.ErrFileRequired, "")
	}
	if !IsAllowedType(file.Type) {
		return g.Challenge(), appErrors.Clone(appErrors.ErrFileTypeNotAllowed, "")
	}
	if file.Size > MaxFileSize {
		return g.Challenge(), appErrors.Clone(appErrors.ErrFileTooLarge, "")
	}
	return g.Challenge(), nil
}

func (g *Gate) answerMatches(answer string) bool {
	got, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return got == g.challenge.A+g.challenge.B
}

func formInvalid(err error) *appErrors.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrFormInvalid.Code, appErrors.ErrFormInvalid.Status, appErrors.ErrFormInvalid.Message)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return appErrors.Wrap(err, appErrors.ErrFormInvalid.Code, appErrors.ErrFormInvalid.Status,
		appErrors.ErrFormInvalid.Message+": "+strings.Join(fields, ", "))
}
