package archive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

func validForm() Form {
	return Form{
		Title:       "Harbour Songs",
		Author:      "Mara",
		Description: "Field recordings from the harbour",
		Section:     "audio",
		Subsection:  "Music",
	}
}

func validFile() *File {
	return &File{Name: "a.png", Type: "image/png", Size: 2 * 1024 * 1024, Content: strings.NewReader("x")}
}

func codeOf(err error) string {
	return appErrors.FromError(err).Code
}

func TestGateChallengeOperandsInRange(t *testing.T) {
	gate := NewGate(nil)
	for i := 0; i < 200; i++ {
		c := gate.Open()
		assert.GreaterOrEqual(t, c.A, 1)
		assert.LessOrEqual(t, c.A, 10)
		assert.GreaterOrEqual(t, c.B, 1)
		assert.LessOrEqual(t, c.B, 10)
	}
	assert.Equal(t, "What is 3 + 4?", NewGate(seqRandom()).Challenge().Question())
}

func TestGateOnlyExactSumAdmits(t *testing.T) {
	gate := NewGate(seqRandom())

	_, err := gate.Check(validForm(), validFile(), " 7 ")
	require.NoError(t, err)

	for _, answer := range []string{"6", "8", "", "seven", "7.0", "-7"} {
		_, err := gate.Check(validForm(), validFile(), answer)
		assert.Equal(t, appErrors.ErrCaptchaMismatch.Code, codeOf(err), answer)
		assert.True(t, appErrors.IsValidationRejection(err))
	}
}

func TestGateMismatchRegeneratesChallenge(t *testing.T) {
	values := []int{0, 0, 9, 9}
	i := 0
	gate := NewGate(func(int) int {
		v := values[i%len(values)]
		i++
		return v
	})
	require.Equal(t, Challenge{A: 1, B: 1}, gate.Challenge())

	next, err := gate.Check(validForm(), validFile(), "3")
	require.Error(t, err)
	assert.Equal(t, Challenge{A: 10, B: 10}, next)
	assert.Equal(t, next, gate.Challenge())

	_, err = gate.Check(validForm(), validFile(), "2")
	assert.Equal(t, appErrors.ErrCaptchaMismatch.Code, codeOf(err), "old answer must no longer admit")
}

func TestGateRejectionOrder(t *testing.T) {
	gate := NewGate(seqRandom())

	blank := validForm()
	blank.Title = "   "
	_, err := gate.Check(blank, nil, "0")
	assert.Equal(t, appErrors.ErrFormInvalid.Code, codeOf(err), "form fields come first")
	assert.Contains(t, err.Error(), "title")

	_, err = gate.Check(validForm(), nil, "0")
	assert.Equal(t, appErrors.ErrCaptchaMismatch.Code, codeOf(err), "captcha before file")

	_, err = gate.Check(validForm(), nil, "7")
	assert.Equal(t, appErrors.ErrFileRequired.Code, codeOf(err))

	bad := &File{Name: "movie.mkv", Type: "video/x-matroska", Size: 50 * 1024 * 1024}
	_, err = gate.Check(validForm(), bad, "7")
	assert.Equal(t, appErrors.ErrFileTypeNotAllowed.Code, codeOf(err), "type before size")

	big := &File{Name: "clip.mp4", Type: "video/mp4", Size: MaxFileSize + 1}
	_, err = gate.Check(validForm(), big, "7")
	assert.Equal(t, appErrors.ErrFileTooLarge.Code, codeOf(err))

	edge := &File{Name: "clip.mp4", Type: "video/mp4", Size: MaxFileSize}
	_, err = gate.Check(validForm(), edge, "7")
	assert.NoError(t, err)
}

func TestGateTaxonomyRules(t *testing.T) {
	gate := NewGate(seqRandom())

	form := validForm()
	form.Section = "sculpture"
	_, err := gate.Check(form, validFile(), "7")
	assert.Equal(t, appErrors.ErrFormInvalid.Code, codeOf(err))

	form = validForm()
	form.Subsection = "Poetry"
	_, err = gate.Check(form, validFile(), "7")
	assert.Equal(t, appErrors.ErrFormInvalid.Code, codeOf(err), "subsection must belong to section")

	form = validForm()
	form.Subsection = "Other"
	form.OtherSubsection = "  "
	_, err = gate.Check(form, validFile(), "7")
	assert.Equal(t, appErrors.ErrFormInvalid.Code, codeOf(err), "other needs free text")

	form.OtherSubsection = " Field Recordings "
	_, err = gate.Check(form, validFile(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Field Recordings", form.ResolvedSubsection())
}

func TestIsAllowedType(t *testing.T) {
	for _, typ := range AllowedTypes {
		assert.True(t, IsAllowedType(typ), typ)
	}
	assert.False(t, IsAllowedType("image/svg+xml"))
	assert.False(t, IsAllowedType("text/plain; charset=utf-8"))
}
