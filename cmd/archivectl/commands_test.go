package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/community-archive/internal/models"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

var (
	older = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	newer = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
)

func tokenPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "profile", "reporter_token")
}

func TestListRendersNewestFirst(t *testing.T) {
	f := newFakeArchive(t,
		material("m1", "Old Poem", "literature", older),
		material("m2", "New Song", "audio", newer),
	)

	res := runCLI(t, f, tokenPath(t), "", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "All Materials")
	assert.Less(t, strings.Index(res.stdout, "New Song"), strings.Index(res.stdout, "Old Poem"))
}

func TestCategoryFiltersAndReportsEmpty(t *testing.T) {
	f := newFakeArchive(t, material("m1", "Old Poem", "literature", older))

	res := runCLI(t, f, tokenPath(t), "", "category", "literature")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Literature")
	assert.Contains(t, res.stdout, "Old Poem")

	res = runCLI(t, f, tokenPath(t), "", "category", "audio")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No materials in audio yet.")

	res = runCLI(t, f, tokenPath(t), "", "category", "cooking")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "unknown section")
}

func TestSearchMatchesAndHeading(t *testing.T) {
	f := newFakeArchive(t,
		material("m1", "Old Poem", "literature", older),
		material("m2", "New Song", "audio", newer),
	)

	res := runCLI(t, f, tokenPath(t), "", "search", "  POEM ")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `Search Results: "poem"`)
	assert.Contains(t, res.stdout, "Old Poem")
	assert.NotContains(t, res.stdout, "New Song")
}

func TestFetchFailureRendersEmptyView(t *testing.T) {
	f := newFakeArchive(t)
	f.srv.Close()

	res := runCLI(t, f, tokenPath(t), "", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No materials archived yet.")
}

func TestShowDetailAndMissing(t *testing.T) {
	m := material("m1", "Old Poem", "literature", older)
	m.FlagCount = 3
	f := newFakeArchive(t, m)

	res := runCLI(t, f, tokenPath(t), "", "show", "m1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Old Poem")
	assert.Contains(t, res.stdout, "flagged for review")
	assert.Contains(t, res.stdout, "Literature / Poetry")

	res = runCLI(t, f, tokenPath(t), "", "show", "nope")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, appErrors.ErrMaterialNotFound)
}

func TestFlagTwiceIsDeduplicated(t *testing.T) {
	f := newFakeArchive(t, material("m1", "Old Poem", "literature", older))
	token := tokenPath(t)

	res := runCLI(t, f, token, "", "flag", "m1", "--reason", "Spam")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Thank you for your report")

	res = runCLI(t, f, token, "", "flag", "m1", "--reason", "Spam")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "You have already reported this content.")

	materials, reports, _, patches := f.snapshot()
	require.Len(t, materials, 1)
	assert.Equal(t, 1, materials[0].FlagCount)
	assert.Len(t, materials[0].FlaggedBy, 1)
	assert.Equal(t, 1, patches)
	require.Len(t, reports, 1)
	assert.Equal(t, "Spam", reports[0].Reason)
	assert.Equal(t, "Old Poem", reports[0].MaterialTitle)
}

func TestFlagReadsReasonFromPrompt(t *testing.T) {
	f := newFakeArchive(t, material("m1", "Old Poem", "literature", older))

	res := runCLI(t, f, tokenPath(t), "Offensive\n", "flag", "m1")
	require.NoError(t, res.err)
	_, reports, _, _ := f.snapshot()
	require.Len(t, reports, 1)
	assert.Equal(t, "Offensive", reports[0].Reason)
}

func TestFlagBlankReasonIsIgnored(t *testing.T) {
	f := newFakeArchive(t, material("m1", "Old Poem", "literature", older))

	res := runCLI(t, f, tokenPath(t), "", "flag", "m1", "--reason", "   ")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "nothing reported")
	_, reports, _, patches := f.snapshot()
	assert.Empty(t, reports)
	assert.Zero(t, patches)
}

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "a.png")
	content := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 2048)...)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func submitArgs(path string, extra ...string) []string {
	args := []string{"submit", path,
		"--title", "Sunset",
		"--author", "Ana",
		"--description", "Evening sky",
		"--section", "visual art",
		"--subsection", "Photographs",
	}
	return append(args, extra...)
}

func TestSubmitUploadsAndPersists(t *testing.T) {
	f := newFakeArchive(t)
	path := writePNG(t, t.TempDir())

	res := runCLI(t, f, tokenPath(t), "", submitArgs(path, "--answer", "2")...)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Material archived successfully!")
	assert.Contains(t, res.stdout, "id: m-new")

	materials, _, blobs, _ := f.snapshot()
	require.Len(t, blobs, 1)
	for key, body := range blobs {
		assert.True(t, strings.HasPrefix(key, "materials/"))
		assert.True(t, strings.HasSuffix(key, "_a.png"))
		assert.Len(t, body, 2056)
	}
	require.Len(t, materials, 1)
	assert.Equal(t, "image/png", materials[0].Type)
	assert.Equal(t, "a.png", materials[0].FileName)
	assert.Equal(t, "visual art", materials[0].Section)
	assert.Zero(t, materials[0].FlagCount)
}

func TestSubmitWrongAnswerNeverUploads(t *testing.T) {
	f := newFakeArchive(t)
	path := writePNG(t, t.TempDir())

	res := runCLI(t, f, tokenPath(t), "", submitArgs(path, "--answer", "5")...)
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, appErrors.ErrCaptchaMismatch)
	assert.Contains(t, res.stderr, "Incorrect answer")

	materials, _, blobs, _ := f.snapshot()
	assert.Empty(t, blobs)
	assert.Empty(t, materials)
}

func TestSubmitPromptsAgainAfterWrongAnswer(t *testing.T) {
	f := newFakeArchive(t)
	path := writePNG(t, t.TempDir())

	res := runCLI(t, f, tokenPath(t), "5\n2\n", submitArgs(path)...)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, 2, strings.Count(res.stdout, "What is 1 + 1?"))

	materials, _, _, _ := f.snapshot()
	assert.Len(t, materials, 1)
}

func TestSubmitRejectsDisallowedType(t *testing.T) {
	f := newFakeArchive(t)
	path := writePNG(t, t.TempDir())

	res := runCLI(t, f, tokenPath(t), "", submitArgs(path, "--answer", "2", "--type", "application/zip")...)
	require.Error(t, res.err)
	assert.True(t, appErrors.IsValidationRejection(res.err))

	_, _, blobs, _ := f.snapshot()
	assert.Empty(t, blobs)
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	f := newFakeArchive(t)
	path := writePNG(t, t.TempDir())

	res := runCLI(t, f, tokenPath(t), "", "submit", path, "--answer", "2")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, appErrors.ErrFormInvalid)
}

func TestWhoamiPersistsAndResets(t *testing.T) {
	token := tokenPath(t)

	first := runCLI(t, nil, token, "", "whoami")
	require.NoError(t, first.err)
	again := runCLI(t, nil, token, "", "whoami")
	require.NoError(t, again.err)
	assert.Equal(t, first.stdout, again.stdout)
	assert.True(t, strings.HasPrefix(first.stdout, "user_"))

	reset := runCLI(t, nil, token, "", "whoami", "--reset")
	require.NoError(t, reset.err)
	assert.NotEqual(t, first.stdout, reset.stdout)
}

func TestTaxonomyPrintsSections(t *testing.T) {
	res := runCLI(t, nil, tokenPath(t), "", "taxonomy")
	require.NoError(t, res.err)
	for _, section := range models.Sections() {
		assert.Contains(t, res.stdout, section)
	}
	assert.Contains(t, res.stdout, "Oral Histories")
}

func TestExportCreateWaitsAndDownloads(t *testing.T) {
	f := newFakeArchive(t)
	f.exportCSV = "ID,Title\nm1,Old Poem\n"
	out := filepath.Join(t.TempDir(), "catalog.csv")

	res := runCLI(t, f, tokenPath(t), "", "export", "create", "--format", "csv", "--poll", "10ms", "-o", out)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "queued export job-1")
	assert.Contains(t, res.stdout, "FINISHED")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, f.exportCSV, string(raw))
}

func TestExportStatusUnknownJob(t *testing.T) {
	f := newFakeArchive(t)

	res := runCLI(t, f, tokenPath(t), "", "export", "status", "missing")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "no route")
}
