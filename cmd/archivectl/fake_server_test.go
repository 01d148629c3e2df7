package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/noah-isme/community-archive/internal/dto"
	"github.com/noah-isme/community-archive/internal/models"
)

// fakeArchive is an in-memory stand-in for the archive server API.
type fakeArchive struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	materials []models.Material
	reports   []models.FlagReport
	blobs     map[string][]byte
	patches   int
	exportCSV string
}

func newFakeArchive(t *testing.T, seed ...models.Material) *fakeArchive {
	t.Helper()
	f := &fakeArchive{t: t, materials: seed, blobs: map[string][]byte{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeArchive) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/blobs/"):
		key := strings.TrimPrefix(path, "/api/v1/blobs/")
		if r.Method == http.MethodPut {
			body, _ := io.ReadAll(r.Body)
			f.blobs[key] = body
			f.write(w, http.StatusCreated, dto.BlobResponse{Path: key, Size: int64(len(body))})
			return
		}
		if _, ok := f.blobs[key]; !ok {
			f.fail(w, http.StatusNotFound, "NOT_FOUND", "blob not found")
			return
		}
		f.write(w, http.StatusOK, dto.BlobResponse{Path: key, URL: f.srv.URL + "/files/" + key})
	case path == "/api/v1/collections/materials" && r.Method == http.MethodGet:
		items := append([]models.Material(nil), f.materials...)
		sort.SliceStable(items, func(i, j int) bool { return items[i].DateArchived.After(items[j].DateArchived) })
		f.write(w, http.StatusOK, items)
	case path == "/api/v1/collections/materials" && r.Method == http.MethodPost:
		var m models.Material
		_ = json.NewDecoder(r.Body).Decode(&m)
		m.ID = "m-new"
		f.materials = append(f.materials, m)
		f.write(w, http.StatusCreated, dto.RecordIDResponse{ID: m.ID})
	case path == "/api/v1/collections/reports" && r.Method == http.MethodPost:
		var report models.FlagReport
		_ = json.NewDecoder(r.Body).Decode(&report)
		f.reports = append(f.reports, report)
		f.write(w, http.StatusCreated, dto.RecordIDResponse{ID: "r-1"})
	case strings.HasPrefix(path, "/api/v1/collections/materials/") && r.Method == http.MethodPatch:
		id := strings.TrimPrefix(path, "/api/v1/collections/materials/")
		var patch struct {
			FlagCount int      `json:"flagCount"`
			FlaggedBy []string `json:"flaggedBy"`
		}
		_ = json.NewDecoder(r.Body).Decode(&patch)
		for i := range f.materials {
			if f.materials[i].ID == id {
				f.materials[i].FlagCount = patch.FlagCount
				f.materials[i].FlaggedBy = patch.FlaggedBy
				f.patches++
				f.write(w, http.StatusOK, dto.RecordIDResponse{ID: id})
				return
			}
		}
		f.fail(w, http.StatusNotFound, "NOT_FOUND", "record not found")
	case path == "/api/v1/exports" && r.Method == http.MethodPost:
		f.write(w, http.StatusAccepted, dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued})
	case path == "/api/v1/exports/job-1":
		url := "/download/job-1.csv"
		f.write(w, http.StatusOK, dto.ExportStatusResponse{
			ID:        "job-1",
			Format:    models.ExportFormatCSV,
			Status:    models.ExportStatusFinished,
			Progress:  100,
			ResultURL: &url,
		})
	case path == "/download/job-1.csv":
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, f.exportCSV)
	default:
		f.fail(w, http.StatusNotFound, "NOT_FOUND", "no route")
	}
}

func (f *fakeArchive) write(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (f *fakeArchive) fail(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": code, "message": msg, "status": status}})
}

func (f *fakeArchive) snapshot() ([]models.Material, []models.FlagReport, map[string][]byte, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	blobs := make(map[string][]byte, len(f.blobs))
	for k, v := range f.blobs {
		blobs[k] = v
	}
	return append([]models.Material(nil), f.materials...), append([]models.FlagReport(nil), f.reports...), blobs, f.patches
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, f *fakeArchive, tokenFile, stdin string, args ...string) cliResult {
	t.Helper()

	cmd := newRootCommand(func(c *commandContext) {
		c.intn = func(int) int { return 0 }
	})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))

	full := []string{"--token-file", tokenFile, "--no-color"}
	if f != nil {
		full = append(full, "--server", f.srv.URL)
	}
	cmd.SetArgs(append(full, args...))
	err := cmd.Execute()
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func material(id, title, section string, archived time.Time) models.Material {
	return models.Material{
		ID:           id,
		Title:        title,
		Author:       "Ana",
		Description:  title + " description",
		Section:      section,
		Subsection:   "Poetry",
		Type:         "text/plain",
		FileURL:      "http://files/" + id,
		FileName:     id + ".txt",
		DateArchived: archived,
		FlaggedBy:    []string{},
	}
}
