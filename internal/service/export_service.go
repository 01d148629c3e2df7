package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/community-archive/internal/models"
	"github.com/noah-isme/community-archive/pkg/export"
	"github.com/noah-isme/community-archive/pkg/storage"
)

type catalogSource interface {
	ListBySection(ctx context.Context, section *string) ([]models.Material, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	Rows         int
	ExpiresAt    time.Time
}

var catalogHeaders = []string{"ID", "Title", "Author", "Section", "Subsection", "Type", "File", "Archived", "Flags", "Status"}

// ExportService renders the catalog and stores the result behind a signed token.
type ExportService struct {
	catalog catalogSource
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(catalog catalogSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		catalog: catalog,
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate renders the job's catalog slice and stores it.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if job.Section != nil && *job.Section != "" && !models.IsSection(*job.Section) {
		return nil, fmt.Errorf("unknown section %q", *job.Section)
	}
	materials, err := s.catalog.ListBySection(ctx, job.Section)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	dataset := buildCatalogDataset(materials)

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, s.title(job), fmt.Sprintf("%d materials, generated %s", dataset.Len(), s.now().UTC().Format(time.RFC1123)))
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("catalog export rendered", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("rows", dataset.Len()))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Format,
		Rows:         dataset.Len(),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured ResultTTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) title(job *models.ExportJob) string {
	if job.Section != nil && *job.Section != "" {
		return "Community Archive: " + models.SectionLabel(*job.Section)
	}
	return "Community Archive Catalog"
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	scope := "all"
	if job.Section != nil && *job.Section != "" {
		scope = sanitizeFilename(*job.Section)
	}
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("catalog_%s_%s_%s.%s", scope, timestamp, shortID(job.ID), job.Format)
}

func buildCatalogDataset(materials []models.Material) export.Dataset {
	rows := make([]map[string]string, 0, len(materials))
	for _, m := range materials {
		status := "ok"
		if m.Flagged() {
			status = "flagged"
		}
		rows = append(rows, map[string]string{
			"ID":         m.ID,
			"Title":      m.Title,
			"Author":     m.Author,
			"Section":    models.SectionLabel(m.Section),
			"Subsection": m.Subsection,
			"Type":       m.Type,
			"File":       m.FileName,
			"Archived":   m.DateArchived.UTC().Format(time.RFC3339),
			"Flags":      strconv.Itoa(m.FlagCount),
			"Status":     status,
		})
	}
	return export.Dataset{Headers: catalogHeaders, Rows: rows}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "job"
	}
	return id
}
