package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/noah-isme/community-archive/internal/dto"
	"github.com/noah-isme/community-archive/internal/models"
)

// ExportClient requests catalog exports and downloads the results.
type ExportClient struct {
	base
	download *http.Client
}

// NewExportClient builds an export client.
func NewExportClient(cfg Config) *ExportClient {
	return &ExportClient{base: newBase(cfg), download: newHTTPClient(0)}
}

// Create enqueues an export of the whole catalog or of one section.
func (c *ExportClient) Create(ctx context.Context, format models.ExportFormat, section string) (dto.ExportJobResponse, error) {
	req := dto.ExportRequest{Format: format}
	if section != "" {
		req.Section = &section
	}
	var out envelope[dto.ExportJobResponse]
	if err := c.doJSON(ctx, nil, http.MethodPost, c.endpoint("exports"), req, &out); err != nil {
		return dto.ExportJobResponse{}, err
	}
	return out.Data, nil
}

// Status fetches the state of an export job.
func (c *ExportClient) Status(ctx context.Context, id string) (dto.ExportStatusResponse, error) {
	var out envelope[dto.ExportStatusResponse]
	if err := c.doJSON(ctx, nil, http.MethodGet, c.endpoint("exports", id), nil, &out); err != nil {
		return dto.ExportStatusResponse{}, err
	}
	return out.Data, nil
}

// Download copies the finished export at resultURL into w. Relative URLs are
// resolved against the server.
func (c *ExportClient) Download(ctx context.Context, resultURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(resultURL), nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.download.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download export: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}
