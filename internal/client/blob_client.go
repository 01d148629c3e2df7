package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/community-archive/internal/archive"
	"github.com/noah-isme/community-archive/internal/dto"
)

// BlobClient stores files through the server's blob endpoints.
type BlobClient struct {
	base
	upload *http.Client
}

// NewBlobClient builds a blob client. Uploads run without an overall
// timeout; metadata calls use cfg.Timeout.
func NewBlobClient(cfg Config) *BlobClient {
	return &BlobClient{base: newBase(cfg), upload: newHTTPClient(0)}
}

// Put streams body to path, reporting progress as bytes leave the client.
func (c *BlobClient) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) *archive.UploadTask {
	return archive.StartUpload(ctx, func(ctx context.Context, report func(archive.Progress)) error {
		report(archive.Progress{Transferred: 0, Total: size})
		reader := &progressReader{r: body, total: size, report: report}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.blobURL(path), reader)
		if err != nil {
			return fmt.Errorf("build upload request: %w", err)
		}
		req.ContentLength = size
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")

		var out envelope[dto.BlobResponse]
		return c.send(c.upload, req, &out)
	})
}

// DownloadURL resolves the retrieval URL of a stored blob.
func (c *BlobClient) DownloadURL(ctx context.Context, path string) (string, error) {
	var out envelope[dto.BlobResponse]
	if err := c.doJSON(ctx, nil, http.MethodGet, c.blobURL(path), nil, &out); err != nil {
		return "", err
	}
	if out.Data.URL == "" {
		return "", fmt.Errorf("server returned no url for %s", path)
	}
	return out.Data.URL, nil
}

func (c *BlobClient) blobURL(path string) string {
	return c.endpoint(append([]string{"blobs"}, strings.Split(strings.TrimPrefix(path, "/"), "/")...)...)
}

// progressReader reports cumulative bytes read.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(archive.Progress)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		p.report(archive.Progress{Transferred: p.read, Total: p.total})
	}
	return n, err
}
