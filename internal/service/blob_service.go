package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/community-archive/internal/dto"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
	"github.com/noah-isme/community-archive/pkg/storage"
)

// Blob traffic directions for metrics.
const (
	BlobDirectionIn  = "in"
	BlobDirectionOut = "out"
)

// BlobBackend is the object store behind the blob endpoints.
type BlobBackend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (storage.ObjectInfo, error)
	Stat(ctx context.Context, key string) (storage.ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)
	URL(key string) string
}

// BlobService stores uploaded bytes and issues retrieval URLs.
type BlobService struct {
	backend       BlobBackend
	publicBaseURL string
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewBlobService constructs the service. Retrieval URLs fall back to
// publicBaseURL/files/<path> when the backend has no direct URL.
func NewBlobService(backend BlobBackend, publicBaseURL string, metrics *MetricsService, logger *zap.Logger) *BlobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobService{
		backend:       backend,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		metrics:       metrics,
		logger:        logger,
	}
}

// Put stores body under path, overwriting any previous blob.
func (s *BlobService) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) (*dto.BlobResponse, error) {
	key, err := storage.CleanKey(path)
	if err != nil {
		return nil, translateBlobError(err)
	}
	info, err := s.backend.Put(ctx, key, body, size, contentType)
	if err != nil {
		s.logger.Warn("blob put failed", zap.String("path", key), zap.Error(err))
		return nil, translateBlobError(err)
	}
	s.metrics.AddBlobBytes(BlobDirectionIn, info.Size)
	s.logger.Info("blob stored", zap.String("path", key), zap.Int64("size", info.Size), zap.String("content_type", info.ContentType))
	return s.describe(info), nil
}

// Describe returns metadata and the retrieval URL of a stored blob.
func (s *BlobService) Describe(ctx context.Context, path string) (*dto.BlobResponse, error) {
	key, err := storage.CleanKey(path)
	if err != nil {
		return nil, translateBlobError(err)
	}
	info, err := s.backend.Stat(ctx, key)
	if err != nil {
		return nil, translateBlobError(err)
	}
	return s.describe(info), nil
}

// Open streams a stored blob. Callers must close the reader.
func (s *BlobService) Open(ctx context.Context, path string) (io.ReadCloser, storage.ObjectInfo, error) {
	key, err := storage.CleanKey(path)
	if err != nil {
		return nil, storage.ObjectInfo{}, translateBlobError(err)
	}
	body, info, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, storage.ObjectInfo{}, translateBlobError(err)
	}
	return &meteredReadCloser{ReadCloser: body, done: func(n int64) { s.metrics.AddBlobBytes(BlobDirectionOut, n) }}, info, nil
}

// URL returns the retrieval URL for key.
func (s *BlobService) URL(key string) string {
	if direct := s.backend.URL(key); direct != "" {
		return direct
	}
	return s.publicBaseURL + "/files/" + storage.EscapeKey(key)
}

func (s *BlobService) describe(info storage.ObjectInfo) *dto.BlobResponse {
	return &dto.BlobResponse{
		Path:        info.Key,
		URL:         s.URL(info.Key),
		Size:        info.Size,
		ContentType: info.ContentType,
		UpdatedAt:   info.ModTime,
	}
}

func translateBlobError(err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidKey):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blob path")
	case errors.Is(err, storage.ErrObjectNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "blob not found")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "blob store failure")
	}
}

type meteredReadCloser struct {
	io.ReadCloser
	n    int64
	done func(int64)
}

func (m *meteredReadCloser) Read(p []byte) (int, error) {
	n, err := m.ReadCloser.Read(p)
	m.n += int64(n)
	return n, err
}

func (m *meteredReadCloser) Close() error {
	if m.done != nil {
		m.done(m.n)
		m.done = nil
	}
	return m.ReadCloser.Close()
}
