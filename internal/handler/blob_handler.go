package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/community-archive/internal/dto"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
	"github.com/noah-isme/community-archive/pkg/response"
	"github.com/noah-isme/community-archive/pkg/storage"
)

type blobService interface {
	Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) (*dto.BlobResponse, error)
	Describe(ctx context.Context, path string) (*dto.BlobResponse, error)
	Open(ctx context.Context, path string) (io.ReadCloser, storage.ObjectInfo, error)
}

// BlobHandler exposes the blob store.
type BlobHandler struct {
	service      blobService
	maxBodyBytes int64
}

// NewBlobHandler constructs the handler. Bodies above maxBodyBytes are rejected.
func NewBlobHandler(service blobService, maxBodyBytes int64) *BlobHandler {
	return &BlobHandler{service: service, maxBodyBytes: maxBodyBytes}
}

// Put godoc
// @Summary Store a blob
// @Tags Blobs
// @Accept octet-stream
// @Produce json
// @Param path path string true "Blob path"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /blobs/{path} [put]
func (h *BlobHandler) Put(c *gin.Context) {
	if h.maxBodyBytes > 0 && c.Request.ContentLength > h.maxBodyBytes {
		response.Error(c, appErrors.ErrPayloadTooLarge)
		return
	}
	body := io.Reader(c.Request.Body)
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}
	blob, err := h.service.Put(c.Request.Context(), wildcardPath(c), body, c.Request.ContentLength, c.ContentType())
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, blob)
}

// Describe godoc
// @Summary Blob metadata and retrieval URL
// @Tags Blobs
// @Produce json
// @Param path path string true "Blob path"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blobs/{path} [get]
func (h *BlobHandler) Describe(c *gin.Context) {
	blob, err := h.service.Describe(c.Request.Context(), wildcardPath(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blob)
}

// Serve godoc
// @Summary Download blob bytes
// @Tags Blobs
// @Produce octet-stream
// @Param path path string true "Blob path"
// @Success 200 {file} binary
// @Router /files/{path} [get]
func (h *BlobHandler) Serve(c *gin.Context) {
	body, info, err := h.service.Open(c.Request.Context(), wildcardPath(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close() //nolint:errcheck
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", path.Base(info.Key)))
	c.Header("Cache-Control", "public, max-age=3600")
	c.DataFromReader(http.StatusOK, info.Size, contentType, body, nil)
}

// wildcardPath strips the leading slash gin keeps on catch-all params.
func wildcardPath(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("path"), "/")
}
