package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/community-archive/internal/dto"
	"github.com/noah-isme/community-archive/internal/middleware"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
	"github.com/noah-isme/community-archive/pkg/response"
)

const maxRecordBody = 1 << 20

type recordService interface {
	Create(ctx context.Context, collection string, payload []byte) (string, error)
	Query(ctx context.Context, collection string, query dto.RecordQuery) (interface{}, bool, error)
	Update(ctx context.Context, collection, id string, payload []byte) error
}

// RecordHandler exposes the document collections.
type RecordHandler struct {
	service recordService
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(service recordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// Create godoc
// @Summary Create a record
// @Tags Records
// @Accept json
// @Produce json
// @Param collection path string true "Collection (materials or reports)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /collections/{collection} [post]
func (h *RecordHandler) Create(c *gin.Context) {
	payload, ok := readBody(c)
	if !ok {
		return
	}
	id, err := h.service.Create(c.Request.Context(), c.Param("collection"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.RecordIDResponse{ID: id})
}

// Query godoc
// @Summary List every record of a collection
// @Tags Records
// @Produce json
// @Param collection path string true "Collection (materials or reports)"
// @Param orderBy query string false "Sort field"
// @Param direction query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /collections/{collection} [get]
func (h *RecordHandler) Query(c *gin.Context) {
	var query dto.RecordQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, hit, err := h.service.Query(c.Request.Context(), c.Param("collection"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, items, middleware.ExtractMeta(c))
}

// Update godoc
// @Summary Partially update a record
// @Tags Records
// @Accept json
// @Produce json
// @Param collection path string true "Collection"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 405 {object} response.Envelope
// @Router /collections/{collection}/{id} [patch]
func (h *RecordHandler) Update(c *gin.Context) {
	payload, ok := readBody(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.service.Update(c.Request.Context(), c.Param("collection"), id, payload); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RecordIDResponse{ID: id})
}

func readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRecordBody)
	payload, err := c.GetRawData()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrPayloadTooLarge.Code, appErrors.ErrPayloadTooLarge.Status, "record body too large"))
		return nil, false
	}
	if len(payload) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "request body required"))
		return nil, false
	}
	return payload, true
}
