package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/community-archive/internal/models"
	"github.com/noah-isme/community-archive/pkg/response"
)

// TaxonomyHandler serves the fixed category tree.
type TaxonomyHandler struct{}

// NewTaxonomyHandler constructs the handler.
func NewTaxonomyHandler() *TaxonomyHandler {
	return &TaxonomyHandler{}
}

// List godoc
// @Summary Category taxonomy
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /taxonomy [get]
func (h *TaxonomyHandler) List(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.JSON(http.StatusOK, response.Envelope{Data: models.Taxonomy()})
}
