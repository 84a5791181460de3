package handler

import (
	"net/http"

	"what-to-do/internal/service"

	"github.com/gin-gonic/gin"
)

type TaxonomyHandler struct{ svc *service.TaxonomyService }

func NewTaxonomyHandler(svc *service.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{svc: svc}
}

// GET /api/emotions
func (h *TaxonomyHandler) List(c *gin.Context) {
	groups, err := h.svc.Grouped(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": groups})
}
