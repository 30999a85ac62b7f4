package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderbot/internal/model"
)

// CatalogRefresher is the part of the catalog refresher the handler needs
type CatalogRefresher interface {
	Refresh(ctx context.Context) (model.CatalogStats, error)
}

// CatalogStatser reports on the published snapshot
type CatalogStatser interface {
	Stats() model.CatalogStats
}

// CatalogHandler exposes the catalog snapshot
type CatalogHandler struct {
	store     CatalogStatser
	refresher CatalogRefresher
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(store CatalogStatser, refresher CatalogRefresher) *CatalogHandler {
	return &CatalogHandler{store: store, refresher: refresher}
}

// Stats handles GET /api/v1/catalog
func (h *CatalogHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}

// Refresh handles POST /api/v1/catalog/refresh
func (h *CatalogHandler) Refresh(c *gin.Context) {
	stats, err := h.refresher.Refresh(c.Request.Context())
	if err != nil {
		// the previous snapshot stays published
		c.JSON(http.StatusBadGateway, gin.H{"error": "Catalog refresh failed: " + err.Error(), "current": stats})
		return
	}
	c.JSON(http.StatusOK, stats)
}
