package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clickearn/internal/catalog"
)

// CatalogHandler serves the static content and video catalogs
type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

func NewCatalogHandler(cat *catalog.Catalog, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: cat,
		logger:  logger,
	}
}

// RegisterRoutes registers catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/content", h.Content)
	r.Get("/videos", h.Videos)
}

// Content serves the clickable article catalog
func (h *CatalogHandler) Content(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"content": h.catalog.Content(),
	})
}

// Videos serves the watchable video catalog
func (h *CatalogHandler) Videos(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"videos": h.catalog.Videos(),
	})
}
