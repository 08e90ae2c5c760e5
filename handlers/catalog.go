package handlers

import (
	"net/http"
	"strings"

	"broadway/models"
	"broadway/services/catalog"

	"github.com/gin-gonic/gin"
)

// CatalogHandler exposes the read-only menu.
type CatalogHandler struct {
	catalog catalog.CatalogService
}

func NewCatalogHandler(svc catalog.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: svc}
}

// MenuHandler lists the whole menu, or one category with ?category=.
func (h *CatalogHandler) MenuHandler(c *gin.Context) {
	category := models.Category(strings.ToLower(strings.TrimSpace(c.Query("category"))))
	if category != "" && !validCategory(category) {
		respondError(c, "unknown category", &models.ValidationError{Field: "category", Reason: "unknown category " + string(category)})
		return
	}
	items, err := h.catalog.Menu(c.Request.Context(), category)
	if err != nil {
		respondError(c, "failed to load menu", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *CatalogHandler) CategoriesHandler(c *gin.Context) {
	cats, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		respondError(c, "failed to load categories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (h *CatalogHandler) DealsHandler(c *gin.Context) {
	deals, err := h.catalog.Deals(c.Request.Context())
	if err != nil {
		respondError(c, "failed to load deals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deals": deals})
}

func (h *CatalogHandler) InfoHandler(c *gin.Context) {
	info, err := h.catalog.Info(c.Request.Context())
	if err != nil {
		respondError(c, "failed to load restaurant info", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func validCategory(cat models.Category) bool {
	for _, c := range models.Categories {
		if c == cat {
			return true
		}
	}
	return false
}
