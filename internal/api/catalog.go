package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/service"
)

// CatalogHandler serves the read-only tag and ingredient reference
// data. Both lists are unpaginated.
type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.catalog.ListTags()
	if err != nil {
		respondError(c, err)
		return
	}
	results := make([]TagResponse, 0, len(tags))
	for i := range tags {
		results = append(results, buildTag(&tags[i]))
	}
	c.JSON(http.StatusOK, results)
}

func (h *CatalogHandler) GetTag(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	tag, err := h.catalog.GetTag(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildTag(tag))
}

// ListIngredients supports name-prefix filtering via ?name=.
func (h *CatalogHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.catalog.ListIngredients(c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	results := make([]IngredientResponse, 0, len(ingredients))
	for i := range ingredients {
		results = append(results, buildIngredient(&ingredients[i]))
	}
	c.JSON(http.StatusOK, results)
}

func (h *CatalogHandler) GetIngredient(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ingredient, err := h.catalog.GetIngredient(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildIngredient(ingredient))
}
