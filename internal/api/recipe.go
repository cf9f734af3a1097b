package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
)

// RecipeHandler serves recipe CRUD, the favorite / shopping-cart
// toggles and the shopping-list download.
type RecipeHandler struct {
	recipes  *service.RecipeService
	users    *service.UserService
	shopping *service.ShoppingListService
}

func NewRecipeHandler(recipes *service.RecipeService, users *service.UserService, shopping *service.ShoppingListService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, users: users, shopping: shopping}
}

type ingredientAmountRequest struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount" binding:"required"`
}

type recipeWriteRequest struct {
	Ingredients []ingredientAmountRequest `json:"ingredients"`
	Tags        []uint                    `json:"tags"`
	Image       string                    `json:"image"`
	Name        string                    `json:"name"`
	Text        string                    `json:"text"`
	CookingTime int                       `json:"cooking_time"`
}

func (r recipeWriteRequest) toInput() service.RecipeInput {
	lines := make([]service.IngredientAmount, 0, len(r.Ingredients))
	for _, line := range r.Ingredients {
		lines = append(lines, service.IngredientAmount{ID: line.ID, Amount: line.Amount})
	}
	return service.RecipeInput{
		Name:        r.Name,
		Text:        r.Text,
		Image:       r.Image,
		CookingTime: r.CookingTime,
		Ingredients: lines,
		Tags:        r.Tags,
	}
}

// List returns recipes newest-first with optional author, tag,
// favorite and cart filters.
func (h *RecipeHandler) List(c *gin.Context) {
	viewerID := middleware.ViewerID(c)
	limit, offset := pageParams(c)

	filter := service.RecipeFilter{
		ViewerID:  viewerID,
		Favorited: boolQuery(c, "is_favorited"),
		InCart:    boolQuery(c, "is_in_shopping_cart"),
	}
	if author, ok := queryUint(c, "author"); ok {
		filter.AuthorID = author
	}
	if tags := c.QueryArray("tags"); len(tags) > 0 {
		filter.TagSlugs = tags
	}

	recipes, total, err := h.recipes.List(filter, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.buildRecipeList(recipes, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildPage(c, total, limit, offset, results))
}

// Get returns the expanded read representation of one recipe.
func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	recipe, err := h.recipes.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.buildRecipeDetail(recipe, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create publishes a recipe and responds with the expanded
// representation.
func (h *RecipeHandler) Create(c *gin.Context) {
	var req recipeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	viewerID := middleware.ViewerID(c)
	recipe, err := h.recipes.Create(c.Request.Context(), viewerID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.buildRecipeDetail(recipe, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update replaces the recipe's fields and its full ingredient and tag
// sets.
func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req recipeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, err := h.users.Get(middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), id, actor, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.buildRecipeDetail(recipe, actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete removes a recipe; author or admin only.
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	actor, err := h.users.Get(middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.recipes.Delete(id, actor); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Favorite marks the recipe and returns its summary card. A missing
// recipe is a 400 with an explicit message, matching the toggle
// endpoints' error contract.
func (h *RecipeHandler) Favorite(c *gin.Context) {
	h.addMarker(c, h.recipes.Favorite)
}

func (h *RecipeHandler) Unfavorite(c *gin.Context) {
	h.removeMarker(c, h.recipes.Unfavorite, "recipe is not in favorites")
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addMarker(c, h.recipes.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeMarker(c, h.recipes.RemoveFromCart, "recipe is not in the shopping cart")
}

func (h *RecipeHandler) addMarker(c *gin.Context, add func(userID, recipeID uint) (*models.Recipe, error)) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	recipe, err := add(middleware.ViewerID(c), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recipe does not exist"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildRecipeSummary(recipe))
}

func (h *RecipeHandler) removeMarker(c *gin.Context, remove func(userID, recipeID uint) error, missingMsg string) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := h.recipes.Get(id); err != nil {
		respondError(c, err)
		return
	}
	if err := remove(middleware.ViewerID(c), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": missingMsg})
			return
		}
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadShoppingCart streams the aggregated shopping list as a
// plain-text attachment.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.shopping.Aggregate(middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", attachmentHeader("shopping_list.txt"))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.RenderText(items)))
}

func (h *RecipeHandler) buildRecipeDetail(recipe *models.Recipe, viewerID uint) (RecipeResponse, error) {
	subscribed, err := h.users.IsSubscribed(viewerID, recipe.AuthorID)
	if err != nil {
		return RecipeResponse{}, err
	}
	favorited, err := h.recipes.FavoritedSet(viewerID, []uint{recipe.ID})
	if err != nil {
		return RecipeResponse{}, err
	}
	inCart, err := h.recipes.InCartSet(viewerID, []uint{recipe.ID})
	if err != nil {
		return RecipeResponse{}, err
	}
	return buildRecipe(recipe, subscribed, favorited[recipe.ID], inCart[recipe.ID]), nil
}

func (h *RecipeHandler) buildRecipeList(recipes []models.Recipe, viewerID uint) ([]RecipeResponse, error) {
	recipeIDs := make([]uint, 0, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for i := range recipes {
		recipeIDs = append(recipeIDs, recipes[i].ID)
		authorIDs = append(authorIDs, recipes[i].AuthorID)
	}

	favorited, err := h.recipes.FavoritedSet(viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := h.recipes.InCartSet(viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := h.users.SubscribedSet(viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	results := make([]RecipeResponse, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		results = append(results, buildRecipe(r, subscribed[r.AuthorID], favorited[r.ID], inCart[r.ID]))
	}
	return results, nil
}

func queryUint(c *gin.Context, key string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
