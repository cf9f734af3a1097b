package api

// Response shapes are assembled field by field by one constructor per
// representation. The viewer-dependent flags (is_subscribed,
// is_favorited, is_in_shopping_cart) are passed in explicitly; nothing
// here reads request state.

import (
	"github.com/foodgram/backend/internal/models"
)

// UserResponse is the read representation of a user.
type UserResponse struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

func buildUser(u *models.User, isSubscribed bool) UserResponse {
	return UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: isSubscribed,
	}
}

// TagResponse is the read representation of a tag.
type TagResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

func buildTag(t *models.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

// IngredientResponse is the read representation of a catalog
// ingredient.
type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

func buildIngredient(i *models.Ingredient) IngredientResponse {
	return IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

// IngredientLineResponse is one ingredient line of a recipe: catalog
// fields flattened together with the amount.
type IngredientLineResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeSummaryResponse is the short recipe card used in favorite /
// cart responses and author cards.
type RecipeSummaryResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

func buildRecipeSummary(r *models.Recipe) RecipeSummaryResponse {
	return RecipeSummaryResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

// RecipeResponse is the expanded read representation with nested
// author, tags and ingredient lines.
type RecipeResponse struct {
	ID               uint                     `json:"id"`
	Tags             []TagResponse            `json:"tags"`
	Author           UserResponse             `json:"author"`
	Ingredients      []IngredientLineResponse `json:"ingredients"`
	IsFavorited      bool                     `json:"is_favorited"`
	IsInShoppingCart bool                     `json:"is_in_shopping_cart"`
	Name             string                   `json:"name"`
	Image            string                   `json:"image"`
	Text             string                   `json:"text"`
	CookingTime      int                      `json:"cooking_time"`
}

func buildRecipe(r *models.Recipe, authorSubscribed, favorited, inCart bool) RecipeResponse {
	tags := make([]TagResponse, 0, len(r.Tags))
	for i := range r.Tags {
		tags = append(tags, buildTag(&r.Tags[i].Tag))
	}

	lines := make([]IngredientLineResponse, 0, len(r.Ingredients))
	for i := range r.Ingredients {
		line := &r.Ingredients[i]
		lines = append(lines, IngredientLineResponse{
			ID:              line.Ingredient.ID,
			Name:            line.Ingredient.Name,
			MeasurementUnit: line.Ingredient.MeasurementUnit,
			Amount:          line.Amount,
		})
	}

	return RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           buildUser(&r.Author, authorSubscribed),
		Ingredients:      lines,
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

// AuthorCardResponse is the subscription-list representation: the user
// plus their recent recipes and total recipe count.
type AuthorCardResponse struct {
	UserResponse
	Recipes      []RecipeSummaryResponse `json:"recipes"`
	RecipesCount int64                   `json:"recipes_count"`
}

func buildAuthorCard(u *models.User, isSubscribed bool, recipes []models.Recipe, total int64) AuthorCardResponse {
	summaries := make([]RecipeSummaryResponse, 0, len(recipes))
	for i := range recipes {
		summaries = append(summaries, buildRecipeSummary(&recipes[i]))
	}
	return AuthorCardResponse{
		UserResponse: buildUser(u, isSubscribed),
		Recipes:      summaries,
		RecipesCount: total,
	}
}
