package service

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ShoppingListItem is one aggregated line of the download: the total
// amount of an ingredient across every recipe in the user's cart.
type ShoppingListItem struct {
	Name            string `json:"name"`
	TotalAmount     int    `json:"total_amount"`
	MeasurementUnit string `json:"measurement_unit"`
}

// ShoppingListService computes the aggregated shopping list.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Aggregate sums ingredient amounts over the join of the user's cart
// entries, their recipes' ingredient lines and the ingredient catalog,
// grouped by ingredient identity (name + unit), name-ascending. One
// grouped query, not a per-recipe loop. An empty cart yields an empty
// slice.
func (s *ShoppingListService) Aggregate(userID uint) ([]ShoppingListItem, error) {
	items := []ShoppingListItem{}
	err := s.db.Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_cart_entries ON shopping_cart_entries.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_cart_entries.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RenderText formats the list for the plain-text attachment, one
// "{name} - {total} {unit}" line per ingredient.
func RenderText(items []ShoppingListItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s - %d %s\n", item.Name, item.TotalAmount, item.MeasurementUnit)
	}
	return b.String()
}
