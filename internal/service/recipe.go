package service

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
)

// IngredientAmount is one (ingredient id, amount) pair of a write
// payload.
type IngredientAmount struct {
	ID     uint
	Amount int
}

// RecipeInput is the flat write representation for create and update.
// Update replaces the full ingredient and tag sets with the payload's
// sets; lines omitted from the payload are discarded.
type RecipeInput struct {
	Name        string
	Text        string
	Image       string // base64 data URI; optional on update
	CookingTime int
	Ingredients []IngredientAmount
	Tags        []uint
}

// RecipeFilter narrows List results.
type RecipeFilter struct {
	AuthorID  uint
	TagSlugs  []string
	Favorited bool
	InCart    bool
	// ViewerID scopes the Favorited/InCart filters; 0 disables them.
	ViewerID uint
}

// RecipeService handles recipe CRUD and the favorite / shopping-cart
// toggles.
type RecipeService struct {
	db     *gorm.DB
	images ImageStore
}

func NewRecipeService(db *gorm.DB, images ImageStore) *RecipeService {
	return &RecipeService{db: db, images: images}
}

// validateInput checks the payload in a fixed order (image, tags,
// ingredients, cooking time) entirely before anything is persisted, so
// a late failure cannot leave a partially written recipe. Returns the
// resolved tags and ingredient lines.
func (s *RecipeService) validateInput(in RecipeInput, imageRequired bool) ([]models.Tag, []models.Ingredient, error) {
	if imageRequired && in.Image == "" {
		return nil, nil, validationErrorf("image is required")
	}

	if len(in.Tags) == 0 {
		return nil, nil, validationErrorf("tags must not be empty")
	}
	seenTags := make(map[uint]bool, len(in.Tags))
	for _, id := range in.Tags {
		if seenTags[id] {
			return nil, nil, validationErrorf("tags must be unique")
		}
		seenTags[id] = true
	}
	var tags []models.Tag
	if err := s.db.Where("id IN ?", in.Tags).Find(&tags).Error; err != nil {
		return nil, nil, err
	}
	if len(tags) != len(in.Tags) {
		return nil, nil, validationErrorf("unknown tag in payload")
	}

	if len(in.Ingredients) == 0 {
		return nil, nil, validationErrorf("ingredients must not be empty")
	}
	ids := make([]uint, 0, len(in.Ingredients))
	seenIngredients := make(map[uint]bool, len(in.Ingredients))
	for _, line := range in.Ingredients {
		if seenIngredients[line.ID] {
			return nil, nil, validationErrorf("ingredients must be unique")
		}
		seenIngredients[line.ID] = true
		if line.Amount < 1 {
			return nil, nil, validationErrorf("ingredient amount must be at least 1")
		}
		ids = append(ids, line.ID)
	}
	var ingredients []models.Ingredient
	if err := s.db.Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, nil, err
	}
	if len(ingredients) != len(ids) {
		return nil, nil, validationErrorf("unknown ingredient in payload")
	}

	if in.CookingTime < 1 {
		return nil, nil, validationErrorf("cooking time must be at least 1 minute")
	}
	if in.Name == "" {
		return nil, nil, validationErrorf("name is required")
	}

	return tags, ingredients, nil
}

// Create persists the recipe header, ingredient lines and tag links as
// one atomic write.
func (s *RecipeService) Create(ctx context.Context, authorID uint, in RecipeInput) (*models.Recipe, error) {
	if _, _, err := s.validateInput(in, true); err != nil {
		return nil, err
	}

	imageURL, err := s.images.Save(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        in.Name,
		Image:       imageURL,
		Text:        in.Text,
		CookingTime: in.CookingTime,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		return writeLinks(tx, recipe.ID, in)
	})
	if err != nil {
		s.discardImage(ctx, imageURL)
		return nil, err
	}
	return s.Get(recipe.ID)
}

// Update replaces the header fields and the entire ingredient and tag
// sets in one transaction. This is a full replace, not a merge.
func (s *RecipeService) Update(ctx context.Context, recipeID uint, actor *models.User, in RecipeInput) (*models.Recipe, error) {
	recipe, err := s.Get(recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != actor.ID && !actor.IsAdmin {
		return nil, ErrPermissionDenied
	}

	if _, _, err := s.validateInput(in, false); err != nil {
		return nil, err
	}

	imageURL := recipe.Image
	if in.Image != "" {
		imageURL, err = s.images.Save(ctx, in.Image)
		if err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":         in.Name,
			"text":         in.Text,
			"image":        imageURL,
			"cooking_time": in.CookingTime,
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
		return writeLinks(tx, recipeID, in)
	})
	if err != nil {
		// The row still points at the old image; the replacement
		// never became reachable.
		if in.Image != "" {
			s.discardImage(ctx, imageURL)
		}
		return nil, err
	}
	return s.Get(recipeID)
}

// discardImage best-effort deletes an image whose recipe write rolled
// back. Stores without removal support just leave the file.
func (s *RecipeService) discardImage(ctx context.Context, location string) {
	remover, ok := s.images.(ImageRemover)
	if !ok {
		return
	}
	if err := remover.Remove(ctx, location); err != nil {
		log.Printf("[RecipeService] Failed to remove orphaned image %s: %v", location, err)
	}
}

func writeLinks(tx *gorm.DB, recipeID uint, in RecipeInput) error {
	for _, tagID := range in.Tags {
		if err := tx.Create(&models.RecipeTag{RecipeID: recipeID, TagID: tagID}).Error; err != nil {
			return err
		}
	}
	for _, line := range in.Ingredients {
		link := models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: line.ID,
			Amount:       line.Amount,
		}
		if err := tx.Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a recipe with author, ingredient lines and tags.
func (s *RecipeService) Get(id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.
		Preload("Author").
		Preload("Ingredients.Ingredient").
		Preload("Tags.Tag").
		First(&recipe, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// List returns recipes newest-first with limit/offset pagination.
func (s *RecipeService) List(filter RecipeFilter, limit, offset int) ([]models.Recipe, int64, error) {
	query := s.db.Model(&models.Recipe{})

	if filter.AuthorID != 0 {
		query = query.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		// A subquery keeps the recipe set free of join duplicates, so
		// Count stays valid and a recipe with several matching tags
		// appears once.
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if filter.Favorited && filter.ViewerID != 0 {
		query = query.
			Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
			Where("favorites.user_id = ?", filter.ViewerID)
	}
	if filter.InCart && filter.ViewerID != 0 {
		query = query.
			Joins("JOIN shopping_cart_entries ON shopping_cart_entries.recipe_id = recipes.id").
			Where("shopping_cart_entries.user_id = ?", filter.ViewerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.
		Preload("Author").
		Preload("Ingredients.Ingredient").
		Preload("Tags.Tag").
		Order("recipes.created_at DESC, recipes.id DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// Delete removes a recipe; only the author or an admin may do it.
func (s *RecipeService) Delete(recipeID uint, actor *models.User) error {
	recipe, err := s.Get(recipeID)
	if err != nil {
		return err
	}
	if recipe.AuthorID != actor.ID && !actor.IsAdmin {
		return ErrPermissionDenied
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, link := range []interface{}{
			&models.RecipeIngredient{}, &models.RecipeTag{},
			&models.Favorite{}, &models.ShoppingCartEntry{},
		} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(link).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, recipeID).Error
	})
}

// Favorite adds a (user, recipe) favorite marker and returns the
// recipe for the summary response.
func (s *RecipeService) Favorite(userID, recipeID uint) (*models.Recipe, error) {
	return s.addMarker(userID, recipeID, func() error {
		return s.db.Create(&models.Favorite{UserID: userID, RecipeID: recipeID}).Error
	}, "recipe is already in favorites")
}

// Unfavorite removes the marker; a missing row is not-found, so the
// caller can tell "already removed" from "removed now".
func (s *RecipeService) Unfavorite(userID, recipeID uint) error {
	return s.removeMarker(userID, recipeID, &models.Favorite{})
}

// AddToCart puts a recipe into the user's shopping cart.
func (s *RecipeService) AddToCart(userID, recipeID uint) (*models.Recipe, error) {
	return s.addMarker(userID, recipeID, func() error {
		return s.db.Create(&models.ShoppingCartEntry{UserID: userID, RecipeID: recipeID}).Error
	}, "recipe is already in the shopping cart")
}

// RemoveFromCart removes a recipe from the user's shopping cart.
func (s *RecipeService) RemoveFromCart(userID, recipeID uint) error {
	return s.removeMarker(userID, recipeID, &models.ShoppingCartEntry{})
}

func (s *RecipeService) addMarker(userID, recipeID uint, create func() error, duplicateMsg string) (*models.Recipe, error) {
	recipe, err := s.Get(recipeID)
	if err != nil {
		return nil, err
	}
	if err := create(); err != nil {
		if isDuplicateErr(err) {
			return nil, validationErrorf("%s", duplicateMsg)
		}
		return nil, err
	}
	return recipe, nil
}

func (s *RecipeService) removeMarker(userID, recipeID uint, marker interface{}) error {
	result := s.db.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(marker)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FavoritedSet reports which of the given recipes the viewer has
// favorited. Anonymous viewers get an empty set.
func (s *RecipeService) FavoritedSet(viewerID uint, recipeIDs []uint) (map[uint]bool, error) {
	return s.markerSet(viewerID, recipeIDs, "favorites")
}

// InCartSet reports which of the given recipes are in the viewer's
// shopping cart.
func (s *RecipeService) InCartSet(viewerID uint, recipeIDs []uint) (map[uint]bool, error) {
	return s.markerSet(viewerID, recipeIDs, "shopping_cart_entries")
}

func (s *RecipeService) markerSet(viewerID uint, recipeIDs []uint, table string) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if viewerID == 0 || len(recipeIDs) == 0 {
		return set, nil
	}
	var ids []uint
	err := s.db.Table(table).
		Where("user_id = ? AND recipe_id IN ?", viewerID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
