package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
)

const testImage = "data:image/png;base64,aW1hZ2UtYnl0ZXM="

type recipeEnv struct {
	db      *gorm.DB
	recipes *service.RecipeService
	author  *models.User
	tag     *models.Tag
	flour   *models.Ingredient
	egg     *models.Ingredient
}

func newRecipeEnv(t *testing.T) recipeEnv {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	return recipeEnv{
		db:      db,
		recipes: service.NewRecipeService(db, testhelpers.StubImageStore{}),
		author:  testhelpers.CreateUser(t, db, "author"),
		tag:     testhelpers.CreateTag(t, db, "Breakfast", "#E26C2D"),
		flour:   testhelpers.CreateIngredient(t, db, "flour", "g"),
		egg:     testhelpers.CreateIngredient(t, db, "egg", "pcs"),
	}
}

func (e recipeEnv) input() service.RecipeInput {
	return service.RecipeInput{
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		Image:       testImage,
		CookingTime: 20,
		Ingredients: []service.IngredientAmount{
			{ID: e.flour.ID, Amount: 200},
			{ID: e.egg.ID, Amount: 2},
		},
		Tags: []uint{e.tag.ID},
	}
}

func TestCreateRecipe(t *testing.T) {
	env := newRecipeEnv(t)

	recipe, err := env.recipes.Create(context.Background(), env.author.ID, env.input())
	require.NoError(t, err)

	assert.Equal(t, "Pancakes", recipe.Name)
	assert.Equal(t, env.author.ID, recipe.AuthorID)
	assert.Equal(t, "/media/recipes/stub.png", recipe.Image)
	require.Len(t, recipe.Ingredients, 2)
	require.Len(t, recipe.Tags, 1)
	assert.Equal(t, "breakfast", recipe.Tags[0].Tag.Slug)
}

func TestCreateRecipeValidationOrder(t *testing.T) {
	env := newRecipeEnv(t)

	cases := []struct {
		name    string
		mutate  func(*service.RecipeInput)
		message string
	}{
		{"missing image", func(in *service.RecipeInput) { in.Image = "" }, "image is required"},
		{"no tags", func(in *service.RecipeInput) { in.Tags = nil }, "tags must not be empty"},
		{"duplicate tags", func(in *service.RecipeInput) { in.Tags = []uint{env.tag.ID, env.tag.ID} }, "tags must be unique"},
		{"unknown tag", func(in *service.RecipeInput) { in.Tags = []uint{env.tag.ID + 100} }, "unknown tag in payload"},
		{"no ingredients", func(in *service.RecipeInput) { in.Ingredients = nil }, "ingredients must not be empty"},
		{"duplicate ingredients", func(in *service.RecipeInput) {
			in.Ingredients = []service.IngredientAmount{{ID: env.flour.ID, Amount: 1}, {ID: env.flour.ID, Amount: 2}}
		}, "ingredients must be unique"},
		{"zero amount", func(in *service.RecipeInput) {
			in.Ingredients = []service.IngredientAmount{{ID: env.flour.ID, Amount: 0}}
		}, "ingredient amount must be at least 1"},
		{"unknown ingredient", func(in *service.RecipeInput) {
			in.Ingredients = []service.IngredientAmount{{ID: env.egg.ID + 100, Amount: 1}}
		}, "unknown ingredient in payload"},
		{"zero cooking time", func(in *service.RecipeInput) { in.CookingTime = 0 }, "cooking time must be at least 1 minute"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := env.input()
			tc.mutate(&in)
			_, err := env.recipes.Create(context.Background(), env.author.ID, in)
			require.True(t, service.IsValidation(err), "want validation error, got %v", err)
			assert.Contains(t, err.Error(), tc.message)

			var count int64
			require.NoError(t, env.db.Model(&models.Recipe{}).Count(&count).Error)
			assert.Zero(t, count, "failed create must not persist a recipe")
		})
	}
}

func TestUpdateRecipeReplacesSets(t *testing.T) {
	env := newRecipeEnv(t)

	recipe, err := env.recipes.Create(context.Background(), env.author.ID, env.input())
	require.NoError(t, err)

	dinner := testhelpers.CreateTag(t, env.db, "Dinner", "#8775D2")
	milk := testhelpers.CreateIngredient(t, env.db, "milk", "ml")

	updated, err := env.recipes.Update(context.Background(), recipe.ID, env.author, service.RecipeInput{
		Name:        "Crepes",
		Text:        "Thinner batter.",
		CookingTime: 30,
		Ingredients: []service.IngredientAmount{{ID: milk.ID, Amount: 500}},
		Tags:        []uint{dinner.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, "Crepes", updated.Name)
	assert.Equal(t, 30, updated.CookingTime)
	// Image omitted from the payload stays as it was.
	assert.Equal(t, recipe.Image, updated.Image)

	// The payload's sets replace the stored sets entirely.
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "milk", updated.Ingredients[0].Ingredient.Name)
	assert.Equal(t, 500, updated.Ingredients[0].Amount)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "dinner", updated.Tags[0].Tag.Slug)

	var links int64
	require.NoError(t, env.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", recipe.ID).Count(&links).Error)
	assert.EqualValues(t, 1, links)
}

func TestUpdateRecipePermissions(t *testing.T) {
	env := newRecipeEnv(t)

	recipe, err := env.recipes.Create(context.Background(), env.author.ID, env.input())
	require.NoError(t, err)

	stranger := testhelpers.CreateUser(t, env.db, "stranger")
	_, err = env.recipes.Update(context.Background(), recipe.ID, stranger, env.input())
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	admin := testhelpers.CreateAdmin(t, env.db, "admin")
	_, err = env.recipes.Update(context.Background(), recipe.ID, admin, env.input())
	assert.NoError(t, err)
}

func TestDeleteRecipe(t *testing.T) {
	env := newRecipeEnv(t)

	recipe, err := env.recipes.Create(context.Background(), env.author.ID, env.input())
	require.NoError(t, err)

	stranger := testhelpers.CreateUser(t, env.db, "stranger")
	assert.ErrorIs(t, env.recipes.Delete(recipe.ID, stranger), service.ErrPermissionDenied)

	_, err = env.recipes.Favorite(stranger.ID, recipe.ID)
	require.NoError(t, err)

	require.NoError(t, env.recipes.Delete(recipe.ID, env.author))

	_, err = env.recipes.Get(recipe.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	// Link and marker rows go with the recipe.
	for _, model := range []interface{}{
		&models.RecipeIngredient{}, &models.RecipeTag{}, &models.Favorite{},
	} {
		var count int64
		require.NoError(t, env.db.Model(model).Where("recipe_id = ?", recipe.ID).Count(&count).Error)
		assert.Zero(t, count)
	}
}

func TestListRecipesFilters(t *testing.T) {
	env := newRecipeEnv(t)

	other := testhelpers.CreateUser(t, env.db, "other")
	dinner := testhelpers.CreateTag(t, env.db, "Dinner", "#8775D2")

	breakfastRecipe := testhelpers.CreateRecipe(t, env.db, env.author, "porridge",
		[]*models.Tag{env.tag}, nil)
	dinnerRecipe := testhelpers.CreateRecipe(t, env.db, other, "stew",
		[]*models.Tag{dinner}, nil)
	bothRecipe := testhelpers.CreateRecipe(t, env.db, env.author, "omelette",
		[]*models.Tag{env.tag, dinner}, nil)

	all, total, err := env.recipes.List(service.RecipeFilter{}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	byAuthor, total, err := env.recipes.List(service.RecipeFilter{AuthorID: other.ID}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, dinnerRecipe.ID, byAuthor[0].ID)

	// A recipe carrying both tags appears once, not per matching tag.
	byTags, total, err := env.recipes.List(service.RecipeFilter{
		TagSlugs: []string{"breakfast", "dinner"},
	}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, byTags, 3)

	viewer := testhelpers.CreateUser(t, env.db, "viewer")
	_, err = env.recipes.Favorite(viewer.ID, breakfastRecipe.ID)
	require.NoError(t, err)
	_, err = env.recipes.AddToCart(viewer.ID, bothRecipe.ID)
	require.NoError(t, err)

	favorited, total, err := env.recipes.List(service.RecipeFilter{
		Favorited: true, ViewerID: viewer.ID,
	}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, favorited, 1)
	assert.Equal(t, breakfastRecipe.ID, favorited[0].ID)

	inCart, total, err := env.recipes.List(service.RecipeFilter{
		InCart: true, ViewerID: viewer.ID,
	}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, inCart, 1)
	assert.Equal(t, bothRecipe.ID, inCart[0].ID)

	// Anonymous viewers cannot use the per-user filters.
	anon, total, err := env.recipes.List(service.RecipeFilter{Favorited: true}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, anon, 3)
}

func TestTagFilterCountsMultiTagRecipeOnce(t *testing.T) {
	env := newRecipeEnv(t)

	dinner := testhelpers.CreateTag(t, env.db, "Dinner", "#8775D2")
	recipe := testhelpers.CreateRecipe(t, env.db, env.author, "omelette",
		[]*models.Tag{env.tag, dinner}, nil)

	// Both of the recipe's tags match the filter; the recipe and the
	// count must not double up because of it.
	recipes, total, err := env.recipes.List(service.RecipeFilter{
		TagSlugs: []string{"breakfast", "dinner"},
	}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, recipes, 1)
	assert.Equal(t, recipe.ID, recipes[0].ID)
}

// trackingImageStore records saves and removals so rollback cleanup is
// observable.
type trackingImageStore struct {
	saved   []string
	removed []string
}

func (s *trackingImageStore) Save(ctx context.Context, dataURI string) (string, error) {
	url := fmt.Sprintf("/media/recipes/tracked-%d.png", len(s.saved))
	s.saved = append(s.saved, url)
	return url, nil
}

func (s *trackingImageStore) Remove(ctx context.Context, location string) error {
	s.removed = append(s.removed, location)
	return nil
}

// blockTagLinkWrites makes every insert into recipe_tags fail, forcing
// the recipe write transaction to roll back partway through.
func blockTagLinkWrites(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec(
		"CREATE TRIGGER block_tag_links BEFORE INSERT ON recipe_tags BEGIN SELECT RAISE(ABORT, 'tag link writes blocked'); END",
	).Error)
}

func TestCreateRollbackDiscardsImage(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	store := &trackingImageStore{}
	recipes := service.NewRecipeService(db, store)

	author := testhelpers.CreateUser(t, db, "author")
	tag := testhelpers.CreateTag(t, db, "Breakfast", "#E26C2D")
	flour := testhelpers.CreateIngredient(t, db, "flour", "g")

	blockTagLinkWrites(t, db)

	_, err := recipes.Create(context.Background(), author.ID, service.RecipeInput{
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		Image:       testImage,
		CookingTime: 20,
		Ingredients: []service.IngredientAmount{{ID: flour.ID, Amount: 200}},
		Tags:        []uint{tag.ID},
	})
	require.Error(t, err)

	require.Len(t, store.saved, 1)
	assert.Equal(t, store.saved, store.removed)

	var count int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateRollbackDiscardsReplacementImage(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	store := &trackingImageStore{}
	recipes := service.NewRecipeService(db, store)

	author := testhelpers.CreateUser(t, db, "author")
	tag := testhelpers.CreateTag(t, db, "Breakfast", "#E26C2D")
	flour := testhelpers.CreateIngredient(t, db, "flour", "g")

	in := service.RecipeInput{
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		Image:       testImage,
		CookingTime: 20,
		Ingredients: []service.IngredientAmount{{ID: flour.ID, Amount: 200}},
		Tags:        []uint{tag.ID},
	}
	recipe, err := recipes.Create(context.Background(), author.ID, in)
	require.NoError(t, err)

	blockTagLinkWrites(t, db)

	_, err = recipes.Update(context.Background(), recipe.ID, author, in)
	require.Error(t, err)

	// The replacement was written and then discarded; the row still
	// carries the original image.
	require.Len(t, store.saved, 2)
	assert.Equal(t, []string{store.saved[1]}, store.removed)

	kept, err := recipes.Get(recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, store.saved[0], kept.Image)
}

func TestListRecipesPagination(t *testing.T) {
	env := newRecipeEnv(t)

	for _, name := range []string{"first", "second", "third"} {
		testhelpers.CreateRecipe(t, env.db, env.author, name, nil, nil)
	}

	page, total, err := env.recipes.List(service.RecipeFilter{}, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	// Newest first: ids descend.
	assert.Greater(t, page[0].ID, page[1].ID)

	rest, _, err := env.recipes.List(service.RecipeFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestFavoriteMarkers(t *testing.T) {
	env := newRecipeEnv(t)

	recipe := testhelpers.CreateRecipe(t, env.db, env.author, "porridge", nil, nil)
	viewer := testhelpers.CreateUser(t, env.db, "viewer")

	got, err := env.recipes.Favorite(viewer.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe.ID, got.ID)

	_, err = env.recipes.Favorite(viewer.ID, recipe.ID)
	assert.True(t, service.IsValidation(err), "double favorite must fail, got %v", err)

	_, err = env.recipes.Favorite(viewer.ID, recipe.ID+100)
	assert.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, env.recipes.Unfavorite(viewer.ID, recipe.ID))
	assert.ErrorIs(t, env.recipes.Unfavorite(viewer.ID, recipe.ID), service.ErrNotFound)
}

func TestShoppingCartMarkers(t *testing.T) {
	env := newRecipeEnv(t)

	recipe := testhelpers.CreateRecipe(t, env.db, env.author, "porridge", nil, nil)
	viewer := testhelpers.CreateUser(t, env.db, "viewer")

	_, err := env.recipes.AddToCart(viewer.ID, recipe.ID)
	require.NoError(t, err)

	_, err = env.recipes.AddToCart(viewer.ID, recipe.ID)
	assert.True(t, service.IsValidation(err))

	require.NoError(t, env.recipes.RemoveFromCart(viewer.ID, recipe.ID))
	assert.ErrorIs(t, env.recipes.RemoveFromCart(viewer.ID, recipe.ID), service.ErrNotFound)
}

func TestMarkerSets(t *testing.T) {
	env := newRecipeEnv(t)

	first := testhelpers.CreateRecipe(t, env.db, env.author, "first", nil, nil)
	second := testhelpers.CreateRecipe(t, env.db, env.author, "second", nil, nil)
	viewer := testhelpers.CreateUser(t, env.db, "viewer")

	_, err := env.recipes.Favorite(viewer.ID, first.ID)
	require.NoError(t, err)

	set, err := env.recipes.FavoritedSet(viewer.ID, []uint{first.ID, second.ID})
	require.NoError(t, err)
	assert.True(t, set[first.ID])
	assert.False(t, set[second.ID])

	// Anonymous viewer: nothing is flagged.
	set, err = env.recipes.FavoritedSet(0, []uint{first.ID, second.ID})
	require.NoError(t, err)
	assert.Empty(t, set)

	set, err = env.recipes.InCartSet(viewer.ID, []uint{first.ID})
	require.NoError(t, err)
	assert.Empty(t, set)
}
